package pipeline

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"

	"github.com/aluiziolira/go-nextbook/models"
)

// CSVHeader is the column layout of catalog CSV files; catalog.Load reads it back.
var CSVHeader = []string{
	"bookID", "title", "authors", "average_rating", "isbn", "isbn13", "language_code",
	"num_pages", "ratings_count", "text_reviews_count", "publication_date", "publisher",
	"source_url",
}

const csvDateLayout = "1/2/2006"

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(CSVHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends books to the CSV output.
func (cw *CSVWriter) Write(books []*models.Book) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, book := range books {
		if err := cw.writer.Write(csvRecord(book)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func csvRecord(b *models.Book) []string {
	numPages := ""
	if b.NumPages > 0 {
		numPages = strconv.Itoa(b.NumPages)
	}
	published := ""
	if b.PublicationDate != nil {
		published = b.PublicationDate.Format(csvDateLayout)
	}
	return []string{
		b.ID,
		b.Title,
		b.Authors,
		strconv.FormatFloat(b.AverageRating, 'f', -1, 64),
		b.ISBN,
		b.ISBN13,
		b.LanguageCode,
		numPages,
		strconv.Itoa(b.RatingsCount),
		strconv.Itoa(b.TextReviewsCount),
		published,
		b.Publisher,
		b.SourceURL,
	}
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the CSV file exists and is not empty.
func (cw *CSVWriter) Validate() error {
	info, err := os.Stat(cw.file.Name())
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends books in JSONL format.
func (jw *JSONWriter) Write(books []*models.Book) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, book := range books {
		if err := jw.encoder.Encode(book); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := os.Stat(jw.file.Name())
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

// ParquetWriter writes catalog rows to a Parquet file. Rows are buffered by
// the parquet writer and the footer is written on Close.
type ParquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[models.ParquetRow]
	rows   int
	mu     sync.Mutex
}

// NewParquetWriter initialises the Parquet writer.
func NewParquetWriter(filename string) (*ParquetWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	return &ParquetWriter{
		file:   f,
		writer: parquet.NewGenericWriter[models.ParquetRow](f),
	}, nil
}

// Write appends books as Parquet rows.
func (pw *ParquetWriter) Write(books []*models.Book) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	rows := make([]models.ParquetRow, 0, len(books))
	for _, book := range books {
		rows = append(rows, models.NewParquetRow(book))
	}
	n, err := pw.writer.Write(rows)
	pw.rows += n
	if err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return nil
}

// Close writes the Parquet footer and closes the file.
func (pw *ParquetWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if err := pw.writer.Close(); err != nil {
		pw.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return pw.file.Close()
}

// Validate ensures at least one row was written.
func (pw *ParquetWriter) Validate() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.rows == 0 {
		return fmt.Errorf("parquet file is empty")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
