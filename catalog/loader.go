package catalog

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"

	"github.com/aluiziolira/go-nextbook/models"
	"github.com/aluiziolira/go-nextbook/parser"
)

// Format identifies a catalog file encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

// ErrUnsupportedFormat is returned for files whose extension is not recognised.
var ErrUnsupportedFormat = errors.New("catalog: unsupported format")

// LoadStats summarises what happened to the input rows.
type LoadStats struct {
	Rows    int            `json:"rows" yaml:"rows"`
	Kept    int            `json:"kept" yaml:"kept"`
	Skipped int            `json:"skipped" yaml:"skipped"`
	Dropped map[string]int `json:"dropped" yaml:"dropped"`
}

func newLoadStats() *LoadStats {
	return &LoadStats{Dropped: make(map[string]int)}
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".json":
		return FormatJSONL, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("%w: %s (supported: .csv, .jsonl, .parquet)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads a catalog file, drops rows without a title, authors or average
// rating, and returns the resulting catalog.
func Load(path string) (*Catalog, *LoadStats, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}

	if format == FormatParquet {
		return loadParquet(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return LoadReader(f, format)
}

// LoadReader reads a CSV or JSONL catalog from r.
func LoadReader(r io.Reader, format Format) (*Catalog, *LoadStats, error) {
	switch format {
	case FormatCSV:
		return loadCSV(r)
	case FormatJSONL:
		return loadJSONL(r)
	default:
		return nil, nil, fmt.Errorf("%w: %s cannot be streamed", ErrUnsupportedFormat, format)
	}
}

// columns maps normalised header names to RawBook setters.
var columns = map[string]func(*models.RawBook, string){
	"bookid":             func(b *models.RawBook, v string) { b.BookID = v },
	"book_id":            func(b *models.RawBook, v string) { b.BookID = v },
	"title":              func(b *models.RawBook, v string) { b.Title = v },
	"authors":            func(b *models.RawBook, v string) { b.Authors = v },
	"average_rating":     func(b *models.RawBook, v string) { b.AverageRating = v },
	"isbn":               func(b *models.RawBook, v string) { b.ISBN = v },
	"isbn13":             func(b *models.RawBook, v string) { b.ISBN13 = v },
	"language_code":      func(b *models.RawBook, v string) { b.LanguageCode = v },
	"num_pages":          func(b *models.RawBook, v string) { b.NumPages = v },
	"ratings_count":      func(b *models.RawBook, v string) { b.RatingsCount = v },
	"text_reviews_count": func(b *models.RawBook, v string) { b.TextReviewsCount = v },
	"publication_date":   func(b *models.RawBook, v string) { b.PublicationDate = v },
	"publisher":          func(b *models.RawBook, v string) { b.Publisher = v },
	"source_url":         func(b *models.RawBook, v string) { b.SourceURL = v },
}

var requiredColumns = []string{"title", "authors", "average_rating"}

func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ToLower(strings.TrimSpace(name))
}

func loadCSV(r io.Reader) (*Catalog, *LoadStats, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("read csv header: empty file")
		}
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	setters := make([]func(*models.RawBook, string), len(header))
	present := make(map[string]bool, len(header))
	for i, name := range header {
		key := normalizeHeader(name)
		setters[i] = columns[key]
		present[key] = true
	}
	for _, name := range requiredColumns {
		if !present[name] {
			return nil, nil, fmt.Errorf("csv header missing required column %q", name)
		}
	}

	stats := newLoadStats()
	books := make([]*models.Book, 0, 1024)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			stats.Rows++
			stats.Skipped++
			slog.Debug("skipping malformed csv line", slog.Int("line", parseErr.Line), slog.Any("error", err))
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}

		stats.Rows++
		if len(record) != len(header) {
			stats.Skipped++
			line, _ := reader.FieldPos(0)
			slog.Debug("skipping csv line with wrong field count",
				slog.Int("line", line),
				slog.Int("fields", len(record)),
				slog.Int("want", len(header)),
			)
			continue
		}

		raw := &models.RawBook{}
		for i, value := range record {
			if setter := setters[i]; setter != nil {
				setter(raw, value)
			}
		}
		books = appendParsed(books, raw, stats)
	}

	return finish(books, stats)
}

func loadJSONL(r io.Reader) (*Catalog, *LoadStats, error) {
	scanner := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	stats := newLoadStats()
	books := make([]*models.Book, 0, 1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Rows++

		decoder := json.NewDecoder(strings.NewReader(line))
		decoder.UseNumber()
		var fields map[string]any
		if err := decoder.Decode(&fields); err != nil {
			stats.Skipped++
			slog.Debug("skipping malformed json line", slog.Int("line", lineNum), slog.Any("error", err))
			continue
		}

		raw := &models.RawBook{}
		for name, value := range fields {
			if setter := columns[normalizeHeader(name)]; setter != nil {
				setter(raw, jsonText(value))
			}
		}
		books = appendParsed(books, raw, stats)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read jsonl: %w", err)
	}

	return finish(books, stats)
}

func loadParquet(path string) (*Catalog, *LoadStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet: %w", err)
	}
	slog.Debug("parquet catalog opened", slog.Int64("num_rows", pf.NumRows()), slog.Int("row_groups", len(pf.RowGroups())))

	reader := parquet.NewGenericReader[models.ParquetRow](pf)
	defer reader.Close()

	stats := newLoadStats()
	books := make([]*models.Book, 0, pf.NumRows())
	rows := make([]models.ParquetRow, 128)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			stats.Rows++
			books = appendParsed(books, row.Raw(), stats)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}

	return finish(books, stats)
}

func appendParsed(books []*models.Book, raw *models.RawBook, stats *LoadStats) []*models.Book {
	book, err := parser.ParseBook(raw)
	if err != nil {
		stats.Dropped[parser.DropReason(err)]++
		return books
	}
	stats.Kept++
	return append(books, book)
}

func finish(books []*models.Book, stats *LoadStats) (*Catalog, *LoadStats, error) {
	slog.Debug("catalog loaded",
		slog.Int("rows", stats.Rows),
		slog.Int("kept", stats.Kept),
		slog.Int("skipped", stats.Skipped),
		slog.Any("dropped", stats.Dropped),
	)
	return New(books), stats, nil
}

func jsonText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}
