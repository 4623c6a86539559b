package models

import "strconv"

const parquetDateLayout = "2006-01-02"

// ParquetRow is the columnar layout used for catalog files in Parquet format.
// Column names follow the CSV header of the public books dataset.
type ParquetRow struct {
	BookID           string   `parquet:"bookID,optional"`
	Title            string   `parquet:"title,optional"`
	Authors          string   `parquet:"authors,optional"`
	AverageRating    *float64 `parquet:"average_rating,optional"`
	ISBN             string   `parquet:"isbn,optional"`
	ISBN13           string   `parquet:"isbn13,optional"`
	LanguageCode     string   `parquet:"language_code,optional"`
	NumPages         int64    `parquet:"num_pages,optional"`
	RatingsCount     int64    `parquet:"ratings_count,optional"`
	TextReviewsCount int64    `parquet:"text_reviews_count,optional"`
	PublicationDate  string   `parquet:"publication_date,optional"`
	Publisher        string   `parquet:"publisher,optional"`
	SourceURL        string   `parquet:"source_url,optional"`
}

// NewParquetRow converts a cleaned book to its columnar form.
func NewParquetRow(b *Book) ParquetRow {
	rating := b.AverageRating
	row := ParquetRow{
		BookID:           b.ID,
		Title:            b.Title,
		Authors:          b.Authors,
		AverageRating:    &rating,
		ISBN:             b.ISBN,
		ISBN13:           b.ISBN13,
		LanguageCode:     b.LanguageCode,
		NumPages:         int64(b.NumPages),
		RatingsCount:     int64(b.RatingsCount),
		TextReviewsCount: int64(b.TextReviewsCount),
		Publisher:        b.Publisher,
		SourceURL:        b.SourceURL,
	}
	if b.PublicationDate != nil {
		row.PublicationDate = b.PublicationDate.Format(parquetDateLayout)
	}
	return row
}

// Raw converts the row back to text fields so it goes through the same
// validation as CSV input.
func (r ParquetRow) Raw() *RawBook {
	raw := &RawBook{
		BookID:           r.BookID,
		Title:            r.Title,
		Authors:          r.Authors,
		ISBN:             r.ISBN,
		ISBN13:           r.ISBN13,
		LanguageCode:     r.LanguageCode,
		RatingsCount:     strconv.FormatInt(r.RatingsCount, 10),
		TextReviewsCount: strconv.FormatInt(r.TextReviewsCount, 10),
		PublicationDate:  r.PublicationDate,
		Publisher:        r.Publisher,
		SourceURL:        r.SourceURL,
	}
	if r.AverageRating != nil {
		raw.AverageRating = strconv.FormatFloat(*r.AverageRating, 'f', -1, 64)
	}
	if r.NumPages > 0 {
		raw.NumPages = strconv.FormatInt(r.NumPages, 10)
	}
	return raw
}
