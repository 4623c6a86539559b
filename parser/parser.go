package parser

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-nextbook/models"
)

var (
	// ErrMissingTitle is returned for rows with an empty title.
	ErrMissingTitle = errors.New("book missing title")
	// ErrMissingAuthors is returned for rows with an empty authors field.
	ErrMissingAuthors = errors.New("book missing authors")
	// ErrMissingRating is returned for rows whose average rating is absent or not a number.
	ErrMissingRating = errors.New("book missing average rating")
)

var parenthesized = regexp.MustCompile(`\(.*\)`)

// dateLayouts are tried in order; the first is the form used by the public books dataset.
var dateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
	"2006",
}

// ValidateBook ensures the row carries the fields every catalog record needs.
func ValidateBook(b *models.RawBook) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return ErrMissingTitle
	}
	if strings.TrimSpace(b.Authors) == "" {
		return fmt.Errorf("%w: %s", ErrMissingAuthors, b.Title)
	}
	if _, ok := ParseRating(b.AverageRating); !ok {
		return fmt.Errorf("%w: %s", ErrMissingRating, b.Title)
	}
	return nil
}

// ParseBook validates raw and coerces it into a Book.
func ParseBook(raw *models.RawBook) (*models.Book, error) {
	if err := ValidateBook(raw); err != nil {
		return nil, err
	}

	rating, _ := ParseRating(raw.AverageRating)
	title := strings.TrimSpace(raw.Title)

	return &models.Book{
		ID:               strings.TrimSpace(raw.BookID),
		Title:            title,
		CleanTitle:       CleanTitle(title),
		Authors:          strings.TrimSpace(raw.Authors),
		AverageRating:    rating,
		ISBN:             strings.TrimSpace(raw.ISBN),
		ISBN13:           strings.TrimSpace(raw.ISBN13),
		LanguageCode:     strings.TrimSpace(raw.LanguageCode),
		NumPages:         ParsePositive(raw.NumPages),
		RatingsCount:     ParseCount(raw.RatingsCount),
		TextReviewsCount: ParseCount(raw.TextReviewsCount),
		PublicationDate:  ParseDate(raw.PublicationDate),
		Publisher:        strings.TrimSpace(raw.Publisher),
		SourceURL:        strings.TrimSpace(raw.SourceURL),
	}, nil
}

// CleanTitle strips a parenthesized suffix such as a series annotation.
func CleanTitle(title string) string {
	return strings.TrimSpace(parenthesized.ReplaceAllString(title, ""))
}

// ParseRating parses an average rating. NaN and infinities are rejected.
func ParseRating(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// ParseCount parses a non-negative count, defaulting to 0.
func ParseCount(text string) int {
	value, ok := parseInt(text)
	if !ok || value < 0 {
		return 0
	}
	return value
}

// ParsePositive parses an optional positive integer; 0 means absent.
func ParsePositive(text string) int {
	value, ok := parseInt(text)
	if !ok || value <= 0 {
		return 0
	}
	return value
}

// ParseDate returns nil when the text is empty or matches no known layout.
func ParseDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return &parsed
		}
	}
	return nil
}

// DropReason maps a validation error to a short label used in load statistics.
func DropReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingTitle):
		return "missing_title"
	case errors.Is(err, ErrMissingAuthors):
		return "missing_authors"
	case errors.Is(err, ErrMissingRating):
		return "missing_rating"
	default:
		return "invalid_record"
	}
}

func parseInt(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if value, err := strconv.Atoi(text); err == nil {
		return value, true
	}
	// Spreadsheet exports write integer columns as "412.0".
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
