package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/aluiziolira/go-nextbook/models"
)

func TestValidateBook(t *testing.T) {
	tests := []struct {
		name    string
		book    *models.RawBook
		wantErr error
	}{
		{
			name: "valid book",
			book: &models.RawBook{
				BookID:        "1",
				Title:         "Dune",
				Authors:       "Frank Herbert",
				AverageRating: "4.25",
			},
		},
		{
			name: "missing title",
			book: &models.RawBook{
				Title:         "  ",
				Authors:       "Frank Herbert",
				AverageRating: "4.25",
			},
			wantErr: ErrMissingTitle,
		},
		{
			name: "missing authors",
			book: &models.RawBook{
				Title:         "Dune",
				AverageRating: "4.25",
			},
			wantErr: ErrMissingAuthors,
		},
		{
			name: "missing rating",
			book: &models.RawBook{
				Title:   "Dune",
				Authors: "Frank Herbert",
			},
			wantErr: ErrMissingRating,
		},
		{
			name: "non numeric rating",
			book: &models.RawBook{
				Title:         "Dune",
				Authors:       "Frank Herbert",
				AverageRating: "NaN",
			},
			wantErr: ErrMissingRating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBook(tt.book)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateBook() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateBook() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBookNil(t *testing.T) {
	if err := ValidateBook(nil); err == nil {
		t.Fatal("expected error for nil book")
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Harry Potter and the Half-Blood Prince (Harry Potter  #6)", "Harry Potter and the Half-Blood Prince"},
		{"  Dune  ", "Dune"},
		{"The Hobbit (Middle-earth) (Illustrated)", "The Hobbit"},
		{"(Untitled)", ""},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.in); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseBook(t *testing.T) {
	raw := &models.RawBook{
		BookID:           " 42 ",
		Title:            " The Lord of the Rings (Boxed Set) ",
		Authors:          " J.R.R. Tolkien ",
		AverageRating:    "4.50",
		NumPages:         "1216",
		RatingsCount:     "1,000",
		TextReviewsCount: "12",
		PublicationDate:  "10/20/1955",
		Publisher:        " Allen & Unwin ",
	}

	book, err := ParseBook(raw)
	if err != nil {
		t.Fatalf("ParseBook: %v", err)
	}
	if book.ID != "42" {
		t.Fatalf("ID = %q, want 42", book.ID)
	}
	if book.Title != "The Lord of the Rings (Boxed Set)" {
		t.Fatalf("Title = %q", book.Title)
	}
	if book.CleanTitle != "The Lord of the Rings" {
		t.Fatalf("CleanTitle = %q", book.CleanTitle)
	}
	if book.Authors != "J.R.R. Tolkien" {
		t.Fatalf("Authors = %q", book.Authors)
	}
	if book.AverageRating != 4.5 {
		t.Fatalf("AverageRating = %v, want 4.5", book.AverageRating)
	}
	if book.NumPages != 1216 {
		t.Fatalf("NumPages = %d, want 1216", book.NumPages)
	}
	if book.RatingsCount != 0 {
		t.Fatalf("RatingsCount = %d, want 0 for unparsable count", book.RatingsCount)
	}
	if book.TextReviewsCount != 12 {
		t.Fatalf("TextReviewsCount = %d, want 12", book.TextReviewsCount)
	}
	want := time.Date(1955, time.October, 20, 0, 0, 0, 0, time.UTC)
	if book.PublicationDate == nil || !book.PublicationDate.Equal(want) {
		t.Fatalf("PublicationDate = %v, want %v", book.PublicationDate, want)
	}
	if book.Publisher != "Allen & Unwin" {
		t.Fatalf("Publisher = %q", book.Publisher)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9/16/2006", "2006-09-16"},
		{"2006-09-16", "2006-09-16"},
		{"September 16, 2006", "2006-09-16"},
		{"11/31/2000", ""},
		{"", ""},
		{"not a date", ""},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in)
		if tt.want == "" {
			if got != nil {
				t.Errorf("ParseDate(%q) = %v, want nil", tt.in, got)
			}
			continue
		}
		if got == nil || got.Format("2006-01-02") != tt.want {
			t.Errorf("ParseDate(%q) = %v, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseNumbers(t *testing.T) {
	if got := ParseCount("2095690"); got != 2095690 {
		t.Fatalf("ParseCount = %d", got)
	}
	if got := ParseCount("-3"); got != 0 {
		t.Fatalf("ParseCount(-3) = %d, want 0", got)
	}
	if got := ParsePositive("412.0"); got != 412 {
		t.Fatalf("ParsePositive(412.0) = %d, want 412", got)
	}
	if got := ParsePositive("0"); got != 0 {
		t.Fatalf("ParsePositive(0) = %d, want 0", got)
	}
	if got := ParsePositive("12.5"); got != 0 {
		t.Fatalf("ParsePositive(12.5) = %d, want 0", got)
	}
}

func TestDropReason(t *testing.T) {
	if got := DropReason(ValidateBook(&models.RawBook{})); got != "missing_title" {
		t.Fatalf("DropReason = %q, want missing_title", got)
	}
	if got := DropReason(errors.New("boom")); got != "invalid_record" {
		t.Fatalf("DropReason = %q, want invalid_record", got)
	}
	if got := DropReason(nil); got != "" {
		t.Fatalf("DropReason(nil) = %q, want empty", got)
	}
}
