// Package models defines data structures shared by the catalog, ranker and harvester.
package models

import "time"

// RawBook is a catalog row before coercion. Every field is kept as the text
// found in the source (CSV cell, JSON value or scraped HTML).
type RawBook struct {
	BookID           string `json:"bookID"`
	Title            string `json:"title"`
	Authors          string `json:"authors"`
	AverageRating    string `json:"average_rating"`
	ISBN             string `json:"isbn"`
	ISBN13           string `json:"isbn13"`
	LanguageCode     string `json:"language_code"`
	NumPages         string `json:"num_pages"`
	RatingsCount     string `json:"ratings_count"`
	TextReviewsCount string `json:"text_reviews_count"`
	PublicationDate  string `json:"publication_date"`
	Publisher        string `json:"publisher"`
	SourceURL        string `json:"source_url,omitempty"`
}

// Book is a cleaned catalog record. It is never mutated once it is part of a catalog.
type Book struct {
	ID               string     `json:"book_id"`
	Title            string     `json:"title"`
	CleanTitle       string     `json:"-"`
	Authors          string     `json:"authors"`
	AverageRating    float64    `json:"average_rating"`
	ISBN             string     `json:"isbn,omitempty"`
	ISBN13           string     `json:"isbn13,omitempty"`
	LanguageCode     string     `json:"language_code,omitempty"`
	NumPages         int        `json:"num_pages,omitempty"`
	RatingsCount     int        `json:"ratings_count"`
	TextReviewsCount int        `json:"text_reviews_count"`
	PublicationDate  *time.Time `json:"publication_date,omitempty"`
	Publisher        string     `json:"publisher,omitempty"`
	SourceURL        string     `json:"source_url,omitempty"`
}

// Recommendation is a read-only projection of a Book with its similarity to a query.
type Recommendation struct {
	BookID          string     `json:"book_id" yaml:"book_id"`
	Title           string     `json:"title" yaml:"title"`
	Authors         string     `json:"authors" yaml:"authors"`
	Similarity      float64    `json:"similarity" yaml:"similarity"`
	AverageRating   float64    `json:"average_rating" yaml:"average_rating"`
	PublicationDate *time.Time `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	RatingsCount    int        `json:"ratings_count" yaml:"ratings_count"`
	NumPages        int        `json:"num_pages,omitempty" yaml:"num_pages,omitempty"`
}

// NewRecommendation projects b with the given similarity score.
func NewRecommendation(b *Book, similarity float64) Recommendation {
	return Recommendation{
		BookID:          b.ID,
		Title:           b.Title,
		Authors:         b.Authors,
		Similarity:      similarity,
		AverageRating:   b.AverageRating,
		PublicationDate: b.PublicationDate,
		RatingsCount:    b.RatingsCount,
		NumPages:        b.NumPages,
	}
}

// HarvestResult holds the overall result of a harvesting run.
type HarvestResult struct {
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
	PageCount    int
}
