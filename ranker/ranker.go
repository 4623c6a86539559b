// Package ranker scores catalog books against a title or author query and
// returns the best matches.
//
// Ranking is a pure read of the catalog: the same query over the same
// books always yields the same ordered result, and the books slice may be
// shared by concurrent callers.
package ranker

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aluiziolira/go-nextbook/models"
)

// ErrInvalidArgument reports a caller bug such as an unknown mode or a
// non-positive result count.
var ErrInvalidArgument = errors.New("ranker: invalid argument")

// Mode selects the field a query is compared against.
type Mode string

const (
	ByTitle  Mode = "title"
	ByAuthor Mode = "author"
)

// ParseMode converts s to a Mode, ignoring case and surrounding space.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ByTitle:
		return ByTitle, nil
	case ByAuthor:
		return ByAuthor, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q (want title or author)", ErrInvalidArgument, s)
	}
}

// Rank dispatches to RankByTitle or RankByAuthor.
func Rank(by Mode, query string, books []*models.Book, n int) ([]models.Recommendation, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidArgument, n)
	}
	switch by {
	case ByTitle:
		return RankByTitle(query, books, n), nil
	case ByAuthor:
		return RankByAuthor(query, books, n), nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q (want title or author)", ErrInvalidArgument, by)
	}
}

// RankByTitle scores every book by title similarity to query and returns the
// top n. A book whose clean title matches the query exactly is the queried
// book itself and is left out.
func RankByTitle(query string, books []*models.Book, n int) []models.Recommendation {
	scored := make([]models.Recommendation, 0, len(books))
	for _, b := range books {
		similarity := TitleSimilarity(query, b.CleanTitle)
		if similarity == 1.0 {
			continue
		}
		scored = append(scored, models.NewRecommendation(b, similarity))
	}
	return top(scored, n)
}

// RankByAuthor scores every book by the Jaccard index of its author set
// against the query's and returns the top n. Exact author matches are kept.
func RankByAuthor(query string, books []*models.Book, n int) []models.Recommendation {
	queryAuthors := ParseAuthors(query)
	scored := make([]models.Recommendation, 0, len(books))
	for _, b := range books {
		similarity := jaccard(queryAuthors, ParseAuthors(b.Authors))
		scored = append(scored, models.NewRecommendation(b, similarity))
	}
	return top(scored, n)
}

// top orders by similarity then rating, both descending, keeping catalog
// order among exact ties, and truncates to n.
func top(scored []models.Recommendation, n int) []models.Recommendation {
	if n <= 0 {
		return scored[:0]
	}
	slices.SortStableFunc(scored, func(a, b models.Recommendation) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(b.AverageRating, a.AverageRating)
	})
	if n < len(scored) {
		scored = scored[:n]
	}
	return scored
}
