// Package analytics derives the chart data shown next to recommendations:
// rating comparisons, most frequent titles and authors, and word-cloud weights.
package analytics

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/aluiziolira/go-nextbook/models"
)

// Bar is one labelled value of a bar chart.
type Bar struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

// Count is a label with the number of catalog records carrying it.
type Count struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// Word is a word-cloud entry.
type Word struct {
	Text   string `json:"text" yaml:"text"`
	Weight int    `json:"weight" yaml:"weight"`
}

// Dashboard bundles every chart for one request.
type Dashboard struct {
	Ratings     []Bar   `json:"ratings" yaml:"ratings"`
	TopTitles   []Count `json:"top_titles" yaml:"top_titles"`
	TopAuthors  []Count `json:"top_authors" yaml:"top_authors"`
	TitleWords  []Word  `json:"title_words" yaml:"title_words"`
	AuthorWords []Word  `json:"author_words" yaml:"author_words"`
}

// cloudSize caps the number of words returned for a word cloud.
const cloudSize = 200

// Build assembles the dashboard for a catalog and the recommendations shown with it.
func Build(books []*models.Book, recs []models.Recommendation, top int) Dashboard {
	titleCounts := countBy(books, func(b *models.Book) string { return b.Title })
	authorCounts := countBy(books, func(b *models.Book) string { return b.Authors })

	return Dashboard{
		Ratings:     RatingComparison(recs),
		TopTitles:   truncate(titleCounts, top),
		TopAuthors:  truncate(authorCounts, top),
		TitleWords:  WordFrequencies(titleCounts, TitleStopwords(), cloudSize),
		AuthorWords: WordFrequencies(authorCounts, AuthorStopwords(), cloudSize),
	}
}

// RatingComparison returns one bar per recommendation, in recommendation order.
func RatingComparison(recs []models.Recommendation) []Bar {
	bars := make([]Bar, 0, len(recs))
	for _, r := range recs {
		bars = append(bars, Bar{Label: r.Title, Value: r.AverageRating})
	}
	return bars
}

// TopTitles counts records per title and returns the k most frequent.
func TopTitles(books []*models.Book, k int) []Count {
	return truncate(countBy(books, func(b *models.Book) string { return b.Title }), k)
}

// TopAuthors counts records per authors field and returns the k most frequent.
func TopAuthors(books []*models.Book, k int) []Count {
	return truncate(countBy(books, func(b *models.Book) string { return b.Authors }), k)
}

// countBy returns every distinct key with its count, most frequent first and
// alphabetical among equal counts.
func countBy(books []*models.Book, key func(*models.Book) string) []Count {
	index := make(map[string]int)
	counts := make([]Count, 0)
	for _, b := range books {
		label := key(b)
		if i, ok := index[label]; ok {
			counts[i].Count++
			continue
		}
		index[label] = len(counts)
		counts = append(counts, Count{Label: label, Count: 1})
	}
	slices.SortFunc(counts, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Label, b.Label)
	})
	return counts
}

func truncate(counts []Count, k int) []Count {
	if k <= 0 {
		return []Count{}
	}
	if k < len(counts) {
		return counts[:k]
	}
	return counts
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_][\p{L}\p{N}_']*`)

// WordFrequencies turns label counts into word-cloud weights: each word of
// a label is weighted by the label's count. Words are lowercased, a
// trailing possessive is removed, and numbers and stopwords are skipped.
func WordFrequencies(counts []Count, stopwords map[string]struct{}, k int) []Word {
	weights := make(map[string]int)
	for _, c := range counts {
		for _, token := range wordPattern.FindAllString(strings.ToLower(c.Label), -1) {
			token = strings.TrimSuffix(token, "'s")
			token = strings.Trim(token, "'")
			if token == "" || isNumeric(token) {
				continue
			}
			if _, stop := stopwords[token]; stop {
				continue
			}
			weights[token] += c.Count
		}
	}

	words := make([]Word, 0, len(weights))
	for text, weight := range weights {
		words = append(words, Word{Text: text, Weight: weight})
	}
	slices.SortFunc(words, func(a, b Word) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return strings.Compare(a.Text, b.Text)
	})
	if k > 0 && k < len(words) {
		words = words[:k]
	}
	return words
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
