package ranker

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// TitleSimilarity returns the matching-blocks ratio of a and b, compared
// case-insensitively rune by rune. It is 1.0 for identical strings and 0.0
// when they share no characters.
func TitleSimilarity(a, b string) float64 {
	matcher := difflib.NewMatcher(runes(strings.ToLower(a)), runes(strings.ToLower(b)))
	return matcher.Ratio()
}

// AuthorSimilarity returns the Jaccard index of the two author sets, or 0
// when both are empty.
func AuthorSimilarity(a, b string) float64 {
	return jaccard(ParseAuthors(a), ParseAuthors(b))
}

// ParseAuthors splits a comma or slash delimited author list into a set of
// lowercase names. Empty segments are dropped.
func ParseAuthors(s string) map[string]struct{} {
	normalized := strings.ReplaceAll(strings.ToLower(s), "/", ",")
	set := make(map[string]struct{})
	for _, name := range strings.Split(normalized, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for name := range a {
		if _, ok := b[name]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// runes splits s into one element per code point, the unit the matcher compares.
func runes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}
