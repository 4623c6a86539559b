package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-nextbook/analytics"
	"github.com/aluiziolira/go-nextbook/catalog"
)

type statsReport struct {
	Catalog     string             `json:"catalog" yaml:"catalog"`
	Load        *catalog.LoadStats `json:"load" yaml:"load"`
	Books       int                `json:"books" yaml:"books"`
	TopTitles   []analytics.Count  `json:"top_titles" yaml:"top_titles"`
	TopAuthors  []analytics.Count  `json:"top_authors" yaml:"top_authors"`
	TitleWords  []analytics.Word   `json:"title_words" yaml:"title_words"`
	AuthorWords []analytics.Word   `json:"author_words" yaml:"author_words"`
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		top    int
		words  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the catalog: load results, frequent titles, authors and words",
		Example: `  nextbook stats --top 5
  nextbook stats --format json --words 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if !cmd.Flags().Changed("top") {
				top = cfg.Recommend.TopK
			}
			if top < 1 || words < 0 {
				return fmt.Errorf("--top must be positive and --words not negative")
			}
			if err := validateFormat(format); err != nil {
				return err
			}

			cat, stats, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			books := cat.Books()
			titleCounts := analytics.TopTitles(books, cat.Len())
			authorCounts := analytics.TopAuthors(books, cat.Len())
			report := statsReport{
				Catalog:     cfg.Catalog.Path,
				Load:        stats,
				Books:       cat.Len(),
				TopTitles:   firstN(titleCounts, top),
				TopAuthors:  firstN(authorCounts, top),
				TitleWords:  analytics.WordFrequencies(titleCounts, analytics.TitleStopwords(), words),
				AuthorWords: analytics.WordFrequencies(authorCounts, analytics.AuthorStopwords(), words),
			}

			return writeOutput(cmd.OutOrStdout(), format, report, func(w io.Writer) error {
				return printStats(w, report)
			})
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "Number of titles and authors to list")
	cmd.Flags().IntVar(&words, "words", 20, "Number of word cloud entries to list (0 for all)")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json or yaml")
	return cmd
}

func firstN(counts []analytics.Count, n int) []analytics.Count {
	if n < len(counts) {
		return counts[:n]
	}
	return counts
}

func printStats(w io.Writer, r statsReport) error {
	fmt.Fprintf(w, "Catalog %s: %d books (%d rows read, %d malformed)\n", r.Catalog, r.Books, r.Load.Rows, r.Load.Skipped)
	for _, reason := range slices.Sorted(maps.Keys(r.Load.Dropped)) {
		fmt.Fprintf(w, "  dropped %-16s %d\n", reason+":", r.Load.Dropped[reason])
	}

	printCounts(w, "Most frequent titles", r.TopTitles)
	printCounts(w, "Most frequent authors", r.TopAuthors)
	printWords(w, "Title words", r.TitleWords)
	printWords(w, "Author words", r.AuthorWords)
	return nil
}

func printCounts(w io.Writer, heading string, counts []analytics.Count) {
	fmt.Fprintf(w, "\n%s\n", heading)
	if len(counts) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, c := range counts {
		fmt.Fprintf(w, "  %2d. %-50s %d\n", i+1, c.Label, c.Count)
	}
}

func printWords(w io.Writer, heading string, words []analytics.Word) {
	fmt.Fprintf(w, "\n%s\n", heading)
	if len(words) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	parts := make([]string, 0, len(words))
	for _, word := range words {
		parts = append(parts, fmt.Sprintf("%s(%d)", word.Text, word.Weight))
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(parts, " "))
}
