package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-nextbook/models"
	"github.com/aluiziolira/go-nextbook/ranker"
)

func newRecommendCmd(opts *rootOptions) *cobra.Command {
	var (
		by     string
		n      int
		format string
	)

	cmd := &cobra.Command{
		Use:   "recommend QUERY",
		Short: "Rank the catalog by similarity to a title or an author",
		Example: `  # Five books with titles like Dune
  nextbook recommend Dune

  # Books sharing authors with Frank Herbert, as YAML
  nextbook recommend "Frank Herbert" --by author --n 3 --format yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			mode, err := ranker.ParseMode(by)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("n") {
				n = cfg.Recommend.DefaultN
			}
			if n < 1 || n > cfg.Recommend.MaxN {
				return fmt.Errorf("--n must be between 1 and %d, got %d", cfg.Recommend.MaxN, n)
			}
			if err := validateFormat(format); err != nil {
				return err
			}

			cat, _, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			recs, err := ranker.Rank(mode, query, cat.Books(), n)
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), format, recs, func(w io.Writer) error {
				return printRecommendations(w, query, mode, recs, cat.Len())
			})
		},
	}

	cmd.Flags().StringVar(&by, "by", string(ranker.ByTitle), "Compare against title or author")
	cmd.Flags().IntVarP(&n, "n", "n", 5, "Number of recommendations")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json or yaml")
	return cmd
}

func printRecommendations(w io.Writer, query string, mode ranker.Mode, recs []models.Recommendation, catalogSize int) error {
	if len(recs) == 0 {
		if catalogSize == 0 {
			_, err := fmt.Fprintln(w, "No recommendations: the catalog has no books to compare.")
			return err
		}
		_, err := fmt.Fprintf(w, "No recommendations for %q by %s.\n", query, mode)
		return err
	}

	fmt.Fprintf(w, "Books similar to %q by %s\n\n", query, mode)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tAUTHORS\tSIMILARITY\tRATING\tPUBLISHED")
	for i, r := range recs {
		published := "-"
		if r.PublicationDate != nil {
			published = r.PublicationDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%.2f\t%s\n", i+1, r.Title, r.Authors, r.Similarity, r.AverageRating, published)
	}
	return tw.Flush()
}
