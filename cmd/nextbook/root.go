package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-nextbook/catalog"
	"github.com/aluiziolira/go-nextbook/config"
)

// rootOptions carries the global flags and the configuration resolved from
// them to every subcommand.
type rootOptions struct {
	configPath  string
	catalogPath string
	verbose     bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "nextbook",
		Short: "Find books similar to a title or an author",
		Long: `nextbook ranks a book catalog by similarity to a title or an author.

Titles are compared by character sequence similarity, authors by the overlap
of their author sets. Results are ordered by similarity, then average rating.

Configuration is read from nextbook.yaml (or --config / NEXTBOOK_CONFIG) and
NEXTBOOK_* environment variables; a .env file in the working directory is
loaded first.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env file is fine.
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			override(cmd, "catalog", &cfg.Catalog.Path, opts.catalogPath)
			override(cmd, "verbose", &cfg.Log.Verbose, opts.verbose)

			logger, level := newLogger(cfg.Log.Verbose)
			slog.SetDefault(logger)
			slog.SetLogLoggerLevel(level.Level())

			opts.cfg = cfg
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default nextbook.yaml if present)")
	flags.StringVar(&opts.catalogPath, "catalog", config.DefaultConfig().Catalog.Path, "Catalog file (.csv, .jsonl or .parquet)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newRecommendCmd(opts),
		newServeCmd(opts),
		newHarvestCmd(opts),
		newStatsCmd(opts),
	)
	return cmd
}

// override copies value into dst when the named flag was set on the command
// line, so flags win over file and environment configuration.
func override[T any](cmd *cobra.Command, name string, dst *T, value T) {
	if cmd.Flags().Changed(name) {
		*dst = value
	}
}

// loadCatalog reads the configured catalog and logs what was dropped.
func loadCatalog(cfg *config.Config) (*catalog.Catalog, *catalog.LoadStats, error) {
	cat, stats, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog %s: %w", cfg.Catalog.Path, err)
	}
	slog.Info("catalog loaded",
		slog.String("path", cfg.Catalog.Path),
		slog.Int("books", stats.Kept),
		slog.Int("skipped", stats.Skipped),
		slog.Any("dropped", stats.Dropped),
	)
	return cat, stats, nil
}

// newLogger writes to stderr so that command output on stdout stays parseable.
func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
