package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-nextbook/config"
	"github.com/aluiziolira/go-nextbook/models"
	"github.com/aluiziolira/go-nextbook/pipeline"
	"github.com/aluiziolira/go-nextbook/scraper"
)

func newHarvestCmd(opts *rootOptions) *cobra.Command {
	defaults := config.DefaultHarvestConfig()
	flagCfg := *defaults

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Crawl a paginated catalog site into a catalog file",
		Long: `Crawls listing pages starting at --base-url, following "next" links up to
--pages pages. Every article.book entry is validated, de-duplicated by book ID
and written in a format that the other commands can load with --catalog.`,
		Example: `  nextbook harvest --base-url http://localhost:8000/ --pages 20 --output data/books.csv

  # Parquet output with metrics on :9090
  nextbook harvest --format parquet --output data/books.parquet --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &opts.cfg.Harvest
			applyHarvestFlags(cmd, cfg, &flagCfg)
			cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid harvest configuration: %w", err)
			}
			return runHarvest(cmd.Context(), cmd.OutOrStdout(), cfg, opts.cfg.Log.Verbose)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&flagCfg.BaseURL, "base-url", defaults.BaseURL, "Base URL to crawl")
	flags.IntVar(&flagCfg.MaxPages, "pages", defaults.MaxPages, "Maximum catalog pages to crawl")
	flags.IntVar(&flagCfg.Parallelism, "parallel", defaults.Parallelism, "Number of concurrent requests and pipeline workers")
	flags.DurationVar(&flagCfg.Delay, "delay", defaults.Delay, "Delay between requests")
	flags.DurationVar(&flagCfg.RandomDelay, "random-delay", defaults.RandomDelay, "Random jitter added to delay")
	flags.IntVar(&flagCfg.MaxRetries, "max-retries", defaults.MaxRetries, "Maximum retry attempts per URL")
	flags.DurationVar(&flagCfg.RetryBackoff, "retry-backoff", defaults.RetryBackoff, "Initial retry backoff")
	flags.DurationVar(&flagCfg.RetryBackoffMax, "retry-backoff-max", defaults.RetryBackoffMax, "Maximum retry backoff")
	flags.BoolVar(&flagCfg.RespectRobotsTxt, "respect-robots", defaults.RespectRobotsTxt, "Respect robots.txt directives")
	flags.StringVarP(&flagCfg.OutputFile, "output", "o", defaults.OutputFile, "Output file path")
	flags.StringVar(&flagCfg.OutputFormat, "format", defaults.OutputFormat, "Output format: csv, json, dual or parquet")
	flags.StringVar(&flagCfg.MetricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	return cmd
}

// applyHarvestFlags copies explicitly set flags over the loaded configuration.
func applyHarvestFlags(cmd *cobra.Command, cfg, flagCfg *config.HarvestConfig) {
	override(cmd, "base-url", &cfg.BaseURL, flagCfg.BaseURL)
	override(cmd, "pages", &cfg.MaxPages, flagCfg.MaxPages)
	override(cmd, "parallel", &cfg.Parallelism, flagCfg.Parallelism)
	override(cmd, "delay", &cfg.Delay, flagCfg.Delay)
	override(cmd, "random-delay", &cfg.RandomDelay, flagCfg.RandomDelay)
	override(cmd, "max-retries", &cfg.MaxRetries, flagCfg.MaxRetries)
	override(cmd, "retry-backoff", &cfg.RetryBackoff, flagCfg.RetryBackoff)
	override(cmd, "retry-backoff-max", &cfg.RetryBackoffMax, flagCfg.RetryBackoffMax)
	override(cmd, "respect-robots", &cfg.RespectRobotsTxt, flagCfg.RespectRobotsTxt)
	override(cmd, "output", &cfg.OutputFile, flagCfg.OutputFile)
	override(cmd, "format", &cfg.OutputFormat, flagCfg.OutputFormat)
	override(cmd, "metrics-addr", &cfg.MetricsAddr, flagCfg.MetricsAddr)
}

func runHarvest(ctx context.Context, out io.Writer, cfg *config.HarvestConfig, verbose bool) error {
	slog.Info("starting harvest",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.MaxPages),
		slog.Int("workers", cfg.Parallelism),
		slog.String("format", cfg.OutputFormat),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialise scraper: %w", err)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	writerClosed := false
	defer func() {
		if writerClosed {
			return
		}
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(cfg.Parallelism)
	if verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	result, err := s.Run(ctx, p)
	if err != nil {
		p.Close()
		return fmt.Errorf("harvest failed: %w", err)
	}
	if ctx.Err() != nil {
		slog.Info("shutdown signal received, flushing harvested records")
	}

	if err := p.Close(); err != nil {
		return fmt.Errorf("pipeline shutdown: %w", err)
	}

	// Parquet writes its footer on Close, so close before validating.
	writerClosed = true
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("output validation: %w", err)
	}

	duration := time.Since(startTime)
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(result.TotalCount) / duration.Seconds()
	}

	printSummary(out, result, p.Stats(), duration, itemsPerSec, cfg.OutputFile)
	return nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "parquet":
		return pipeline.NewParquetWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(w io.Writer, result *models.HarvestResult, stats pipeline.Stats, duration time.Duration, itemsPerSec float64, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Harvest complete")

	fmt.Fprintf(w, "  Books written: %d\n", stats.Written)
	fmt.Fprintf(w, "  Requests:      %d\n", result.RequestCount)
	successRate := 0.0
	if result.RequestCount > 0 {
		successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
	}
	fmt.Fprintf(w, "  Success rate:  %.2f%%\n", successRate)
	fmt.Fprintf(w, "  Errors:        %d\n", result.ErrorCount)
	fmt.Fprintf(w, "  Retries:       %d\n", result.RetryCount)
	fmt.Fprintf(w, "  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(w, "  Error types:   %v\n", result.ErrorsByType)
	}
	if len(stats.Dropped) > 0 {
		fmt.Fprintf(w, "  Dropped:       %v\n", stats.Dropped)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Books/sec:     %.2f\n", itemsPerSec)
	fmt.Fprintf(w, "  Output file:   %s\n", outputFile)
	fmt.Fprintln(w, separator)
}
