package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the settings of every nextbook command.
type Config struct {
	Catalog   CatalogConfig   `koanf:"catalog"`
	Recommend RecommendConfig `koanf:"recommend"`
	Server    ServerConfig    `koanf:"server"`
	Harvest   HarvestConfig   `koanf:"harvest"`
	Log       LogConfig       `koanf:"log"`
}

// CatalogConfig points at the catalog file loaded at startup.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// RecommendConfig bounds recommendation requests.
type RecommendConfig struct {
	DefaultN  int `koanf:"default_n"`
	MaxN      int `koanf:"max_n"`
	TopK      int `koanf:"top_k"`
	CacheSize int `koanf:"cache_size"`
}

// ServerConfig configures the HTTP presentation layer.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// HarvestConfig holds crawler and pipeline settings for catalog harvesting.
type HarvestConfig struct {
	BaseURL            string        `koanf:"base_url"`
	MaxPages           int           `koanf:"max_pages"`
	Parallelism        int           `koanf:"parallelism"`
	Delay              time.Duration `koanf:"delay"`
	RandomDelay        time.Duration `koanf:"random_delay"`
	Timeout            time.Duration `koanf:"timeout"`
	MaxRetries         int           `koanf:"max_retries"`
	RetryBackoff       time.Duration `koanf:"retry_backoff"`
	RetryBackoffMax    time.Duration `koanf:"retry_backoff_max"`
	PipelineBufferSize int           `koanf:"pipeline_buffer_size"`
	BatchSize          int           `koanf:"batch_size"`
	DedupeMaxSize      int           `koanf:"dedupe_max_size"`
	OutputFile         string        `koanf:"output_file"`
	OutputFormat       string        `koanf:"output_format"` // csv, json, dual, or parquet
	UserAgent          string        `koanf:"user_agent"`
	RespectRobotsTxt   bool          `koanf:"respect_robots_txt"`
	MetricsAddr        string        `koanf:"metrics_addr"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Verbose bool `koanf:"verbose"`
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path: "books.csv",
		},
		Recommend: RecommendConfig{
			DefaultN:  5,
			MaxN:      10,
			TopK:      10,
			CacheSize: 512,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Harvest: *DefaultHarvestConfig(),
	}
}

// DefaultHarvestConfig returns crawler defaults.
func DefaultHarvestConfig() *HarvestConfig {
	return &HarvestConfig{
		BaseURL:            "http://localhost:8000/",
		MaxPages:           50,
		Parallelism:        16,
		Delay:              0,
		RandomDelay:        0,
		Timeout:            10 * time.Second,
		MaxRetries:         2,
		RetryBackoff:       200 * time.Millisecond,
		RetryBackoffMax:    2 * time.Second,
		PipelineBufferSize: 512,
		BatchSize:          64,
		DedupeMaxSize:      100000,
		OutputFile:         "output/books.csv",
		OutputFormat:       "csv",
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt:   false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Catalog.Path) == "" {
		return fmt.Errorf("catalog path cannot be empty")
	}
	if err := c.Recommend.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Harvest.Validate()
}

// Validate checks recommendation bounds.
func (c *RecommendConfig) Validate() error {
	if c.MaxN <= 0 {
		return fmt.Errorf("max n must be positive")
	}
	if c.DefaultN <= 0 {
		return fmt.Errorf("default n must be positive")
	}
	if c.DefaultN > c.MaxN {
		return fmt.Errorf("default n (%d) cannot exceed max n (%d)", c.DefaultN, c.MaxN)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top k must be positive")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	return nil
}

// Validate checks server settings.
func (c *ServerConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("server addr cannot be empty")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive")
	}
	return nil
}

// Validate checks crawler and pipeline settings.
func (c *HarvestConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "dual", "parquet":
	default:
		return fmt.Errorf("output format must be csv, json, dual, or parquet")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
