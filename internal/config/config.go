// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the engine, the HTTP API, and the CLI.
type Config struct {
	DuckDBPath        string        // DuckDB database file; empty means in-memory
	DuckDBThreads     int           // DuckDB worker threads; 0 leaves the engine default
	DuckDBMaxMemoryGB int           // DuckDB memory_limit in GB; 0 leaves the engine default
	ListenAddr        string        // HTTP listen address (default ":8080")
	LogLevel          string        // log level: debug, info, warn, error (default "info")
	LogFormat         string        // log format: json (default) or text
	QueryTimeout      time.Duration // per-query timeout (default 30s); 0 disables
	BatchConcurrency  int           // concurrent requests per batch (default 4)
	MaxBatchSize      int           // requests accepted in one batch (default 100)

	// AllowFileSources lets API requests read local files by path. URLs and
	// glob patterns stay rejected. The CLI always allows file sources.
	AllowFileSources bool

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// InMemory reports whether DuckDB runs without a database file.
func (c *Config) InMemory() bool {
	return c.DuckDBPath == ""
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		ListenAddr:         ":8080",
		LogLevel:           "info",
		LogFormat:          "json",
		QueryTimeout:       30 * time.Second,
		BatchConcurrency:   4,
		MaxBatchSize:       100,
		RateLimitRPS:       100,
		RateLimitBurst:     200,
		CORSAllowedOrigins: []string{"*"},
	}
}

// LoadFromEnv loads configuration from environment variables. Unset variables
// keep their defaults; malformed numeric values are errors.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	cfg.DuckDBPath = os.Getenv("DUCKDB_PATH")

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch strings.ToLower(v) {
		case "json", "text":
			cfg.LogFormat = strings.ToLower(v)
		default:
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("LOG_FORMAT %q is not supported, using json", v))
		}
	}

	var err error
	if cfg.DuckDBThreads, err = intEnv("DUCKDB_THREADS", 0); err != nil {
		return nil, err
	}
	if cfg.DuckDBMaxMemoryGB, err = intEnv("DUCKDB_MAX_MEMORY_GB", 0); err != nil {
		return nil, err
	}
	if cfg.BatchConcurrency, err = intEnv("BATCH_CONCURRENCY", cfg.BatchConcurrency); err != nil {
		return nil, err
	}
	if cfg.MaxBatchSize, err = intEnv("BATCH_MAX_SIZE", cfg.MaxBatchSize); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(os.Getenv("ALLOW_FILE_SOURCES")); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("ALLOW_FILE_SOURCES must be a boolean, got %q", v)
		}
		cfg.AllowFileSources = allow
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("RATE_LIMIT_RPS must be a positive number, got %q", v)
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("QUERY_TIMEOUT must be a non-negative duration, got %q", v)
		}
		cfg.QueryTimeout = d
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	if cfg.BatchConcurrency < 1 {
		return nil, fmt.Errorf("BATCH_CONCURRENCY must be at least 1, got %d", cfg.BatchConcurrency)
	}
	if cfg.MaxBatchSize < 1 {
		return nil, fmt.Errorf("BATCH_MAX_SIZE must be at least 1, got %d", cfg.MaxBatchSize)
	}
	if cfg.DuckDBThreads < 0 || cfg.DuckDBMaxMemoryGB < 0 {
		return nil, fmt.Errorf("DUCKDB_THREADS and DUCKDB_MAX_MEMORY_GB must not be negative")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.InMemory() {
		cfg.Warnings = append(cfg.Warnings, "DUCKDB_PATH not set, using an in-memory database")
	}

	return cfg, nil
}

func intEnv(key string, defaultVal int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
