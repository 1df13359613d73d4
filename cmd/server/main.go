package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"duck-grouper/internal/api"
	"duck-grouper/internal/config"
	"duck-grouper/internal/engine"
	"duck-grouper/internal/middleware"
	"duck-grouper/internal/service/records"
)

const shutdownTimeout = 15 * time.Second

// newRouter assembles the middleware chain and mounts the API.
func newRouter(ctx context.Context, cfg *config.Config, svc api.GroupService, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimiter(ctx, middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	api.NewHandler(svc, logger).Routes(r)
	return r
}

// serviceOptions keeps file sources off unless ALLOW_FILE_SOURCES is set, and
// even then only plain local paths are served.
func serviceOptions(cfg *config.Config) []records.Option {
	fileSources := records.FileSourcesDisabled
	if cfg.AllowFileSources {
		fileSources = records.FileSourcesLocal
	}
	return []records.Option{
		records.WithFileSources(fileSources),
		records.WithMaxBatchSize(cfg.MaxBatchSize),
	}
}

// curlHostForListenAddr turns a listen address into a host usable in an
// example curl command.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func main() {
	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open duckdb", "error", err)
		os.Exit(1)
	}
	defer func() { _ = eng.Close() }()

	svc := records.NewService(eng, logger, cfg.BatchConcurrency, serviceOptions(cfg)...)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(ctx, cfg, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr, "duckdb", cfg.DuckDBPath)
		logger.Info("Try: curl -X POST -d '{\"table\":\"<table>\",\"columns\":[\"<column>\"]}' http://" +
			curlHostForListenAddr(cfg.ListenAddr) + "/v1/group")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}
