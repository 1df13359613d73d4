// Package engine executes grouping plans against DuckDB and resolves the
// tables they read.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/shopspring/decimal"

	"duck-grouper/internal/config"
	"duck-grouper/internal/domain"
	"duck-grouper/internal/grouping"
)

// Engine runs SQL against a DuckDB connection pool and returns rows as
// records. The metadata column of grouping plans is decoded on the way out.
type Engine struct {
	db      *sql.DB
	logger  *slog.Logger
	timeout time.Duration
}

// New wraps an open DuckDB handle. A zero timeout disables the per-query
// deadline.
func New(db *sql.DB, logger *slog.Logger, timeout time.Duration) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{db: db, logger: logger, timeout: timeout}
}

// Open opens the DuckDB database named by cfg and applies its resource
// settings.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	db, err := sql.Open("duckdb", cfg.DuckDBPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	var settings []string
	if cfg.DuckDBThreads > 0 {
		settings = append(settings, fmt.Sprintf("SET threads = %d", cfg.DuckDBThreads))
	}
	if cfg.DuckDBMaxMemoryGB > 0 {
		settings = append(settings, fmt.Sprintf("SET memory_limit = '%dGB'", cfg.DuckDBMaxMemoryGB))
	}
	for _, stmt := range settings {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", stmt, err)
		}
	}

	e := New(db, logger, cfg.QueryTimeout)
	e.logger.Debug("duckdb opened", "path", cfg.DuckDBPath, "in_memory", cfg.InMemory())
	return e, nil
}

// DB returns the underlying handle.
func (e *Engine) DB() *sql.DB { return e.db }

// Close closes the underlying handle.
func (e *Engine) Close() error { return e.db.Close() }

// Run executes a grouping plan.
func (e *Engine) Run(ctx context.Context, plan *grouping.Plan) ([]domain.Record, error) {
	start := time.Now()
	records, err := e.Query(ctx, plan.SQL())
	if err != nil {
		return nil, fmt.Errorf("run %s plan on %s: %w", plan.Mode, plan.Table, err)
	}
	e.logger.Debug("plan executed",
		"mode", plan.Mode,
		"table", plan.Table,
		"rows", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return records, nil
}

// Query executes a statement and returns one record per row, keyed by column
// name.
func (e *Engine) Query(ctx context.Context, query string, args ...any) ([]domain.Record, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	return records, nil
}

func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := []domain.Record{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		data := make(map[string]any, len(cols))
		for i, col := range cols {
			if col == domain.MetadataField {
				meta, err := decodeMetadataValue(vals[i])
				if err != nil {
					return nil, err
				}
				data[col] = meta
				continue
			}
			data[col] = normalizeValue(vals[i])
		}
		records = append(records, domain.Record{Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeMetadataValue(v any) (*domain.GroupMetadata, error) {
	switch raw := v.(type) {
	case nil:
		return nil, nil
	case string:
		return grouping.DecodeMetadata([]byte(raw))
	case []byte:
		return grouping.DecodeMetadata(raw)
	default:
		return nil, fmt.Errorf("unexpected %s type %T", domain.MetadataField, v)
	}
}

// normalizeValue converts driver values into JSON-friendly Go values.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case duckdb.Decimal:
		if x.Value == nil {
			return nil
		}
		return decimal.NewFromBigInt(x.Value, -int32(x.Scale))
	default:
		return v
	}
}
