package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"duck-grouper/internal/domain"
	"duck-grouper/internal/duckdbsql"
	"duck-grouper/internal/grouping"
)

// DefaultSchema is used when a table is looked up without a schema.
const DefaultSchema = "main"

// LookupTable describes a DuckDB table or view by name. The column list comes
// from information_schema in ordinal order.
func (e *Engine) LookupTable(ctx context.Context, schema, name string) (*grouping.StaticTable, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrValidation("table name is required")
	}
	if schema == "" {
		schema = DefaultSchema
	}

	rows, err := e.Query(ctx, `SELECT column_name FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("lookup table %s.%s: %w", schema, name, err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound("table %q not found in schema %q", name, schema)
	}

	columns := make([]string, len(rows))
	for i, r := range rows {
		columns[i] = fmt.Sprint(r.Data["column_name"])
	}
	return &grouping.StaticTable{
		Label:       schema + "." + name,
		Source:      &duckdbsql.TableName{Schema: schema, Name: name},
		ColumnNames: columns,
	}, nil
}

// readerFor maps a file extension to the DuckDB table function that reads it.
func readerFor(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".gz")))
	switch ext {
	case ".parquet":
		return "read_parquet", nil
	case ".csv", ".tsv":
		return "read_csv_auto", nil
	case ".json", ".jsonl", ".ndjson":
		return "read_json_auto", nil
	default:
		return "", domain.ErrValidation("unsupported file type %q for %s", ext, path)
	}
}

// FileTable describes a parquet, CSV, or JSON file read through DuckDB's
// table functions. Local paths must exist; remote URLs and globs are passed
// through to DuckDB.
func (e *Engine) FileTable(ctx context.Context, path string) (*grouping.StaticTable, error) {
	reader, err := readerFor(path)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(path, "://") && !strings.ContainsAny(path, "*?[") {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, domain.ErrNotFound("file %q not found", path)
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	ref := &duckdbsql.FuncTable{Func: duckdbsql.Func(reader, duckdbsql.String(path))}
	columns, err := e.describe(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", path, err)
	}
	return &grouping.StaticTable{Label: path, Source: ref, ColumnNames: columns}, nil
}

// describe returns the column names ref produces, without reading rows.
func (e *Engine) describe(ctx context.Context, ref duckdbsql.TableRef) ([]string, error) {
	stmt := duckdbsql.SelectFrom(ref, duckdbsql.Star())
	stmt.Body.Limit = duckdbsql.Int(0)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	rows, err := e.db.QueryContext(ctx, duckdbsql.Format(stmt))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	return rows.Columns()
}
