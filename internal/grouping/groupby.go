// Package grouping builds grouping query plans and reduces the per-row group
// metadata those plans produce back into a sorted list of groups.
//
// A plan partitions the rows of a table under one of three strategies:
//
//   - distinct:   exact equality of all grouping columns
//   - magnitude:  power-of-ten buckets over a single numeric column
//   - percentile: N cumulative-distribution bands over the grouping columns
//
// Every output row carries the original columns plus a metadata object under
// domain.MetadataField. ExtractGroupMetadata strips that object from each
// record and returns the deduplicated groups.
package grouping

import (
	"strings"

	"duck-grouper/internal/domain"
	"duck-grouper/internal/duckdbsql"
)

// MaxNumGroups caps percentile bands. Each band is one CASE branch in the plan.
const MaxNumGroups = 10000

// Table is a tabular source that can be grouped.
type Table interface {
	// Name identifies the table in messages and logs.
	Name() string
	// Ref is how the table appears in a FROM clause.
	Ref() duckdbsql.TableRef
	// Columns lists the table's column names in table order.
	Columns() []string
}

// StaticTable is a Table described up front.
type StaticTable struct {
	Label       string
	Source      duckdbsql.TableRef
	ColumnNames []string
}

// NewStaticTable describes a plain named table with the given columns.
func NewStaticTable(name string, columns ...string) *StaticTable {
	return &StaticTable{
		Label:       name,
		Source:      &duckdbsql.TableName{Name: name},
		ColumnNames: columns,
	}
}

// Name returns the table label.
func (t *StaticTable) Name() string { return t.Label }

// Ref returns the FROM clause reference.
func (t *StaticTable) Ref() duckdbsql.TableRef { return t.Source }

// Columns returns the column names.
func (t *StaticTable) Columns() []string { return t.ColumnNames }

// Column is a grouping column resolved against a table.
type Column struct {
	Name string
}

// Expr returns the column as an expression.
func (c Column) Expr() duckdbsql.Expr {
	return duckdbsql.Col(c.Name)
}

func columnExprs(columns []Column) []duckdbsql.Expr {
	exprs := make([]duckdbsql.Expr, len(columns))
	for i, c := range columns {
		exprs[i] = c.Expr()
	}
	return exprs
}

// GroupBy describes how to group a table. Column order is significant: it is
// the window ordering key and the tie-break for first/last value snapshots.
type GroupBy struct {
	columns   []string
	mode      domain.GroupMode
	numGroups int
}

// NewGroupBy returns a grouping specification. It is validated lazily, by
// Validate or ResolveColumns.
func NewGroupBy(columns []string, mode domain.GroupMode, numGroups int) GroupBy {
	return GroupBy{
		columns:   append([]string(nil), columns...),
		mode:      mode,
		numGroups: numGroups,
	}
}

// Distinct groups rows by exact equality of columns.
func Distinct(columns ...string) GroupBy {
	return NewGroupBy(columns, domain.GroupModeDistinct, 0)
}

// Magnitude groups rows of a numeric column into power-of-ten buckets.
func Magnitude(column string) GroupBy {
	return NewGroupBy([]string{column}, domain.GroupModeMagnitude, 0)
}

// Percentile groups rows into numGroups cumulative-distribution bands.
func Percentile(numGroups int, columns ...string) GroupBy {
	return NewGroupBy(columns, domain.GroupModePercentile, numGroups)
}

// Columns returns a copy of the grouping column names.
func (g GroupBy) Columns() []string { return append([]string(nil), g.columns...) }

// Mode returns the bucketing strategy.
func (g GroupBy) Mode() domain.GroupMode { return g.mode }

// NumGroups returns the requested number of percentile groups.
func (g GroupBy) NumGroups() int { return g.numGroups }

// Ranged reports whether the strategy buckets values into ranges.
func (g GroupBy) Ranged() bool { return g.mode != domain.GroupModeDistinct }

// Validate checks the specification without looking at any table.
func (g GroupBy) Validate() error {
	if !g.mode.Valid() {
		_, err := domain.ParseGroupMode(string(g.mode))
		return err
	}
	if len(g.columns) == 0 {
		return domain.ErrBadGroupFormat("at least one group column is required")
	}
	if g.mode == domain.GroupModePercentile && g.numGroups < 1 {
		return domain.ErrBadGroupFormat("percentile mode requires a positive integer num_groups")
	}
	if g.mode == domain.GroupModePercentile && g.numGroups > MaxNumGroups {
		return domain.ErrBadGroupFormat("num_groups must be at most %d, got %d", MaxNumGroups, g.numGroups)
	}
	if g.mode == domain.GroupModeMagnitude && len(g.columns) != 1 {
		return domain.ErrBadGroupFormat("magnitude mode only works on single columns")
	}
	for _, col := range g.columns {
		if strings.TrimSpace(col) == "" {
			return domain.ErrBadGroupFormat("group column %q must be a plain column name", col)
		}
	}
	return nil
}

// ResolveColumns validates g and resolves its columns against table,
// preserving input order.
func (g GroupBy) ResolveColumns(table Table) ([]Column, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(table.Columns()))
	for _, name := range table.Columns() {
		known[name] = struct{}{}
	}

	resolved := make([]Column, 0, len(g.columns))
	for _, col := range g.columns {
		if _, ok := known[col]; !ok {
			return nil, domain.ErrGroupFieldNotFound("group column %q not found in %s", col, table.Name())
		}
		resolved = append(resolved, Column{Name: col})
	}
	return resolved, nil
}
