package grouping

import "duck-grouper/internal/duckdbsql"

// WindowDefinition pairs a partition key with an ordering key. The frame is
// always the whole partition.
type WindowDefinition struct {
	partitionBy []duckdbsql.Expr
	orderBy     []duckdbsql.Expr
}

// NewWindowDefinition returns a window over partitionBy ordered by orderBy.
func NewWindowDefinition(partitionBy, orderBy []duckdbsql.Expr) WindowDefinition {
	return WindowDefinition{
		partitionBy: append([]duckdbsql.Expr(nil), partitionBy...),
		orderBy:     append([]duckdbsql.Expr(nil), orderBy...),
	}
}

// PartitionBy returns the partition key.
func (w WindowDefinition) PartitionBy() []duckdbsql.Expr { return w.partitionBy }

// OrderBy returns the ordering key.
func (w WindowDefinition) OrderBy() []duckdbsql.Expr { return w.orderBy }

// Frame returns the fixed unbounded frame.
func (w WindowDefinition) Frame() *duckdbsql.FrameSpec {
	return &duckdbsql.FrameSpec{
		Type:  duckdbsql.FrameRange,
		Start: &duckdbsql.FrameBound{Type: duckdbsql.FrameUnboundedPreceding},
		End:   &duckdbsql.FrameBound{Type: duckdbsql.FrameUnboundedFollowing},
	}
}

// Partition returns OVER (PARTITION BY ...).
func (w WindowDefinition) Partition() *duckdbsql.WindowSpec {
	return &duckdbsql.WindowSpec{PartitionBy: w.partitionBy}
}

// Framed returns OVER (PARTITION BY ... ORDER BY ... RANGE BETWEEN UNBOUNDED
// PRECEDING AND UNBOUNDED FOLLOWING).
func (w WindowDefinition) Framed() *duckdbsql.WindowSpec {
	return &duckdbsql.WindowSpec{
		PartitionBy: w.partitionBy,
		OrderBy:     duckdbsql.Asc(w.orderBy...),
		Frame:       w.Frame(),
	}
}

// denseRank numbers distinct values of keys 1, 2, 3... in ascending order
// across the whole result.
func denseRank(keys []duckdbsql.Expr) duckdbsql.Expr {
	return duckdbsql.Over(duckdbsql.Func("dense_rank"), &duckdbsql.WindowSpec{
		OrderBy: duckdbsql.Asc(keys...),
	})
}
