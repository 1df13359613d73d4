package grouping

import (
	"duck-grouper/internal/calculation"
	"duck-grouper/internal/domain"
	"duck-grouper/internal/duckdbsql"
)

// Helper stages and columns introduced by the range strategies.
const (
	stageDiff     = helperPrefix + "diff_cte"
	stagePower    = helperPrefix + "power_cte"
	stageRawID    = helperPrefix + "raw_id_cte"
	stageBucket   = helperPrefix + "bucket_cte"
	stageCumeDist = helperPrefix + "cume_dist_cte"
	stageRanges   = helperPrefix + "ranges_cte"

	colExtremaDiff = helperPrefix + "extrema_difference"
	colPower       = helperPrefix + "power"
	colRawID       = helperPrefix + "raw_id"
	colBucket      = helperPrefix + "bucket"
	colCumeDist    = helperPrefix + "cume_dist"
	colRangeID     = helperPrefix + "range_id"
)

// projection returns the table's own columns followed by the metadata item.
func projection(table Table, metadata duckdbsql.SelectItem) []duckdbsql.SelectItem {
	items := make([]duckdbsql.SelectItem, 0, len(table.Columns())+1)
	for _, name := range table.Columns() {
		items = append(items, duckdbsql.Item(duckdbsql.Col(name), ""))
	}
	return append(items, metadata)
}

// distinctSelect groups rows by exact equality of all grouping columns.
// Group ids are the dense rank of the column tuple.
func distinctSelect(table Table, columns []Column) *duckdbsql.SelectStmt {
	keys := columnExprs(columns)
	w := NewWindowDefinition(keys, keys)

	metadata := BuildMetadataExpr(w, columns, denseRank(w.OrderBy()), Bounds{})
	return newPipeline(table.Ref()).finish(projection(table, metadata))
}

// magnitudeSelect buckets a single numeric column by a common power of ten
// derived from the column's range. Stages:
//
//	diff:   max - min over the whole table
//	power:  floor(log10(diff))
//	raw_id: floor(value / 10^power)
//	bucket: raw_id snapped so pretty(bucket) <= value < pretty(bucket + 1)
//
// Buckets can be sparse or negative; group ids are their dense rank.
func magnitudeSelect(table Table, columns []Column) *duckdbsql.SelectStmt {
	column := columns[0]

	p := newPipeline(table.Ref()).
		stage(stageDiff, func(from duckdbsql.TableRef) *duckdbsql.SelectStmt {
			return calculation.ExtremaDiffSelect(from, column.Expr(), colExtremaDiff)
		}).
		stage(stagePower, func(from duckdbsql.TableRef) *duckdbsql.SelectStmt {
			return calculation.OrderOfMagnitudeSelect(from, duckdbsql.Col(colExtremaDiff), colPower)
		}).
		stage(stageRawID, func(from duckdbsql.TableRef) *duckdbsql.SelectStmt {
			return calculation.DivideByPowerOfTenSelect(from, column.Expr(), duckdbsql.Col(colPower), colRawID)
		}).
		stage(stageBucket, func(from duckdbsql.TableRef) *duckdbsql.SelectStmt {
			return calculation.SnapToEdgeSelect(from, column.Expr(), duckdbsql.Col(colPower), duckdbsql.Col(colRawID), colBucket)
		})

	bucket := duckdbsql.Col(colBucket)
	power := duckdbsql.Col(colPower)
	w := NewWindowDefinition([]duckdbsql.Expr{bucket}, []duckdbsql.Expr{column.Expr()})

	bound := func(offset int64) duckdbsql.Expr {
		return ValueObject(columns, func(Column) duckdbsql.Expr {
			return calculation.PowerOfTenEdge(
				duckdbsql.Paren(duckdbsql.Binary(bucket, duckdbsql.OpAdd, duckdbsql.Int(offset))),
				power,
			)
		})
	}

	metadata := BuildMetadataExpr(w, columns, denseRank(w.PartitionBy()), Bounds{
		GreaterThanEq: bound(0),
		LessThan:      bound(1),
	})
	return p.finish(projection(table, metadata))
}

// percentileSelect bands rows by cumulative distribution over the grouping
// columns. Band i+1 holds rows with cume_dist in (i/n, (i+1)/n]; the band
// number is the group id.
func percentileSelect(table Table, columns []Column, numGroups int) *duckdbsql.SelectStmt {
	keys := columnExprs(columns)

	p := newPipeline(table.Ref()).
		stage(stageCumeDist, func(from duckdbsql.TableRef) *duckdbsql.SelectStmt {
			cumeDist := duckdbsql.Over(duckdbsql.Func("cume_dist"), &duckdbsql.WindowSpec{
				OrderBy: duckdbsql.Asc(keys...),
			})
			return duckdbsql.SelectFrom(from, duckdbsql.Star(), duckdbsql.Item(cumeDist, colCumeDist))
		}).
		stage(stageRanges, func(from duckdbsql.TableRef) *duckdbsql.SelectStmt {
			rest := duckdbsql.SelectItem{Expr: &duckdbsql.StarExpr{Exclude: []string{colCumeDist}}}
			return duckdbsql.SelectFrom(from, rest, duckdbsql.Item(percentileBands(numGroups), colRangeID))
		})

	rangeID := duckdbsql.Col(colRangeID)
	w := NewWindowDefinition([]duckdbsql.Expr{rangeID}, keys)

	metadata := BuildMetadataExpr(w, columns, rangeID, Bounds{})
	return p.finish(projection(table, metadata))
}

// percentileBands maps cume_dist to 1..n over right-closed intervals.
func percentileBands(n int) *duckdbsql.CaseExpr {
	cumeDist := duckdbsql.Col(colCumeDist)
	whens := make([]duckdbsql.WhenClause, n)
	for i := 0; i < n; i++ {
		lower := float64(i) / float64(n)
		upper := float64(i+1) / float64(n)
		whens[i] = duckdbsql.WhenClause{
			Condition: duckdbsql.And(
				duckdbsql.Binary(cumeDist, duckdbsql.OpGt, duckdbsql.Float(lower)),
				duckdbsql.Binary(cumeDist, duckdbsql.OpLte, duckdbsql.Float(upper)),
			),
			Result: duckdbsql.Int(int64(i + 1)),
		}
	}
	return &duckdbsql.CaseExpr{Whens: whens}
}

// Plan is a grouping query ready for the engine.
type Plan struct {
	Mode  domain.GroupMode
	Table string
	// Columns are the projected data columns, in table order. Every row also
	// carries domain.MetadataField.
	Columns []string
	Stmt    *duckdbsql.SelectStmt
}

// SQL renders the plan.
func (p *Plan) SQL() string {
	return duckdbsql.Format(p.Stmt)
}

// BuildPlan validates groupBy against table and builds the query for its
// strategy. Grouping errors are returned before any SQL is produced.
func BuildPlan(table Table, groupBy GroupBy) (*Plan, error) {
	columns, err := groupBy.ResolveColumns(table)
	if err != nil {
		return nil, err
	}

	var stmt *duckdbsql.SelectStmt
	switch groupBy.Mode() {
	case domain.GroupModeDistinct:
		stmt = distinctSelect(table, columns)
	case domain.GroupModeMagnitude:
		stmt = magnitudeSelect(table, columns)
	case domain.GroupModePercentile:
		stmt = percentileSelect(table, columns, groupBy.NumGroups())
	default:
		return nil, domain.ErrInvalidGroupMode("mode %q is invalid", groupBy.Mode())
	}

	return &Plan{
		Mode:    groupBy.Mode(),
		Table:   table.Name(),
		Columns: append([]string(nil), table.Columns()...),
		Stmt:    stmt,
	}, nil
}
