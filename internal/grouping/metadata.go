package grouping

import (
	"duck-grouper/internal/domain"
	"duck-grouper/internal/duckdbsql"
)

// Metadata object keys. They match the JSON names of domain.GroupMetadata.
const (
	keyGroupID       = "group_id"
	keyCount         = "count"
	keyFirstValue    = "first_value"
	keyLastValue     = "last_value"
	keyLessThanEq    = "less_than_eq_value"
	keyGreaterThanEq = "greater_than_eq_value"
	keyLessThan      = "less_than_value"
	keyGreaterThan   = "greater_than_value"
)

// Bounds holds the optional "pretty" bucket edges of a range strategy. Each
// non-nil field must be an object keyed by grouping column name, see
// ValueObject.
type Bounds struct {
	LessThanEq    duckdbsql.Expr
	GreaterThanEq duckdbsql.Expr
	LessThan      duckdbsql.Expr
	GreaterThan   duckdbsql.Expr
}

// ValueObject builds json_object('<col>', value(col), ...) over columns.
func ValueObject(columns []Column, value func(Column) duckdbsql.Expr) duckdbsql.Expr {
	args := make([]duckdbsql.Expr, 0, 2*len(columns))
	for _, c := range columns {
		args = append(args, duckdbsql.String(c.Name), value(c))
	}
	return duckdbsql.Func("json_object", args...)
}

// BuildMetadataExpr builds the metadata object attached to every row of a
// strategy's output, labeled domain.MetadataField.
//
// first_value and last_value are taken over the ordered whole-partition
// frame, so every row of a group reports the same representative values no
// matter which physical row is scanned first.
func BuildMetadataExpr(w WindowDefinition, columns []Column, groupID duckdbsql.Expr, bounds Bounds) duckdbsql.SelectItem {
	snapshot := ValueObject(columns, Column.Expr)

	// first_value/last_value may drop the JSON alias; cast it back so the
	// snapshot nests as an object instead of a string.
	edge := func(fn string) duckdbsql.Expr {
		return duckdbsql.Cast(duckdbsql.Over(duckdbsql.Func(fn, snapshot), w.Framed()), "JSON")
	}

	object := duckdbsql.Func("json_object",
		duckdbsql.String(keyGroupID), groupID,
		duckdbsql.String(keyCount), duckdbsql.Over(duckdbsql.Func("count", duckdbsql.Int(1)), w.Partition()),
		duckdbsql.String(keyFirstValue), edge("first_value"),
		duckdbsql.String(keyLastValue), edge("last_value"),
		duckdbsql.String(keyLessThanEq), orNull(bounds.LessThanEq),
		duckdbsql.String(keyGreaterThanEq), orNull(bounds.GreaterThanEq),
		duckdbsql.String(keyLessThan), orNull(bounds.LessThan),
		duckdbsql.String(keyGreaterThan), orNull(bounds.GreaterThan),
	)

	return duckdbsql.Item(duckdbsql.Cast(object, "VARCHAR"), domain.MetadataField)
}

func orNull(e duckdbsql.Expr) duckdbsql.Expr {
	if e == nil {
		return duckdbsql.Null()
	}
	return e
}
