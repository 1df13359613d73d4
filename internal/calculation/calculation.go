// Package calculation provides numeric helper sub-queries over a table-like
// source. Each helper selects every source column plus one computed column,
// so helpers can be chained as consecutive CTE stages.
package calculation

import (
	"duck-grouper/internal/duckdbsql"
)

// PowerOfTen returns 10.0 ^ power.
func PowerOfTen(power duckdbsql.Expr) duckdbsql.Expr {
	return duckdbsql.Func("pow", duckdbsql.Float(10), power)
}

// ExtremaDiffSelect selects source.* plus (max(column) - min(column)) over the
// whole source, labeled label.
func ExtremaDiffSelect(source duckdbsql.TableRef, column duckdbsql.Expr, label string) *duckdbsql.SelectStmt {
	whole := &duckdbsql.WindowSpec{}
	diff := duckdbsql.Binary(
		duckdbsql.Over(duckdbsql.Func("max", column), whole),
		duckdbsql.OpSub,
		duckdbsql.Over(duckdbsql.Func("min", column), whole),
	)
	return duckdbsql.SelectFrom(source, duckdbsql.Star(), duckdbsql.Item(diff, label))
}

// OrderOfMagnitudeSelect selects source.* plus floor(log10(value)) as an
// INTEGER labeled label. Non-positive or NULL values yield 0.
func OrderOfMagnitudeSelect(source duckdbsql.TableRef, value duckdbsql.Expr, label string) *duckdbsql.SelectStmt {
	power := &duckdbsql.CaseExpr{
		Whens: []duckdbsql.WhenClause{{
			Condition: duckdbsql.Binary(value, duckdbsql.OpGt, duckdbsql.Int(0)),
			Result: duckdbsql.Cast(
				duckdbsql.Func("floor", duckdbsql.Func("log10", value)),
				"INTEGER",
			),
		}},
		Else: duckdbsql.Int(0),
	}
	return duckdbsql.SelectFrom(source, duckdbsql.Star(), duckdbsql.Item(power, label))
}

// DivideByPowerOfTenSelect selects source.* plus floor(column / 10^power) as a
// BIGINT labeled label. The quotient is inexact for negative powers, so the
// result may sit one bucket off; SnapToEdgeSelect corrects it.
func DivideByPowerOfTenSelect(source duckdbsql.TableRef, column, power duckdbsql.Expr, label string) *duckdbsql.SelectStmt {
	quotient := duckdbsql.Binary(column, duckdbsql.OpDiv, PowerOfTen(power))
	rawID := duckdbsql.Cast(duckdbsql.Func("floor", quotient), "BIGINT")
	return duckdbsql.SelectFrom(source, duckdbsql.Star(), duckdbsql.Item(rawID, label))
}

// PowerOfTenEdge returns index * 10^power, truncated to an integer for
// non-negative powers and rounded to -power decimal places otherwise, so edges
// read 100 or 0.01 instead of 0.010000000000000002.
func PowerOfTenEdge(index, power duckdbsql.Expr) duckdbsql.Expr {
	edge := duckdbsql.Binary(index, duckdbsql.OpMul, PowerOfTen(power))
	return &duckdbsql.CaseExpr{
		Whens: []duckdbsql.WhenClause{{
			Condition: duckdbsql.Binary(power, duckdbsql.OpGte, duckdbsql.Int(0)),
			Result:    duckdbsql.Func("trunc", edge),
		}},
		Else: duckdbsql.Func("round", edge, duckdbsql.Neg(power)),
	}
}

// SnapToEdgeSelect selects source.* plus rawID moved by at most one so that
// PowerOfTenEdge(k) <= column < PowerOfTenEdge(k + 1), labeled label. NULL
// columns keep rawID.
func SnapToEdgeSelect(source duckdbsql.TableRef, column, power, rawID duckdbsql.Expr, label string) *duckdbsql.SelectStmt {
	next := duckdbsql.Paren(duckdbsql.Binary(rawID, duckdbsql.OpAdd, duckdbsql.Int(1)))
	prev := duckdbsql.Paren(duckdbsql.Binary(rawID, duckdbsql.OpSub, duckdbsql.Int(1)))
	snapped := &duckdbsql.CaseExpr{
		Whens: []duckdbsql.WhenClause{
			{
				Condition: duckdbsql.Binary(PowerOfTenEdge(next, power), duckdbsql.OpLte, column),
				Result:    next,
			},
			{
				Condition: duckdbsql.Binary(PowerOfTenEdge(rawID, power), duckdbsql.OpGt, column),
				Result:    prev,
			},
		},
		Else: rawID,
	}
	return duckdbsql.SelectFrom(source, duckdbsql.Star(), duckdbsql.Item(snapped, label))
}
