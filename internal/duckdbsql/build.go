package duckdbsql

import (
	"strconv"
)

// Col returns an unqualified column reference.
func Col(name string) *ColumnRef {
	return &ColumnRef{Column: name}
}

// Int returns an integer literal.
func Int(v int64) *Literal {
	return &Literal{Type: LiteralNumber, Value: strconv.FormatInt(v, 10)}
}

// Float returns a numeric literal using the shortest representation that
// parses back to exactly v.
func Float(v float64) *Literal {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		// Keep the literal floating point: 1 would otherwise be an INTEGER.
		s += ".0"
	}
	return &Literal{Type: LiteralNumber, Value: s}
}

// String returns a string literal.
func String(v string) *Literal {
	return &Literal{Type: LiteralString, Value: v}
}

// Null returns the NULL literal.
func Null() *Literal {
	return &Literal{Type: LiteralNull}
}

// Func returns a plain function call.
func Func(name string, args ...Expr) *FuncCall {
	return &FuncCall{Name: name, Args: args}
}

// Over returns a copy of fn evaluated over the given window.
func Over(fn *FuncCall, w *WindowSpec) *FuncCall {
	out := *fn
	out.Window = w
	return &out
}

// Binary returns left op right.
func Binary(left Expr, op Operator, right Expr) *BinaryExpr {
	return &BinaryExpr{Left: left, Op: op, Right: right}
}

// Paren wraps e in parentheses.
func Paren(e Expr) *ParenExpr {
	return &ParenExpr{Expr: e}
}

// Neg returns -e.
func Neg(e Expr) *UnaryExpr {
	return &UnaryExpr{Op: OpSub, Expr: e}
}

// And joins conditions with AND. A single condition is returned unchanged.
func And(conds ...Expr) Expr {
	if len(conds) == 0 {
		return nil
	}
	out := conds[0]
	for _, c := range conds[1:] {
		out = Binary(out, OpAnd, c)
	}
	return out
}

// Cast returns CAST(e AS typeName).
func Cast(e Expr, typeName string) *CastExpr {
	return &CastExpr{Expr: e, TypeName: typeName}
}

// Asc returns ascending ORDER BY items for each expression.
func Asc(exprs ...Expr) []OrderByItem {
	items := make([]OrderByItem, len(exprs))
	for i, e := range exprs {
		items[i] = OrderByItem{Expr: e}
	}
	return items
}

// Item returns a select-list item with an optional alias.
func Item(e Expr, alias string) SelectItem {
	return SelectItem{Expr: e, Alias: alias}
}

// Star returns the * select-list item.
func Star() SelectItem {
	return SelectItem{Expr: &StarExpr{}}
}

// SelectFrom returns SELECT items FROM source.
func SelectFrom(source TableRef, items ...SelectItem) *SelectStmt {
	return &SelectStmt{Body: &SelectCore{
		Columns: items,
		From:    &FromClause{Source: source},
	}}
}
