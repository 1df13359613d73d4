package duckdbsql

// === Statement Nodes ===

// SelectStmt represents a complete SELECT statement with optional WITH clause.
type SelectStmt struct {
	With *WithClause
	Body *SelectCore
}

func (*SelectStmt) node()     {}
func (*SelectStmt) stmtNode() {}

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	CTEs []*CTE
}

// CTE represents a Common Table Expression.
type CTE struct {
	Name   string
	Select *SelectStmt
}

// SelectCore represents the core SELECT clause with its optional clauses.
type SelectCore struct {
	Distinct bool
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	OrderBy  []OrderByItem
	Limit    Expr
}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	Expr  Expr   // expression; a *StarExpr renders * or t.*
	Alias string // AS alias
}

// FromClause represents the FROM clause.
type FromClause struct {
	Source TableRef
}

// OrderByItem represents an item in ORDER BY clause.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool // nil = default, true = NULLS FIRST, false = NULLS LAST
}
