package duckdbsql

// === Expression Nodes ===

// ColumnRef represents a column reference, optionally qualified with table name.
type ColumnRef struct {
	Table  string // optional table/alias qualifier
	Column string // column name
}

func (*ColumnRef) node()     {}
func (*ColumnRef) exprNode() {}

// Literal represents a literal value (number, string, bool, null).
type Literal struct {
	Type  LiteralType
	Value string
}

func (*Literal) node()     {}
func (*Literal) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralNumber and friends classify literal values.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// Operator is a binary or unary SQL operator.
type Operator string

// OpAdd and friends are the operators the planner emits.
const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
	OpEq  Operator = "="
	OpNe  Operator = "<>"
	OpLt  Operator = "<"
	OpLte Operator = "<="
	OpGt  Operator = ">"
	OpGte Operator = ">="
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
	OpNot Operator = "NOT"
)

// BinaryExpr represents a binary expression (left op right).
// Operands are emitted as-is; wrap them in ParenExpr where precedence matters.
type BinaryExpr struct {
	Left  Expr
	Op    Operator
	Right Expr
}

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}

// UnaryExpr represents a unary expression (NOT x, -x).
type UnaryExpr struct {
	Op   Operator
	Expr Expr
}

func (*UnaryExpr) node()     {}
func (*UnaryExpr) exprNode() {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

func (*ParenExpr) node()     {}
func (*ParenExpr) exprNode() {}

// FuncCall represents a function call, optionally windowed.
type FuncCall struct {
	Name     string // function name (written unquoted)
	Distinct bool   // count(DISTINCT ...)
	Args     []Expr
	Star     bool        // count(*)
	Window   *WindowSpec // OVER clause
}

func (*FuncCall) node()     {}
func (*FuncCall) exprNode() {}

// WindowSpec represents a window specification (OVER clause).
// An empty spec renders as OVER ().
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
	Frame       *FrameSpec
}

// FrameSpec represents a window frame specification.
type FrameSpec struct {
	Type  FrameType
	Start *FrameBound
	End   *FrameBound
}

// FrameType represents the type of window frame.
type FrameType string

// FrameRows and friends are the frame units DuckDB accepts.
const (
	FrameRows   FrameType = "ROWS"
	FrameRange  FrameType = "RANGE"
	FrameGroups FrameType = "GROUPS"
)

// FrameBound represents a window frame bound.
type FrameBound struct {
	Type   FrameBoundType
	Offset Expr // for N PRECEDING/FOLLOWING
}

// FrameBoundType represents the type of frame bound.
type FrameBoundType string

// FrameUnboundedPreceding and friends are the supported frame bounds.
const (
	FrameUnboundedPreceding FrameBoundType = "UNBOUNDED PRECEDING"
	FrameUnboundedFollowing FrameBoundType = "UNBOUNDED FOLLOWING"
	FrameCurrentRow         FrameBoundType = "CURRENT ROW"
	FrameExprPreceding      FrameBoundType = "EXPR PRECEDING"
	FrameExprFollowing      FrameBoundType = "EXPR FOLLOWING"
)

// CaseExpr represents a CASE expression.
type CaseExpr struct {
	Operand Expr // CASE operand WHEN... (optional, nil for searched CASE)
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) node()     {}
func (*CaseExpr) exprNode() {}

// WhenClause represents a WHEN clause in a CASE expression.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr represents a CAST(expr AS type) or TRY_CAST(expr AS type) expression.
type CastExpr struct {
	Expr     Expr
	TypeName string
	TryCast  bool
}

func (*CastExpr) node()     {}
func (*CastExpr) exprNode() {}

// IsNullExpr represents IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

func (*IsNullExpr) node()     {}
func (*IsNullExpr) exprNode() {}

// StarExpr represents a * or table.* expression.
type StarExpr struct {
	Table   string   // optional table qualifier
	Exclude []string // DuckDB: * EXCLUDE (...)
}

func (*StarExpr) node()     {}
func (*StarExpr) exprNode() {}
