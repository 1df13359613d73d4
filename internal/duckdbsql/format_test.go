package duckdbsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_Select(t *testing.T) {
	people := &TableName{Schema: "main", Name: "people"}

	tests := []struct {
		name string
		stmt *SelectStmt
		want string
	}{
		{
			name: "select_star",
			stmt: SelectFrom(&TableName{Name: "t"}, Star()),
			want: `SELECT * FROM "t"`,
		},
		{
			name: "select_columns_alias",
			stmt: SelectFrom(people, Item(Col("a"), ""), Item(Col("b"), "bee")),
			want: `SELECT "a", "b" AS "bee" FROM "main"."people"`,
		},
		{
			name: "star_exclude",
			stmt: SelectFrom(&TableName{Name: "t"}, SelectItem{Expr: &StarExpr{Exclude: []string{"x", "y"}}}),
			want: `SELECT * EXCLUDE ("x", "y") FROM "t"`,
		},
		{
			name: "quoted_identifier_escape",
			stmt: SelectFrom(&TableName{Name: `we"ird`}, Item(Col(`co"l`), "")),
			want: `SELECT "co""l" FROM "we""ird"`,
		},
		{
			name: "func_table",
			stmt: SelectFrom(&FuncTable{Func: Func("read_parquet", String("data/x.parquet"))}, Star()),
			want: `SELECT * FROM read_parquet('data/x.parquet')`,
		},
		{
			name: "derived_table",
			stmt: SelectFrom(&DerivedTable{Select: SelectFrom(&TableName{Name: "t"}, Star()), Alias: "sub"}, Star()),
			want: `SELECT * FROM (SELECT * FROM "t") "sub"`,
		},
		{
			name: "where_order_limit",
			stmt: &SelectStmt{Body: &SelectCore{
				Columns: []SelectItem{Star()},
				From:    &FromClause{Source: &TableName{Name: "t"}},
				Where:   And(Binary(Col("a"), OpGt, Int(1)), Binary(Col("b"), OpLte, Float(0.5))),
				OrderBy: []OrderByItem{{Expr: Col("a"), Desc: true}},
				Limit:   Int(10),
			}},
			want: `SELECT * FROM "t" WHERE "a" > 1 AND "b" <= 0.5 ORDER BY "a" DESC LIMIT 10`,
		},
		{
			name: "with_ctes",
			stmt: &SelectStmt{
				With: &WithClause{CTEs: []*CTE{
					{Name: "first", Select: SelectFrom(&TableName{Name: "t"}, Star())},
					{Name: "second", Select: SelectFrom(&TableName{Name: "first"}, Star())},
				}},
				Body: &SelectCore{
					Columns: []SelectItem{Star()},
					From:    &FromClause{Source: &TableName{Name: "second"}},
				},
			},
			want: `WITH "first" AS (SELECT * FROM "t"), "second" AS (SELECT * FROM "first") SELECT * FROM "second"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.stmt))
		})
	}
}

func TestFormatExpr(t *testing.T) {
	wholePartition := &FrameSpec{
		Type:  FrameRange,
		Start: &FrameBound{Type: FrameUnboundedPreceding},
		End:   &FrameBound{Type: FrameUnboundedFollowing},
	}

	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{name: "null", expr: Null(), want: "NULL"},
		{name: "string_escape", expr: String("it's"), want: "'it''s'"},
		{name: "bool", expr: &Literal{Type: LiteralBool, Value: "true"}, want: "TRUE"},
		{name: "float_integral", expr: Float(1), want: "1.0"},
		{name: "float_fraction", expr: Float(1.0 / 3.0), want: "0.3333333333333333"},
		{name: "qualified_column", expr: &ColumnRef{Table: "t", Column: "c"}, want: `"t"."c"`},
		{name: "negate", expr: Neg(Col("p")), want: `-"p"`},
		{name: "not", expr: &UnaryExpr{Op: OpNot, Expr: Col("flag")}, want: `NOT "flag"`},
		{name: "is_not_null", expr: &IsNullExpr{Expr: Col("x"), Not: true}, want: `"x" IS NOT NULL`},
		{
			name: "paren_precedence",
			expr: Binary(Paren(Binary(Col("raw"), OpAdd, Int(1))), OpMul, Func("pow", Float(10), Col("p"))),
			want: `("raw" + 1) * pow(10.0, "p")`,
		},
		{name: "count_star", expr: &FuncCall{Name: "count", Star: true}, want: "count(*)"},
		{name: "count_distinct", expr: &FuncCall{Name: "count", Distinct: true, Args: []Expr{Col("x")}}, want: `count(DISTINCT "x")`},
		{
			name: "empty_window",
			expr: Over(Func("max", Col("x")), &WindowSpec{}),
			want: `max("x") OVER ()`,
		},
		{
			name: "partition_only",
			expr: Over(Func("count", Int(1)), &WindowSpec{PartitionBy: []Expr{Col("a"), Col("b")}}),
			want: `count(1) OVER (PARTITION BY "a", "b")`,
		},
		{
			name: "order_only",
			expr: Over(Func("dense_rank"), &WindowSpec{OrderBy: Asc(Col("a"))}),
			want: `dense_rank() OVER (ORDER BY "a")`,
		},
		{
			name: "full_window",
			expr: Over(Func("first_value", Col("v")), &WindowSpec{
				PartitionBy: []Expr{Col("g")},
				OrderBy:     Asc(Col("a"), Col("b")),
				Frame:       wholePartition,
			}),
			want: `first_value("v") OVER (PARTITION BY "g" ORDER BY "a", "b" RANGE BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING)`,
		},
		{
			name: "rows_offset_frame",
			expr: Over(Func("sum", Col("v")), &WindowSpec{
				OrderBy: Asc(Col("a")),
				Frame:   &FrameSpec{Type: FrameRows, Start: &FrameBound{Type: FrameExprPreceding, Offset: Int(2)}},
			}),
			want: `sum("v") OVER (ORDER BY "a" ROWS 2 PRECEDING)`,
		},
		{
			name: "searched_case",
			expr: &CaseExpr{
				Whens: []WhenClause{{Condition: Binary(Col("p"), OpGte, Int(0)), Result: Func("trunc", Col("x"))}},
				Else:  Func("round", Col("x"), Neg(Col("p"))),
			},
			want: `CASE WHEN "p" >= 0 THEN trunc("x") ELSE round("x", -"p") END`,
		},
		{name: "cast", expr: Cast(Col("x"), "VARCHAR"), want: `CAST("x" AS VARCHAR)`},
		{name: "try_cast", expr: &CastExpr{Expr: Col("x"), TypeName: "INTEGER", TryCast: true}, want: `TRY_CAST("x" AS INTEGER)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatExpr(tt.expr))
		})
	}
}

func TestOver_DoesNotMutateInput(t *testing.T) {
	fn := Func("count", Int(1))
	windowed := Over(fn, &WindowSpec{})

	assert.Nil(t, fn.Window)
	assert.NotNil(t, windowed.Window)
}

func TestAnd(t *testing.T) {
	assert.Nil(t, And())
	assert.Equal(t, `"a"`, FormatExpr(And(Col("a"))))
	assert.Equal(t, `"a" AND "b" AND "c"`, FormatExpr(And(Col("a"), Col("b"), Col("c"))))
}
