package duckdbsql

import "strings"

// formatExpr dispatches expression formatting by type.
func (f *formatter) formatExpr(e Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *Literal:
		f.formatLiteral(expr)
	case *ColumnRef:
		f.formatColumnRef(expr)
	case *BinaryExpr:
		f.formatBinaryExpr(expr)
	case *UnaryExpr:
		f.formatUnaryExpr(expr)
	case *ParenExpr:
		f.write("(")
		f.formatExpr(expr.Expr)
		f.write(")")
	case *FuncCall:
		f.formatFuncCall(expr)
	case *CaseExpr:
		f.formatCaseExpr(expr)
	case *CastExpr:
		f.formatCastExpr(expr)
	case *IsNullExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" IS NOT NULL")
		} else {
			f.write(" IS NULL")
		}
	case *StarExpr:
		f.formatStarExpr(expr)
	}
}

func (f *formatter) formatLiteral(lit *Literal) {
	switch lit.Type {
	case LiteralString:
		f.write(QuoteString(lit.Value))
	case LiteralBool:
		f.write(strings.ToUpper(lit.Value))
	case LiteralNull:
		f.write("NULL")
	default:
		f.write(lit.Value)
	}
}

func (f *formatter) formatColumnRef(col *ColumnRef) {
	if col.Table != "" {
		f.writeIdent(col.Table)
		f.write(".")
	}
	f.writeIdent(col.Column)
}

func (f *formatter) formatBinaryExpr(expr *BinaryExpr) {
	f.formatExpr(expr.Left)
	f.space()
	f.write(string(expr.Op))
	f.space()
	f.formatExpr(expr.Right)
}

func (f *formatter) formatUnaryExpr(expr *UnaryExpr) {
	if expr.Op == OpNot {
		f.write("NOT ")
	} else {
		f.write(string(expr.Op))
	}
	f.formatExpr(expr.Expr)
}

func (f *formatter) formatFuncCall(fn *FuncCall) {
	f.write(fn.Name)
	f.write("(")
	if fn.Distinct {
		f.write("DISTINCT ")
	}
	if fn.Star {
		f.write("*")
	} else {
		f.commaSep(len(fn.Args), func(i int) {
			f.formatExpr(fn.Args[i])
		})
	}
	f.write(")")

	if fn.Window != nil {
		f.write(" OVER ")
		f.formatWindowSpec(fn.Window)
	}
}

func (f *formatter) formatWindowSpec(w *WindowSpec) {
	f.write("(")
	needSpace := false

	if len(w.PartitionBy) > 0 {
		f.write("PARTITION BY ")
		f.commaSep(len(w.PartitionBy), func(i int) {
			f.formatExpr(w.PartitionBy[i])
		})
		needSpace = true
	}

	if len(w.OrderBy) > 0 {
		if needSpace {
			f.space()
		}
		f.write("ORDER BY ")
		f.commaSep(len(w.OrderBy), func(i int) {
			f.formatOrderByItem(w.OrderBy[i])
		})
		needSpace = true
	}

	if w.Frame != nil {
		if needSpace {
			f.space()
		}
		f.formatFrameSpec(w.Frame)
	}

	f.write(")")
}

func (f *formatter) formatFrameSpec(fs *FrameSpec) {
	f.write(string(fs.Type))
	if fs.End != nil {
		f.write(" BETWEEN ")
		f.formatFrameBound(fs.Start)
		f.write(" AND ")
		f.formatFrameBound(fs.End)
	} else {
		f.space()
		f.formatFrameBound(fs.Start)
	}
}

func (f *formatter) formatFrameBound(b *FrameBound) {
	if b == nil {
		return
	}
	switch b.Type {
	case FrameUnboundedPreceding, FrameUnboundedFollowing, FrameCurrentRow:
		f.write(string(b.Type))
	case FrameExprPreceding:
		f.formatExpr(b.Offset)
		f.write(" PRECEDING")
	case FrameExprFollowing:
		f.formatExpr(b.Offset)
		f.write(" FOLLOWING")
	}
}

func (f *formatter) formatCaseExpr(c *CaseExpr) {
	f.write("CASE")
	if c.Operand != nil {
		f.space()
		f.formatExpr(c.Operand)
	}
	for _, w := range c.Whens {
		f.write(" WHEN ")
		f.formatExpr(w.Condition)
		f.write(" THEN ")
		f.formatExpr(w.Result)
	}
	if c.Else != nil {
		f.write(" ELSE ")
		f.formatExpr(c.Else)
	}
	f.write(" END")
}

func (f *formatter) formatCastExpr(c *CastExpr) {
	if c.TryCast {
		f.write("TRY_CAST(")
	} else {
		f.write("CAST(")
	}
	f.formatExpr(c.Expr)
	f.write(" AS ")
	f.write(c.TypeName)
	f.write(")")
}

func (f *formatter) formatStarExpr(star *StarExpr) {
	if star.Table != "" {
		f.writeIdent(star.Table)
		f.write(".")
	}
	f.write("*")
	if len(star.Exclude) > 0 {
		f.write(" EXCLUDE (")
		f.commaSep(len(star.Exclude), func(i int) {
			f.writeIdent(star.Exclude[i])
		})
		f.write(")")
	}
}

func (f *formatter) formatOrderByItem(item OrderByItem) {
	f.formatExpr(item.Expr)
	if item.Desc {
		f.write(" DESC")
	}
	if item.NullsFirst != nil {
		if *item.NullsFirst {
			f.write(" NULLS FIRST")
		} else {
			f.write(" NULLS LAST")
		}
	}
}
