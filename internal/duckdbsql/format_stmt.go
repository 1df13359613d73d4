package duckdbsql

// formatStmt dispatches statement formatting by type.
func (f *formatter) formatStmt(stmt Stmt) {
	if s, ok := stmt.(*SelectStmt); ok {
		f.formatSelectStmt(s)
	}
}

// === SELECT ===

func (f *formatter) formatSelectStmt(stmt *SelectStmt) {
	if stmt == nil {
		return
	}
	if stmt.With != nil && len(stmt.With.CTEs) > 0 {
		f.formatWithClause(stmt.With)
	}
	f.formatSelectCore(stmt.Body)
}

func (f *formatter) formatWithClause(with *WithClause) {
	f.write("WITH ")
	f.commaSep(len(with.CTEs), func(i int) {
		cte := with.CTEs[i]
		f.writeIdent(cte.Name)
		f.write(" AS (")
		f.formatSelectStmt(cte.Select)
		f.write(")")
	})
	f.space()
}

func (f *formatter) formatSelectCore(sc *SelectCore) {
	if sc == nil {
		return
	}

	f.write("SELECT ")
	if sc.Distinct {
		f.write("DISTINCT ")
	}

	f.commaSep(len(sc.Columns), func(i int) {
		f.formatSelectItem(sc.Columns[i])
	})

	if sc.From != nil {
		f.write(" FROM ")
		f.formatTableRef(sc.From.Source)
	}

	if sc.Where != nil {
		f.write(" WHERE ")
		f.formatExpr(sc.Where)
	}

	if len(sc.GroupBy) > 0 {
		f.write(" GROUP BY ")
		f.commaSep(len(sc.GroupBy), func(i int) {
			f.formatExpr(sc.GroupBy[i])
		})
	}

	if len(sc.OrderBy) > 0 {
		f.write(" ORDER BY ")
		f.commaSep(len(sc.OrderBy), func(i int) {
			f.formatOrderByItem(sc.OrderBy[i])
		})
	}

	if sc.Limit != nil {
		f.write(" LIMIT ")
		f.formatExpr(sc.Limit)
	}
}

func (f *formatter) formatSelectItem(item SelectItem) {
	f.formatExpr(item.Expr)
	if item.Alias != "" {
		f.write(" AS ")
		f.writeIdent(item.Alias)
	}
}

func (f *formatter) formatTableRef(ref TableRef) {
	switch t := ref.(type) {
	case *TableName:
		if t.Catalog != "" {
			f.writeIdent(t.Catalog)
			f.write(".")
		}
		if t.Schema != "" {
			f.writeIdent(t.Schema)
			f.write(".")
		}
		f.writeIdent(t.Name)
		f.writeAlias(t.Alias)
	case *DerivedTable:
		f.write("(")
		f.formatSelectStmt(t.Select)
		f.write(")")
		f.writeAlias(t.Alias)
	case *FuncTable:
		f.formatFuncCall(t.Func)
		f.writeAlias(t.Alias)
	}
}

func (f *formatter) writeAlias(alias string) {
	if alias != "" {
		f.space()
		f.writeIdent(alias)
	}
}
