package grouping

import "duck-grouper/internal/duckdbsql"

// helperPrefix namespaces the stage and helper column names plans introduce,
// keeping them clear of user columns.
const helperPrefix = "__duckgroup_"

// pipeline chains named CTE stages. Each stage reads only the output of the
// stage before it; the first stage reads the table.
type pipeline struct {
	ctes    []*duckdbsql.CTE
	current duckdbsql.TableRef
}

func newPipeline(source duckdbsql.TableRef) *pipeline {
	return &pipeline{current: source}
}

// stage appends a CTE named name whose body is built from the previous stage.
func (p *pipeline) stage(name string, build func(from duckdbsql.TableRef) *duckdbsql.SelectStmt) *pipeline {
	p.ctes = append(p.ctes, &duckdbsql.CTE{Name: name, Select: build(p.current)})
	p.current = &duckdbsql.TableName{Name: name}
	return p
}

// finish selects items from the last stage, preceded by the WITH clause.
func (p *pipeline) finish(items []duckdbsql.SelectItem) *duckdbsql.SelectStmt {
	stmt := duckdbsql.SelectFrom(p.current, items...)
	if len(p.ctes) > 0 {
		stmt.With = &duckdbsql.WithClause{CTEs: p.ctes}
	}
	return stmt
}
