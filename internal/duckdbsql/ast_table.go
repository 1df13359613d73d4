package duckdbsql

// === Table Reference Nodes ===

// TableName represents a table name reference (up to 3-part: catalog.schema.name).
type TableName struct {
	Catalog string
	Schema  string
	Name    string
	Alias   string
}

func (*TableName) node()         {}
func (*TableName) tableRefNode() {}

// DerivedTable represents a subquery in FROM clause.
type DerivedTable struct {
	Select *SelectStmt
	Alias  string
}

func (*DerivedTable) node()         {}
func (*DerivedTable) tableRefNode() {}

// FuncTable represents a table-valued function in FROM (e.g., read_parquet()).
type FuncTable struct {
	Func  *FuncCall
	Alias string
}

func (*FuncTable) node()         {}
func (*FuncTable) tableRefNode() {}
