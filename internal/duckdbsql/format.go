package duckdbsql

import (
	"strings"
)

// Format formats a statement AST to a SQL string.
// The output is flat (no pretty-printing) and always double-quotes identifiers.
func Format(stmt Stmt) string {
	f := &formatter{}
	f.formatStmt(stmt)
	return strings.TrimSpace(f.buf.String())
}

// FormatExpr formats an expression AST to a SQL string.
func FormatExpr(expr Expr) string {
	f := &formatter{}
	f.formatExpr(expr)
	return strings.TrimSpace(f.buf.String())
}

// formatter is a simple SQL string builder. No indentation or pretty-printing.
type formatter struct {
	buf strings.Builder
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}

func (f *formatter) space() {
	f.buf.WriteByte(' ')
}

// QuoteIdent unconditionally double-quotes an identifier.
// Internal double quotes are escaped by doubling.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteString renders s as a single-quoted SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (f *formatter) writeIdent(s string) {
	f.write(QuoteIdent(s))
}

// commaSep writes items separated by ", ".
func (f *formatter) commaSep(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			f.write(", ")
		}
		fn(i)
	}
}
