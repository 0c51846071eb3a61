package engine

import "github.com/fedsql/fedsql/ast"

// applyLimit keeps only the first n rows, per spec §4.6.9.
func applyLimit(rs RowSet, l *ast.Limit) RowSet {
	if l == nil || l.N >= len(rs.Rows) {
		return rs
	}
	return RowSet{Cols: rs.Cols, Rows: rs.Rows[:l.N]}
}
