package engine

import (
	"github.com/fedsql/fedsql/ast"
)

// applyWhere keeps only rows whose single binary clause evaluates true,
// per spec §4.6.5.
func applyWhere(rs RowSet, w *ast.Where) (RowSet, error) {
	if w == nil {
		return rs, nil
	}
	kept := make([]Row, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		v1, err := resolveOperand(w.Clause.P1, row, rs.Cols)
		if err != nil {
			return RowSet{}, err
		}
		v2, err := resolveOperand(w.Clause.P2, row, rs.Cols)
		if err != nil {
			return RowSet{}, err
		}
		ok, err := compare(v1, w.Clause.Op.String(), v2)
		if err != nil {
			return RowSet{}, err
		}
		if ok {
			kept = append(kept, row)
		}
	}
	return RowSet{Cols: rs.Cols, Rows: kept}, nil
}
