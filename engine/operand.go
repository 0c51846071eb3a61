package engine

import (
	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/qerr"
)

// resolveOperand resolves a WHERE/JOIN-clause operand against one row: a
// field reference becomes the row's cell at that column, a literal is
// used as-is.
func resolveOperand(op ast.Operand, row Row, ci *ColumnIndex) (interface{}, error) {
	switch v := op.(type) {
	case ast.FieldRef:
		idx, ok := ci.Find(v.Src, v.Field)
		if !ok {
			return nil, qerr.E(qerr.ValidationError, "field not in source schema: "+v.Src+"."+v.Field)
		}
		return row.Cells[idx], nil
	case ast.Number:
		if v.IsFloat {
			return v.Float, nil
		}
		return v.Int, nil
	case ast.QuotedString:
		return v.Unquoted, nil
	default:
		return nil, qerr.E(qerr.InternalError, "unrecognized operand type")
	}
}
