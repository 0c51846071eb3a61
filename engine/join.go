package engine

import (
	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/qerr"
)

// runJoin merges base (the SELECT resource, always the left side of the
// output) with other (the single supported JOIN resource, always the
// right side of the output) per spec §4.6.3. Column order is always
// base-then-other regardless of join type; only which side is guaranteed
// present (and which side gets nil-padded) changes.
func runJoin(baseAlias, otherAlias string, base, other RowSet, jt ast.JoinType, clause ast.BinaryClause) (RowSet, error) {
	lhs, lok := clause.P1.(ast.FieldRef)
	rhs, rok := clause.P2.(ast.FieldRef)
	if !lok || !rok {
		return RowSet{}, qerr.E(qerr.ValidationError, "Invalid join clause")
	}
	var baseField, otherField string
	switch {
	case lhs.Src == baseAlias && rhs.Src == otherAlias:
		baseField, otherField = lhs.Field, rhs.Field
	case rhs.Src == baseAlias && lhs.Src == otherAlias:
		baseField, otherField = rhs.Field, lhs.Field
	default:
		return RowSet{}, qerr.E(qerr.ValidationError, "Invalid join clause")
	}
	baseIdx, ok := base.Cols.Find(baseAlias, baseField)
	if !ok {
		return RowSet{}, qerr.E(qerr.ValidationError, "field not in source schema: "+baseAlias+"."+baseField)
	}
	otherIdx, ok := other.Cols.Find(otherAlias, otherField)
	if !ok {
		return RowSet{}, qerr.E(qerr.ValidationError, "field not in source schema: "+otherAlias+"."+otherField)
	}
	op := clause.Op.String()
	cols := base.Cols.concat(other.Cols)

	var outRows []Row
	switch jt {
	case ast.LeftJoin:
		for _, br := range base.Rows {
			matched := false
			for _, or := range other.Rows {
				ok, err := compare(br.Cells[baseIdx], op, or.Cells[otherIdx])
				if err != nil {
					return RowSet{}, err
				}
				if ok {
					matched = true
					outRows = append(outRows, concatRows(br, or))
				}
			}
			if !matched {
				outRows = append(outRows, concatRows(br, nilRow(other.Cols.Len())))
			}
		}
	case ast.RightJoin:
		for _, or := range other.Rows {
			matched := false
			for _, br := range base.Rows {
				ok, err := compare(br.Cells[baseIdx], op, or.Cells[otherIdx])
				if err != nil {
					return RowSet{}, err
				}
				if ok {
					matched = true
					outRows = append(outRows, concatRows(br, or))
				}
			}
			if !matched {
				outRows = append(outRows, concatRows(nilRow(base.Cols.Len()), or))
			}
		}
	default: // ast.InnerJoin
		for _, br := range base.Rows {
			for _, or := range other.Rows {
				ok, err := compare(br.Cells[baseIdx], op, or.Cells[otherIdx])
				if err != nil {
					return RowSet{}, err
				}
				if ok {
					outRows = append(outRows, concatRows(br, or))
				}
			}
		}
	}
	return RowSet{Cols: cols, Rows: outRows}, nil
}

func concatRows(a, b Row) Row {
	cells := make([]interface{}, 0, len(a.Cells)+len(b.Cells))
	cells = append(cells, a.Cells...)
	cells = append(cells, b.Cells...)
	return Row{Cells: cells}
}

func nilRow(n int) Row {
	return Row{Cells: make([]interface{}, n)}
}
