package engine

import (
	"sort"

	"github.com/fedsql/fedsql/ast"
)

// applyOrderBy stably sorts rs by the single ORDER BY attribute, per spec
// §4.6.8's nil-ordering rule: ascending puts nil last, descending puts nil
// first, and nil compares equal to nil regardless of direction.
func applyOrderBy(rs RowSet, o *ast.OrderBy) (RowSet, error) {
	if o == nil {
		return rs, nil
	}
	values := make([]interface{}, len(rs.Rows))
	for i, row := range rs.Rows {
		v, err := resolveAttr(o.Attr, row, rs.Cols)
		if err != nil {
			return RowSet{}, err
		}
		values[i] = v
	}
	idx := make([]int, len(rs.Rows))
	for i := range idx {
		idx[i] = i
	}
	desc := o.Dir == ast.Desc
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := values[idx[i]], values[idx[j]]
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return desc
		case b == nil:
			return !desc
		}
		if desc {
			less, err := lessThan(b, a)
			if err != nil {
				return false
			}
			return less
		}
		less, err := lessThan(a, b)
		if err != nil {
			return false
		}
		return less
	})
	rows := make([]Row, len(rs.Rows))
	for i, j := range idx {
		rows[i] = rs.Rows[j]
	}
	return RowSet{Cols: rs.Cols, Rows: rows}, nil
}

func lessThan(a, b interface{}) (bool, error) {
	c1, c2, err := coerce(a, b)
	if err != nil {
		return false, err
	}
	cmp, err := compareTyped(c1, c2)
	if err != nil {
		return false, err
	}
	return cmp == lt, nil
}
