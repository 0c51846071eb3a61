package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/planner"
	"github.com/fedsql/fedsql/qerr"
)

var (
	lowerCaser = cases.Lower(language.Und)
	upperCaser = cases.Upper(language.Und)
)

// applyScalarFuncs evaluates every platform-classified scalar/varargs call
// and prepends one column per call to the row set, per spec §4.6.6. The
// column index is rebuilt once all calls have been applied, so later calls
// in the list can't observe an earlier call's prepended column.
func applyScalarFuncs(rs RowSet, calls []planner.FuncPlan) (RowSet, error) {
	if len(calls) == 0 {
		return rs, nil
	}
	newCols := make([]connector.ColumnDescriptor, 0, len(calls))
	values := make([][]interface{}, len(calls))
	for i, fp := range calls {
		vals := make([]interface{}, len(rs.Rows))
		for r, row := range rs.Rows {
			v, err := evalFunc(fp.Call, row, rs.Cols)
			if err != nil {
				return RowSet{}, err
			}
			vals[r] = v
		}
		values[i] = vals
		alias := ""
		if fp.Call.Alias != nil {
			alias = *fp.Call.Alias
		}
		newCols = append(newCols, connector.ColumnDescriptor{
			Alias:      fp.Call.Ident,
			Field:      fp.Call.Ident,
			UserAlias:  alias,
			IsFunction: true,
		})
	}

	outCols := append(append([]connector.ColumnDescriptor{}, newCols...), rs.Cols.cols...)
	outRows := make([]Row, len(rs.Rows))
	for r, row := range rs.Rows {
		cells := make([]interface{}, 0, len(newCols)+len(row.Cells))
		for i := range calls {
			cells = append(cells, values[i][r])
		}
		cells = append(cells, row.Cells...)
		outRows[r] = Row{Cells: cells}
	}
	return RowSet{Cols: &ColumnIndex{cols: outCols}, Rows: outRows}, nil
}

func evalFunc(call ast.FuncCall, row Row, ci *ColumnIndex) (interface{}, error) {
	switch call.Name {
	case "LOWER", "UPPER":
		v, err := funcParamValue(call.Params[0], row, ci)
		if err != nil {
			return nil, err
		}
		s, ok := v.(string)
		if !ok {
			return nil, nil
		}
		if call.Name == "LOWER" {
			return lowerCaser.String(s), nil
		}
		return upperCaser.String(s), nil
	case "CONCAT":
		var sb strings.Builder
		for _, p := range call.Params {
			v, err := funcParamValue(p, row, ci)
			if err != nil {
				return nil, err
			}
			sb.WriteString(stringify(v))
		}
		return sb.String(), nil
	case "CONCAT_WS":
		if len(call.Params) == 0 {
			return "", nil
		}
		sep, err := funcParamValue(call.Params[0], row, ci)
		if err != nil {
			return nil, err
		}
		parts := make([]string, 0, len(call.Params)-1)
		for _, p := range call.Params[1:] {
			v, err := funcParamValue(p, row, ci)
			if err != nil {
				return nil, err
			}
			parts = append(parts, stringify(v))
		}
		return strings.Join(parts, stringify(sep)), nil
	default:
		return nil, qerr.E(qerr.FunctionError, "unsupported platform function: "+call.Name)
	}
}

func funcParamValue(p ast.FuncParam, row Row, ci *ColumnIndex) (interface{}, error) {
	switch v := p.(type) {
	case ast.FieldRef:
		idx, ok := ci.Find(v.Src, v.Field)
		if !ok {
			return nil, qerr.E(qerr.ValidationError, "field not in source schema: "+v.Src+"."+v.Field)
		}
		return row.Cells[idx], nil
	case ast.QuotedString:
		return v.Unquoted, nil
	case ast.AliasRef:
		idx, ok := ci.FindByUserAlias(v.Alias)
		if !ok {
			return nil, qerr.E(qerr.ValidationError, "unknown alias: "+v.Alias)
		}
		return row.Cells[idx], nil
	default:
		return nil, qerr.E(qerr.FunctionError, "unsupported function argument")
	}
}
