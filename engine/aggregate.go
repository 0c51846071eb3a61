package engine

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/planner"
	"github.com/fedsql/fedsql/qerr"
)

// runAggregation partitions rs by the group key (or treats the whole set as
// one group when there is none) and reduces each partition through every
// aggregate call, per spec §4.6.7. Output columns are [group value?, agg1,
// ..., aggN].
func runAggregation(rs RowSet, agg *planner.AggregationPlan) (RowSet, error) {
	hasGroupKey := agg.GroupKey != nil
	var groupOrder []string
	groups := map[string][]Row{}
	var groupValues map[string]interface{}
	if hasGroupKey {
		groupValues = map[string]interface{}{}
		for _, row := range rs.Rows {
			v, err := resolveAttr(agg.GroupKey, row, rs.Cols)
			if err != nil {
				return RowSet{}, err
			}
			k := stringify(v)
			if _, ok := groups[k]; !ok {
				groupOrder = append(groupOrder, k)
				groupValues[k] = v
			}
			groups[k] = append(groups[k], row)
		}
	} else {
		groupOrder = []string{""}
		groups[""] = rs.Rows
	}

	var cols []connector.ColumnDescriptor
	if hasGroupKey {
		cols = append(cols, connector.ColumnDescriptor{Alias: "group", Field: "group", UserAlias: agg.GroupKeyHeader})
	}
	for _, a := range agg.Aggregates {
		alias := ""
		if a.Call.Alias != nil {
			alias = *a.Call.Alias
		}
		cols = append(cols, connector.ColumnDescriptor{Alias: a.Call.Ident, Field: a.Call.Ident, UserAlias: alias, IsFunction: true})
	}

	var outRows []Row
	for _, k := range groupOrder {
		members := groups[k]
		cells := make([]interface{}, 0, len(cols))
		if hasGroupKey {
			cells = append(cells, groupValues[k])
		}
		for _, a := range agg.Aggregates {
			v, err := reduceAggregate(a.Call, members, rs.Cols)
			if err != nil {
				return RowSet{}, err
			}
			cells = append(cells, v)
		}
		outRows = append(outRows, Row{Cells: cells})
	}
	return RowSet{Cols: &ColumnIndex{cols: cols}, Rows: outRows}, nil
}

func resolveAttr(attr ast.AttrRef, row Row, ci *ColumnIndex) (interface{}, error) {
	switch v := attr.(type) {
	case ast.FieldRef:
		idx, ok := ci.Find(v.Src, v.Field)
		if !ok {
			return nil, qerr.E(qerr.ValidationError, "field not in source schema: "+v.Src+"."+v.Field)
		}
		return row.Cells[idx], nil
	case ast.AliasRef:
		idx, ok := ci.FindByUserAlias(v.Alias)
		if !ok {
			return nil, qerr.E(qerr.ValidationError, "unknown alias: "+v.Alias)
		}
		return row.Cells[idx], nil
	}
	return nil, qerr.E(qerr.InternalError, "unrecognized group key")
}

// reduceAggregate evaluates one aggregate call across a group's members.
// COUNT(*) excludes rows that are entirely nil (padding left behind by an
// unmatched outer join side, per spec §4.6.3/§4.6.7); every other aggregate
// excludes only rows whose own argument resolves to nil.
func reduceAggregate(call ast.FuncCall, members []Row, ci *ColumnIndex) (interface{}, error) {
	if call.Name == "COUNT" && len(call.Params) == 1 {
		if _, isStar := call.Params[0].(ast.Star); isStar {
			count := int64(0)
			for _, r := range members {
				if !r.isAllNil() {
					count++
				}
			}
			return count, nil
		}
	}

	distinct := false
	var param ast.FuncParam
	for _, p := range call.Params {
		if a, ok := p.(ast.AtomLiteral); ok && a.Value == "DISTINCT" {
			distinct = true
			continue
		}
		param = p
	}

	var values []interface{}
	seen := map[string]bool{}
	for _, r := range members {
		v, err := funcParamValue(param, r, ci)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if distinct {
			k := stringify(v)
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		values = append(values, v)
	}

	switch call.Name {
	case "COUNT":
		return int64(len(values)), nil
	case "MIN", "MAX":
		return minMax(call.Name, values)
	case "SUM":
		return sumValues(values, false)
	case "AVG":
		return sumValues(values, true)
	default:
		return nil, qerr.E(qerr.FunctionError, "unsupported aggregate function: "+call.Name)
	}
}

func minMax(name string, values []interface{}) (interface{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	best := values[0]
	for _, v := range values[1:] {
		c1, c2, err := coerce(best, v)
		if err != nil {
			return nil, err
		}
		cmp, err := compareTyped(c1, c2)
		if err != nil {
			return nil, err
		}
		if (name == "MIN" && cmp == gt) || (name == "MAX" && cmp == lt) {
			best = v
		}
	}
	return best, nil
}

func compareTyped(c1, c2 interface{}) (compareResult, error) {
	switch a := c1.(type) {
	case string:
		return cmpString(a, c2.(string)), nil
	case bool:
		return cmpBool(a, c2.(bool)), nil
	case float64:
		return cmpFloat(a, c2.(float64)), nil
	default:
		return eq, qerr.E(qerr.CoercionError, "incomparable values")
	}
}

// sumValues reduces numeric values through shopspring/decimal for exact
// arithmetic (spec §4.6.7 requires SUM/AVG not lose precision to float64
// rounding); non-numeric values that parse as decimal strings are accepted
// the same way the coercion table treats string/numeric comparisons.
func sumValues(values []interface{}, average bool) (interface{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	total := decimal.Zero
	for _, v := range values {
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		total = total.Add(d)
	}
	if average {
		total = total.DivRound(decimal.NewFromInt(int64(len(values))), 16)
	}
	f, _ := total.Float64()
	return f, nil
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch t := v.(type) {
	case int64:
		return decimal.NewFromInt(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero, qerr.E(qerr.FunctionError, "Invalid values for sum/avg")
		}
		return d, nil
	default:
		return decimal.Zero, qerr.E(qerr.FunctionError, "Invalid values for sum/avg")
	}
}
