package engine

import (
	"strconv"

	"github.com/fedsql/fedsql/qerr"
)

// compareResult is the outcome of a three-way comparison.
type compareResult int

const (
	lt compareResult = -1
	eq compareResult = 0
	gt compareResult = 1
)

// coerce applies the two-sided coercion table of spec §4.6.4: boolean vs
// non-boolean stringifies both sides; int/float vs string attempts to
// parse the string side; mixed numerics compare natively; everything else
// compares as-is.
func coerce(v1, v2 interface{}) (interface{}, interface{}, error) {
	b1, isBool1 := v1.(bool)
	b2, isBool2 := v2.(bool)
	if isBool1 != isBool2 {
		return stringify(v1), stringify(v2), nil
	}
	if isBool1 && isBool2 {
		return b1, b2, nil
	}

	n1, isNum1 := asNumber(v1)
	n2, isNum2 := asNumber(v2)
	s1, isStr1 := v1.(string)
	s2, isStr2 := v2.(string)

	switch {
	case isNum1 && isNum2:
		return n1, n2, nil
	case isNum1 && isStr2:
		f, err := strconv.ParseFloat(s2, 64)
		if err != nil {
			return nil, nil, qerr.E(qerr.CoercionError, "cannot compare numeric value to non-numeric string "+s2)
		}
		return n1, f, nil
	case isStr1 && isNum2:
		f, err := strconv.ParseFloat(s1, 64)
		if err != nil {
			return nil, nil, qerr.E(qerr.CoercionError, "cannot compare numeric value to non-numeric string "+s1)
		}
		return f, n2, nil
	default:
		return v1, v2, nil
	}
}

// asNumber reports whether v is int64 or float64, returning it widened to
// float64 for comparison purposes (exact aggregate arithmetic elsewhere
// uses shopspring/decimal on the original typed value, not this widened
// form).
func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case nil:
		return ""
	default:
		return ""
	}
}

// compare applies op to v1/v2 after coercion, returning the boolean
// result. nil is handled ahead of coercion: nil = nil is always true;
// otherwise a comparison involving one nil side is always false for
// anything but Neq (spec §4.6.4 deals with nil ordering separately in the
// sort stage; comparisons in WHERE/JOIN have no special nil rule beyond
// equality, so this treats nil as comparable only to itself).
func compare(v1 interface{}, op string, v2 interface{}) (bool, error) {
	if v1 == nil || v2 == nil {
		switch op {
		case "=":
			return v1 == nil && v2 == nil, nil
		case "<>":
			return !(v1 == nil && v2 == nil), nil
		default:
			return false, nil
		}
	}
	c1, c2, err := coerce(v1, v2)
	if err != nil {
		return false, err
	}
	switch a := c1.(type) {
	case string:
		b := c2.(string)
		return applyOp(op, cmpString(a, b)), nil
	case bool:
		b := c2.(bool)
		return applyOp(op, cmpBool(a, b)), nil
	case float64:
		b := c2.(float64)
		return applyOp(op, cmpFloat(a, b)), nil
	default:
		return false, qerr.E(qerr.CoercionError, "incomparable values")
	}
}

func applyOp(op string, c compareResult) bool {
	switch op {
	case "=":
		return c == eq
	case "<>":
		return c != eq
	case "<":
		return c == lt
	case "<=":
		return c == lt || c == eq
	case ">":
		return c == gt
	case ">=":
		return c == gt || c == eq
	}
	return false
}

func cmpString(a, b string) compareResult {
	switch {
	case a < b:
		return lt
	case a > b:
		return gt
	default:
		return eq
	}
}

func cmpBool(a, b bool) compareResult {
	switch {
	case a == b:
		return eq
	case !a && b:
		return lt
	default:
		return gt
	}
}

func cmpFloat(a, b float64) compareResult {
	switch {
	case a < b:
		return lt
	case a > b:
		return gt
	default:
		return eq
	}
}
