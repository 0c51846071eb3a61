package ast

// AggregateFuncs is the closed set of aggregate function names. Aggregate
// calls are always classified platform (never pushed down), per the
// planner's classification rule.
var AggregateFuncs = map[string]bool{
	"COUNT": true,
	"MIN":   true,
	"MAX":   true,
	"AVG":   true,
	"SUM":   true,
}

// ScalarVarargsFuncs is the closed set of variable-arity scalar function
// names. Scalar-varargs calls are always platform-evaluated: no connector's
// function module is asked to render them.
var ScalarVarargsFuncs = map[string]bool{
	"CONCAT":    true,
	"CONCAT_WS": true,
}

// ScalarFuncs is the closed set of fixed-arity scalar function names that
// may be pushed down to a single-source connector's function module.
var ScalarFuncs = map[string]bool{
	"LOWER": true,
	"UPPER": true,
}

// KindOf classifies a function name into its FuncKind, and reports
// whether the name is recognized at all. The parser calls this only to
// tag the AST node; an unrecognized name still parses (any IDENT '(' is
// syntactically a function call) and is rejected later by the planner's
// classify-functions stage with a ValidationError carrying a suggested
// near match, not by the parser.
func KindOf(name string) (FuncKind, bool) {
	switch {
	case AggregateFuncs[name]:
		return AggregateFunc, true
	case ScalarVarargsFuncs[name]:
		return ScalarVarargsFunc, true
	case ScalarFuncs[name]:
		return ScalarFunc, true
	default:
		return UnknownFunc, false
	}
}

// KnownFuncNames returns every recognized function name, used by the
// planner to suggest a near-match when an unknown function is referenced.
func KnownFuncNames() []string {
	names := make([]string, 0, len(AggregateFuncs)+len(ScalarVarargsFuncs)+len(ScalarFuncs))
	for n := range AggregateFuncs {
		names = append(names, n)
	}
	for n := range ScalarVarargsFuncs {
		names = append(names, n)
	}
	for n := range ScalarFuncs {
		names = append(names, n)
	}
	return names
}
