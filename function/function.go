// Package function implements the per-data-source-class Function
// Capability Module: given a scalar FuncCall, decide whether the owning
// connector can render it into its native query language, or whether the
// platform must evaluate it itself.
package function

import (
	"fmt"

	"github.com/fedsql/fedsql/ast"
)

// Supports is returned when a connector can push a call down; Rendered is
// the native-language fragment the connector's prepare stage embeds in its
// projection string.
type Supports struct {
	Rendered string
}

// Module classifies scalar function calls for one data-source class.
// Aggregate and scalar-varargs calls are never offered to a Module — the
// planner always evaluates those on the platform (spec §4.4) — so Supports
// only ever needs to answer for ast.ScalarFunc calls.
type Module interface {
	Supports(call ast.FuncCall) (Supports, bool)
}

// ForceAll always reports Unsupported, used for data-source classes with
// no native function language of their own (flat files, REST endpoints).
type ForceAll struct{}

func (ForceAll) Supports(ast.FuncCall) (Supports, bool) { return Supports{}, false }

// RelationalScalar renders the closed set of scalar functions as SQL,
// leaving anything else (including every aggregate and varargs call) to
// the platform. The planner's classify-functions stage (§4.5.4) calls in
// only when every parameter is a field reference or star on this
// connector's own alias; Supports itself declines any call with a
// parameter that is not a field reference.
type RelationalScalar struct{}

func (RelationalScalar) Supports(call ast.FuncCall) (Supports, bool) {
	if call.Kind != ast.ScalarFunc {
		return Supports{}, false
	}
	args := make([]string, 0, len(call.Params))
	for _, p := range call.Params {
		fr, ok := p.(ast.FieldRef)
		if !ok {
			return Supports{}, false
		}
		args = append(args, fr.Src+"."+fr.Field)
	}
	switch call.Name {
	case "LOWER", "UPPER":
		if len(args) != 1 {
			return Supports{}, false
		}
		return Supports{Rendered: fmt.Sprintf("%s(%s)", call.Name, args[0])}, true
	default:
		return Supports{}, false
	}
}
