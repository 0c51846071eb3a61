package engine

import (
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/planner"
	"github.com/fedsql/fedsql/pkg/fs"
	"github.com/fedsql/fedsql/qerr"
)

// Result is the finalized, spillable shape of one query's output: column
// headers in declaration order and the row values underneath, per spec
// §6.2's result_sets wire format.
type Result struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

type resultEnvelope struct {
	Data Result `json:"data"`
}

// project builds the final header/row shape from a RowSet, handling
// Star expansion and the declaration order of the non-aggregated
// projection; the aggregation path's RowSet is already in its final shape
// by the time it reaches here.
func project(rs RowSet, p *planner.Plan) (Result, error) {
	if p.Aggregation != nil {
		return projectAggregation(rs, p.Aggregation), nil
	}
	return projectSelect(rs, p.Projection)
}

func projectAggregation(rs RowSet, agg *planner.AggregationPlan) Result {
	var cols []string
	if agg.GroupKey != nil {
		cols = append(cols, agg.GroupKeyHeader)
	}
	for _, a := range agg.Aggregates {
		cols = append(cols, funcPlanHeader(a))
	}
	rows := make([][]interface{}, len(rs.Rows))
	for i, row := range rs.Rows {
		rows[i] = append([]interface{}{}, row.Cells...)
	}
	return Result{Columns: cols, Rows: rows}
}

func projectSelect(rs RowSet, entries []planner.ProjectionEntry) (Result, error) {
	var cols []string
	type selector struct {
		star bool
		idxs []int
		idx  int
	}
	var selectors []selector

	for _, e := range entries {
		switch {
		case e.IsStar:
			idxs := rs.Cols.FindAlias(e.StarSrc)
			selectors = append(selectors, selector{star: true, idxs: idxs})
			for _, idx := range idxs {
				cols = append(cols, starHeader(rs.Cols.At(idx)))
			}
		case e.IsFunc:
			idx, ok := findFuncColumn(rs.Cols, e.Func.Call)
			if !ok {
				return Result{}, qerr.E(qerr.InternalError, "function column missing from row set: "+e.Func.Call.Ident)
			}
			selectors = append(selectors, selector{idx: idx})
			cols = append(cols, e.Header())
		default:
			idx, ok := rs.Cols.Find(e.Src, e.Field)
			if !ok {
				return Result{}, qerr.E(qerr.ValidationError, "field not in source schema: "+e.Src+"."+e.Field)
			}
			selectors = append(selectors, selector{idx: idx})
			cols = append(cols, e.Header())
		}
	}

	rows := make([][]interface{}, len(rs.Rows))
	for r, row := range rs.Rows {
		var cells []interface{}
		for _, s := range selectors {
			if s.star {
				for _, idx := range s.idxs {
					cells = append(cells, row.Cells[idx])
				}
				continue
			}
			cells = append(cells, row.Cells[s.idx])
		}
		rows[r] = cells
	}
	return Result{Columns: cols, Rows: rows}, nil
}

// funcPlanHeader mirrors planner.FuncPlan's own (unexported) header logic:
// a user alias if given, otherwise the synthesized ident.
func funcPlanHeader(fp planner.FuncPlan) string {
	if fp.Call.Alias != nil {
		return *fp.Call.Alias
	}
	return fp.Call.Ident
}

func starHeader(col connector.ColumnDescriptor) string {
	if col.UserAlias != "" {
		return col.UserAlias
	}
	return col.Field
}

func findFuncColumn(ci *ColumnIndex, call ast.FuncCall) (int, bool) {
	for i := 0; i < ci.Len(); i++ {
		c := ci.At(i)
		if c.IsFunction && c.Field == call.Ident {
			return i, true
		}
	}
	return 0, false
}

// Spill writes a Result to {baseDir}/{requestID}.json atomically, per spec
// §6.2.
func Spill(baseDir, requestID string, res Result) error {
	path := filepath.Join(baseDir, requestID+".json")
	return fs.ReplaceFile(path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		return enc.Encode(resultEnvelope{Data: res})
	})
}
