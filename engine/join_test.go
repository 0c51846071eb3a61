package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/planner"
)

// buildJoinPlan wires a base "csv" resource LEFT JOINed to a "json"
// resource on csv.id = json.customer_id, projecting one field from each.
func buildJoinPlan(jt ast.JoinType) *planner.Plan {
	return &planner.Plan{
		Resources: []planner.ResourcePlan{
			{Alias: "csv", Resource: ast.Resource{DataSource: "csv", Src: "customers", Alias: "csv"}},
			{
				Alias:    "json",
				Resource: ast.Resource{DataSource: "json", Src: "orders", Alias: "json"},
				Merge: &planner.JoinSpec{
					Type: jt,
					Clause: ast.BinaryClause{
						P1: ast.FieldRef{Src: "csv", Field: "id"},
						Op: ast.Eq,
						P2: ast.FieldRef{Src: "json", Field: "customer_id"},
					},
				},
			},
		},
		Projection: []planner.ProjectionEntry{
			{Src: "csv", Field: "name"},
			{Src: "json", Field: "amount"},
		},
	}
}

func TestRunLeftJoinPadsUnmatchedBaseRows(t *testing.T) {
	csv := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("csv", "id"), col("csv", "name")},
		rows: []connector.Row{row(int64(1), "ada"), row(int64(2), "grace")},
	}
	json := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("json", "customer_id"), col("json", "amount")},
		rows: []connector.Row{row(int64(1), float64(42.5))},
	}
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": csv, "json": json}}

	res, _, err := Run(context.Background(), buildJoinPlan(ast.LeftJoin), resolver)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "amount"}, res.Columns)
	require.ElementsMatch(t, [][]interface{}{
		{"ada", float64(42.5)},
		{"grace", nil},
	}, res.Rows)
}

func TestRunInnerJoinDropsUnmatchedRows(t *testing.T) {
	csv := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("csv", "id"), col("csv", "name")},
		rows: []connector.Row{row(int64(1), "ada"), row(int64(2), "grace")},
	}
	json := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("json", "customer_id"), col("json", "amount")},
		rows: []connector.Row{row(int64(1), float64(42.5))},
	}
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": csv, "json": json}}

	res, _, err := Run(context.Background(), buildJoinPlan(ast.InnerJoin), resolver)
	require.NoError(t, err)
	require.Equal(t, [][]interface{}{{"ada", float64(42.5)}}, res.Rows)
}

func TestRunJoinRejectsNonFieldRefClause(t *testing.T) {
	plan := buildJoinPlan(ast.LeftJoin)
	plan.Resources[1].Merge.Clause.P2 = ast.QuotedString{Unquoted: "x"}
	csv := &fakeConnector{cols: []connector.ColumnDescriptor{col("csv", "id"), col("csv", "name")}}
	json := &fakeConnector{cols: []connector.ColumnDescriptor{col("json", "customer_id"), col("json", "amount")}}
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": csv, "json": json}}

	_, _, err := Run(context.Background(), plan, resolver)
	require.Error(t, err)
}
