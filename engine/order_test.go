package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/planner"
)

func orderedPlan(dir ast.Dir) *planner.Plan {
	return &planner.Plan{
		Resources: []planner.ResourcePlan{
			{Alias: "csv", Resource: ast.Resource{DataSource: "csv", Src: "scores", Alias: "csv"}},
		},
		OrderBy: &ast.OrderBy{Attr: ast.FieldRef{Src: "csv", Field: "score"}, Dir: dir},
		Projection: []planner.ProjectionEntry{
			{Src: "csv", Field: "name"},
			{Src: "csv", Field: "score"},
		},
	}
}

func scoresConnector() *fakeConnector {
	return &fakeConnector{
		cols: []connector.ColumnDescriptor{col("csv", "name"), col("csv", "score")},
		rows: []connector.Row{
			row("ada", float64(9)),
			row("grace", nil),
			row("alan", float64(3)),
		},
	}
}

func TestRunOrderByAscendingPutsNilLast(t *testing.T) {
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": scoresConnector()}}
	res, _, err := Run(context.Background(), orderedPlan(ast.Asc), resolver)
	require.NoError(t, err)
	require.Equal(t, [][]interface{}{
		{"alan", float64(3)},
		{"ada", float64(9)},
		{"grace", nil},
	}, res.Rows)
}

func TestRunOrderByDescendingPutsNilFirst(t *testing.T) {
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": scoresConnector()}}
	res, _, err := Run(context.Background(), orderedPlan(ast.Desc), resolver)
	require.NoError(t, err)
	require.Equal(t, [][]interface{}{
		{"grace", nil},
		{"ada", float64(9)},
		{"alan", float64(3)},
	}, res.Rows)
}

// TestRunWhereCoercesNumericStringOperand exercises the coercion table a
// WHERE clause compares through when a connector surfaces a numeric
// column as a string (spec §4.6.4): "score" > 5 should still exclude rows
// whose string value parses below the threshold.
func TestRunWhereCoercesNumericStringOperand(t *testing.T) {
	csv := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("csv", "name"), col("csv", "score")},
		rows: []connector.Row{row("ada", "9"), row("alan", "3")},
	}
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": csv}}

	plan := &planner.Plan{
		Resources: []planner.ResourcePlan{
			{Alias: "csv", Resource: ast.Resource{DataSource: "csv", Src: "scores", Alias: "csv"}},
		},
		Where: &ast.Where{Clause: ast.BinaryClause{
			P1: ast.FieldRef{Src: "csv", Field: "score"},
			Op: ast.Gt,
			P2: ast.Number{Raw: "5", IsFloat: false, Int: 5},
		}},
		Projection: []planner.ProjectionEntry{
			{Src: "csv", Field: "name"},
		},
	}

	res, _, err := Run(context.Background(), plan, resolver)
	require.NoError(t, err)
	require.Equal(t, [][]interface{}{{"ada"}}, res.Rows)
}

// TestRunOrderByDescendingIsStableForEqualKeys guards the sort.SliceStable
// contract: a DESC comparator built by negating the ASC one reports a<b for
// both orderings of an equal pair, which reverses ties instead of
// preserving them.
func TestRunOrderByDescendingIsStableForEqualKeys(t *testing.T) {
	csv := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("csv", "name"), col("csv", "score")},
		rows: []connector.Row{
			row("first", float64(5)),
			row("second", float64(5)),
			row("third", float64(9)),
		},
	}
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": csv}}
	plan := &planner.Plan{
		Resources: []planner.ResourcePlan{
			{Alias: "csv", Resource: ast.Resource{DataSource: "csv", Src: "scores", Alias: "csv"}},
		},
		OrderBy: &ast.OrderBy{Attr: ast.FieldRef{Src: "csv", Field: "score"}, Dir: ast.Desc},
		Projection: []planner.ProjectionEntry{
			{Src: "csv", Field: "name"},
		},
	}

	res, _, err := Run(context.Background(), plan, resolver)
	require.NoError(t, err)
	require.Equal(t, [][]interface{}{{"third"}, {"first"}, {"second"}}, res.Rows)
}

// TestRunAggregateThenOrdersByAggregateAliasDescending guards the
// group -> aggregate -> order -> limit -> project pipeline order: ORDER BY
// on an aggregate's own alias must apply to the aggregated rows, not be
// silently dropped because the query also has a GROUP BY.
func TestRunAggregateThenOrdersByAggregateAliasDescending(t *testing.T) {
	csv := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("csv", "region"), col("csv", "amount")},
		rows: []connector.Row{
			row("east", float64(10)),
			row("east", float64(5)),
			row("west", float64(7)),
		},
	}
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": csv}}

	sumAlias := "total"
	plan := &planner.Plan{
		Resources: []planner.ResourcePlan{
			{Alias: "csv", Resource: ast.Resource{DataSource: "csv", Src: "sales", Alias: "csv"}},
		},
		Aggregation: &planner.AggregationPlan{
			GroupKey:       ast.FieldRef{Src: "csv", Field: "region"},
			GroupKeyHeader: "region",
			Aggregates: []planner.FuncPlan{
				{Call: ast.FuncCall{Name: "SUM", Kind: ast.AggregateFunc, Params: []ast.FuncParam{ast.FieldRef{Src: "csv", Field: "amount"}}, Alias: &sumAlias, Ident: "sum_0"}},
			},
		},
		OrderBy: &ast.OrderBy{Attr: ast.AliasRef{Alias: "total"}, Dir: ast.Desc},
	}

	res, _, err := Run(context.Background(), plan, resolver)
	require.NoError(t, err)
	require.Equal(t, []string{"region", "total"}, res.Columns)
	require.Equal(t, [][]interface{}{
		{"east", float64(15)},
		{"west", float64(7)},
	}, res.Rows)
}
