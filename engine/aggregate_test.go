package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/planner"
)

func countCall(alias string, distinct bool, field string) ast.FuncCall {
	var params []ast.FuncParam
	if distinct {
		params = append(params, ast.AtomLiteral{Value: "DISTINCT"})
	}
	params = append(params, ast.FieldRef{Src: "csv", Field: field})
	return ast.FuncCall{Name: "COUNT", Kind: ast.AggregateFunc, Params: params, Alias: &alias, Ident: "count_0"}
}

func TestRunAggregateGroupsByKey(t *testing.T) {
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
	}

	res, _, err := Run(context.Background(), plan, resolver)
	require.NoError(t, err)
	require.Equal(t, []string{"region", "total"}, res.Columns)
	require.ElementsMatch(t, [][]interface{}{
		{"east", float64(15)},
		{"west", float64(7)},
	}, res.Rows)
}

func TestRunAggregateWithoutGroupByReducesWholeSet(t *testing.T) {
	csv := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("csv", "region"), col("csv", "amount")},
		rows: []connector.Row{row("east", float64(10)), row("west", float64(7))},
	}
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": csv}}

	plan := &planner.Plan{
		Resources: []planner.ResourcePlan{
			{Alias: "csv", Resource: ast.Resource{DataSource: "csv", Src: "sales", Alias: "csv"}},
		},
		Aggregation: &planner.AggregationPlan{
			Aggregates: []planner.FuncPlan{
				{Call: countCall("n", false, "region")},
			},
		},
	}

	res, _, err := Run(context.Background(), plan, resolver)
	require.NoError(t, err)
	require.Equal(t, []string{"n"}, res.Columns)
	require.Equal(t, [][]interface{}{{int64(2)}}, res.Rows)
}

func TestRunAggregateCountDistinct(t *testing.T) {
	csv := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("csv", "region")},
		rows: []connector.Row{row("east"), row("east"), row("west")},
	}
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": csv}}

	plan := &planner.Plan{
		Resources: []planner.ResourcePlan{
			{Alias: "csv", Resource: ast.Resource{DataSource: "csv", Src: "sales", Alias: "csv"}},
		},
		Aggregation: &planner.AggregationPlan{
			Aggregates: []planner.FuncPlan{
				{Call: countCall("distinct_regions", true, "region")},
			},
		},
	}

	res, _, err := Run(context.Background(), plan, resolver)
	require.NoError(t, err)
	require.Equal(t, [][]interface{}{{int64(2)}}, res.Rows)
}
