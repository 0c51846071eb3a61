package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/planner"
)

func TestRunProjectsStarAndNamedFields(t *testing.T) {
	csv := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("csv", "id"), col("csv", "name")},
		rows: []connector.Row{row(int64(1), "ada"), row(int64(2), "grace")},
	}
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": csv}}

	plan := &planner.Plan{
		Resources: []planner.ResourcePlan{
			{Alias: "csv", Resource: ast.Resource{DataSource: "csv", Src: "people", Alias: "csv"}},
		},
		Projection: []planner.ProjectionEntry{
			{IsStar: true, StarSrc: "csv"},
		},
	}

	res, _, err := Run(context.Background(), plan, resolver)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, res.Columns)
	require.Equal(t, [][]interface{}{{int64(1), "ada"}, {int64(2), "grace"}}, res.Rows)
}

func TestRunProjectsSingleAliasedField(t *testing.T) {
	csv := &fakeConnector{
		cols: []connector.ColumnDescriptor{col("csv", "id"), col("csv", "name")},
		rows: []connector.Row{row(int64(1), "ada")},
	}
	resolver := &fakeResolver{bySrc: map[string]*fakeConnector{"csv": csv}}

	alias := "full_name"
	plan := &planner.Plan{
		Resources: []planner.ResourcePlan{
			{Alias: "csv", Resource: ast.Resource{DataSource: "csv", Src: "people", Alias: "csv"}},
		},
		Projection: []planner.ProjectionEntry{
			{Src: "csv", Field: "name", UserAlias: alias},
		},
	}

	res, _, err := Run(context.Background(), plan, resolver)
	require.NoError(t, err)
	require.Equal(t, []string{"full_name"}, res.Columns)
	require.Equal(t, [][]interface{}{{"ada"}}, res.Rows)
}
