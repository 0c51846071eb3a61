package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedsql/fedsql/ast"
	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/function"
	"github.com/fedsql/fedsql/parser"
	"github.com/fedsql/fedsql/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]*registry.Entry{
		{Name: "csv", Type: "csv", Class: registry.File, FuncModule: function.ForceAll{}},
		{Name: "json", Type: "json", Class: registry.File, FuncModule: function.ForceAll{}},
		{Name: "oracle", Type: "Oracle", Class: registry.Relational, FuncModule: function.RelationalScalar{}},
		{Name: "ds", Type: "generic", Class: registry.File, FuncModule: function.ForceAll{}},
	}, 0)
	require.NoError(t, err)
	return reg
}

func mustParse(t *testing.T, q string) []ast.Segment {
	t.Helper()
	segs, err := parser.Parse(q)
	require.NoError(t, err)
	return segs
}

func TestPlanUnknownDataSource(t *testing.T) {
	reg := testRegistry(t)
	segs := mustParse(t, "SELECT a.* FROM absent.t a")
	_, err := BuildPlan(segs, reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Data source(s) do not exist: absent")
}

func TestPlanLeftJoinScenario(t *testing.T) {
	reg := testRegistry(t)
	q := `SELECT csv.name AS name,json.category AS category FROM csv.'one.csv' csv LEFT JOIN json.'two.json' json ON (csv.id = json.id) ORDER BY csv.id ASC`
	segs := mustParse(t, q)
	plan, err := BuildPlan(segs, reg)
	require.NoError(t, err)
	require.Len(t, plan.Resources, 2)
	assert.Equal(t, "csv", plan.Resources[0].Alias)
	assert.Equal(t, "json", plan.Resources[1].Alias)
	require.NotNil(t, plan.Resources[1].Merge)
	assert.Equal(t, ast.LeftJoin, plan.Resources[1].Merge.Type)

	// csv resource must fetch both "name" (projected) and "id" (join key,
	// not otherwise selected).
	csvFields := attributeFields(plan.Resources[0].Attributes)
	assert.Contains(t, csvFields, "name")
	assert.Contains(t, csvFields, "id")

	jsonFields := attributeFields(plan.Resources[1].Attributes)
	assert.Contains(t, jsonFields, "category")
	assert.Contains(t, jsonFields, "id")

	require.Len(t, plan.Projection, 2)
	assert.Equal(t, "name", plan.Projection[0].Header())
	assert.Equal(t, "category", plan.Projection[1].Header())
}

func attributeFields(attrs []connector.Attribute) []string {
	var fields []string
	for _, a := range attrs {
		if a.Field != "" {
			fields = append(fields, a.Field)
		}
	}
	return fields
}

func TestPlanGroupByAggregate(t *testing.T) {
	reg := testRegistry(t)
	q := "SELECT s.u, COUNT(s.msg) AS c FROM ds.t s GROUP BY s.u ORDER BY c DESC"
	segs := mustParse(t, q)
	plan, err := BuildPlan(segs, reg)
	require.NoError(t, err)
	require.NotNil(t, plan.Aggregation)
	assert.Equal(t, "u", plan.Aggregation.GroupKeyHeader)
	require.Len(t, plan.Aggregation.Aggregates, 1)
	assert.Equal(t, "COUNT", plan.Aggregation.Aggregates[0].Call.Name)
	assert.Equal(t, "c", plan.Aggregation.Aggregates[0].header())
}

func TestPlanGroupByViolation(t *testing.T) {
	reg := testRegistry(t)
	q := "SELECT s.u, s.other, COUNT(s.msg) AS c FROM ds.t s GROUP BY s.u"
	segs := mustParse(t, q)
	_, err := BuildPlan(segs, reg)
	require.Error(t, err)
}

func TestPlanUnknownFunctionSuggestion(t *testing.T) {
	reg := testRegistry(t)
	q := "SELECT LOWR(c.name) FROM oracle.customers c"
	segs := mustParse(t, q)
	_, err := BuildPlan(segs, reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOWER")
}

func TestPlanScalarPushdown(t *testing.T) {
	reg := testRegistry(t)
	q := "SELECT LOWER(c.name) AS n FROM oracle.customers c"
	segs := mustParse(t, q)
	plan, err := BuildPlan(segs, reg)
	require.NoError(t, err)
	assert.Empty(t, plan.ScalarPlatform)
	require.Len(t, plan.Resources[0].Attributes, 1)
	assert.True(t, plan.Resources[0].Attributes[0].IsFunction)
	assert.Equal(t, "LOWER(c.name)", plan.Resources[0].Attributes[0].Rendered)
}

func TestPlanScalarPlatformForFileSource(t *testing.T) {
	reg := testRegistry(t)
	q := "SELECT LOWER(csv.name) AS n FROM csv.'f.csv' csv"
	segs := mustParse(t, q)
	plan, err := BuildPlan(segs, reg)
	require.NoError(t, err)
	require.Len(t, plan.ScalarPlatform, 1)
	assert.Equal(t, "LOWER", plan.ScalarPlatform[0].Call.Name)
}

func TestPlanInvalidJoinClause(t *testing.T) {
	reg := testRegistry(t)
	q := `SELECT a.x FROM ds.a a LEFT JOIN ds.b b ON (a.x = a.y)`
	segs := mustParse(t, q)
	_, err := BuildPlan(segs, reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid join clause")
}
