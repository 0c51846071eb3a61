package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedsql/fedsql/ast"
)

func TestParseSelectStar(t *testing.T) {
	segs, err := Parse("SELECT c.* FROM csv.'/data/orders.csv' c")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	sel, ok := segs[0].(*ast.Select)
	require.True(t, ok)
	assert.Equal(t, ast.Resource{DataSource: "csv", Src: "/data/orders.csv", Alias: "c"}, sel.Resource)
	require.Len(t, sel.Fields, 1)
	assert.Equal(t, ast.Star{Src: "c"}, sel.Fields[0])
}

func TestParseFieldsWithAlias(t *testing.T) {
	segs, err := Parse("SELECT c.id, c.name AS customer_name FROM oracle.customers c")
	require.NoError(t, err)
	sel := segs[0].(*ast.Select)
	require.Len(t, sel.Fields, 2)
	assert.Equal(t, ast.Field{Src: "c", Field: "id"}, sel.Fields[0])
	name := "customer_name"
	assert.Equal(t, ast.Field{Src: "c", Field: "name", Alias: &name}, sel.Fields[1])
}

func TestParseCSVJSONLeftJoin(t *testing.T) {
	q := `SELECT o.order_id, o.total, s.status AS order_status
FROM csv.'/data/orders.csv' o
LEFT JOIN webapi.shipping_status s ON (o.order_id = s.order_id)
WHERE (o.total > 100)
ORDER BY o.total DESC
LIMIT 50`
	segs, err := Parse(q)
	require.NoError(t, err)
	require.Len(t, segs, 5)

	sel, ok := segs[0].(*ast.Select)
	require.True(t, ok)
	assert.Equal(t, "csv", sel.Resource.DataSource)
	assert.Equal(t, "/data/orders.csv", sel.Resource.Src)
	assert.Equal(t, "o", sel.Resource.Alias)

	join, ok := segs[1].(*ast.Join)
	require.True(t, ok)
	assert.Equal(t, ast.LeftJoin, join.Type)
	assert.Equal(t, "webapi", join.Resource.DataSource)
	assert.Equal(t, "shipping_status", join.Resource.Src)
	assert.Equal(t, ast.FieldRef{Src: "o", Field: "order_id"}, join.Clause.P1)
	assert.Equal(t, ast.Eq, join.Clause.Op)
	assert.Equal(t, ast.FieldRef{Src: "s", Field: "order_id"}, join.Clause.P2)

	where, ok := segs[2].(*ast.Where)
	require.True(t, ok)
	assert.Equal(t, ast.Gt, where.Clause.Op)
	num, ok := where.Clause.P2.(ast.Number)
	require.True(t, ok)
	assert.Equal(t, int64(100), num.Int)

	order, ok := segs[3].(*ast.OrderBy)
	require.True(t, ok)
	assert.Equal(t, ast.Desc, order.Dir)
	assert.Equal(t, ast.FieldRef{Src: "o", Field: "total"}, order.Attr)

	limit, ok := segs[4].(*ast.Limit)
	require.True(t, ok)
	assert.Equal(t, 50, limit.N)
}

func TestParseAggregateWithGroupBy(t *testing.T) {
	q := "SELECT s.region, COUNT(s.order_id) AS order_count FROM oracle.sales s GROUP BY s.region"
	segs, err := Parse(q)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	sel := segs[0].(*ast.Select)
	fc, ok := sel.Fields[1].(ast.FuncCall)
	require.True(t, ok)
	assert.Equal(t, "COUNT", fc.Name)
	assert.Equal(t, ast.AggregateFunc, fc.Kind)
	require.Len(t, fc.Params, 1)
	assert.Equal(t, ast.FieldRef{Src: "s", Field: "order_id"}, fc.Params[0])
	require.NotNil(t, fc.Alias)
	assert.Equal(t, "order_count", *fc.Alias)

	gb := segs[1].(*ast.GroupBy)
	assert.Equal(t, ast.FieldRef{Src: "s", Field: "region"}, gb.Attr)
}

func TestParseUnaliasedFuncIdent(t *testing.T) {
	q := "SELECT LOWER(c.name), UPPER(c.email) FROM oracle.customers c"
	segs, err := Parse(q)
	require.NoError(t, err)
	sel := segs[0].(*ast.Select)
	f0 := sel.Fields[0].(ast.FuncCall)
	f1 := sel.Fields[1].(ast.FuncCall)
	assert.Equal(t, "LOWER_0", f0.Ident)
	assert.Equal(t, "UPPER_1", f1.Ident)
}

func TestParseGroupByAliasRef(t *testing.T) {
	q := "SELECT COUNT(s.id) AS c FROM oracle.sales s GROUP BY c"
	segs, err := Parse(q)
	require.NoError(t, err)
	gb := segs[1].(*ast.GroupBy)
	assert.Equal(t, ast.AliasRef{Alias: "c"}, gb.Attr)
}

func TestParseCountDistinct(t *testing.T) {
	q := "SELECT COUNT(DISTINCT s.customer_id) AS c FROM oracle.sales s"
	segs, err := Parse(q)
	require.NoError(t, err)
	sel := segs[0].(*ast.Select)
	fc := sel.Fields[0].(ast.FuncCall)
	require.Len(t, fc.Params, 2)
	assert.Equal(t, ast.AtomLiteral{Value: "DISTINCT"}, fc.Params[0])
	assert.Equal(t, ast.FieldRef{Src: "s", Field: "customer_id"}, fc.Params[1])
}

func TestParseConcatWithStringLiteral(t *testing.T) {
	q := `SELECT CONCAT(c.first, ' ', c.last) AS full_name FROM oracle.customers c`
	segs, err := Parse(q)
	require.NoError(t, err)
	sel := segs[0].(*ast.Select)
	fc := sel.Fields[0].(ast.FuncCall)
	assert.Equal(t, ast.ScalarVarargsFunc, fc.Kind)
	require.Len(t, fc.Params, 3)
	assert.Equal(t, ast.QuotedString{Raw: "' '", Unquoted: " "}, fc.Params[1])
}

func TestParseStringLiteralWithEscapedQuote(t *testing.T) {
	q := `SELECT c.id FROM oracle.customers c WHERE (c.name = 'O''Brien')`
	segs, err := Parse(q)
	require.NoError(t, err)
	where := segs[1].(*ast.Where)
	qs := where.Clause.P2.(ast.QuotedString)
	assert.Equal(t, "O'Brien", qs.Unquoted)
}

// totality: a malformed query (HAVING is not part of the grammar) always
// returns an *Error naming a position, never a panic or partial result.
func TestParseRejectsHaving(t *testing.T) {
	q := "SELECT s.region, COUNT(s.id) AS c FROM oracle.sales s GROUP BY s.region HAVING c > 5"
	_, err := Parse(q)
	require.Error(t, err)
	perr, ok := err.(*Error)
	require.True(t, ok)
	assert.Greater(t, perr.Position, 0)
}

func TestParseRejectsSecondWhere(t *testing.T) {
	q := "SELECT c.id FROM oracle.customers c WHERE (c.id = 1) WHERE (c.id = 2)"
	_, err := Parse(q)
	require.Error(t, err)
}

func TestParseRejectsMissingFrom(t *testing.T) {
	_, err := Parse("SELECT c.id")
	require.Error(t, err)
}

func TestParseCaseSensitiveKeyword(t *testing.T) {
	// lowercase "select" is not a recognized keyword in this dialect.
	_, err := Parse("select c.id FROM oracle.customers c")
	require.Error(t, err)
}

func TestParseNegativeNumberOperand(t *testing.T) {
	q := "SELECT c.id FROM oracle.customers c WHERE (c.balance < -100.5)"
	segs, err := Parse(q)
	require.NoError(t, err)
	where := segs[1].(*ast.Where)
	num := where.Clause.P2.(ast.Number)
	assert.True(t, num.IsFloat)
	assert.Equal(t, -100.5, num.Float)
}

func TestParseErrorContext(t *testing.T) {
	_, err := Parse("SELECT c.id FROM oracle.customers c HAVING c.id > 1")
	perr, ok := err.(*Error)
	require.True(t, ok)
	ctx := perr.Context()
	assert.Contains(t, ctx, "^")
}
