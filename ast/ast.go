// Package ast defines the typed abstract syntax tree produced by package
// parser: an ordered sequence of query segments (SELECT, JOIN, WHERE,
// GROUP BY, ORDER BY, LIMIT), each segment carrying exactly the fields it
// needs. Planner-owned bookkeeping (ordinal position in the output,
// whether an attribute is fetched only to be dropped before projection,
// whether a scalar function has already been applied) is not part of this
// tree — the planner tracks that in its own side tables so the AST stays a
// pure, comparable description of what the query text said.
package ast

// Segment is one ordered clause of a parsed query.
type Segment interface {
	segment()
	// Pos is the byte offset in the source text where this segment began.
	Pos() int
}

// Base carries the byte offset a segment started at and is embedded in
// every concrete Segment. Exported so package parser can set it directly
// in a struct literal.
type Base struct{ Offset int }

func (b Base) Pos() int { return b.Offset }

// Resource names a data source/table/file/endpoint reference; alias is
// mandatory on every resource per the grammar.
type Resource struct {
	DataSource string
	Src        string
	Alias      string
}

// JoinType enumerates the supported join kinds. Exactly one JOIN segment
// is supported per query (see the Open Questions in the design notes).
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
)

func (t JoinType) String() string {
	switch t {
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	default:
		return "INNER"
	}
}

// Dir is an ORDER BY direction.
type Dir int

const (
	Asc Dir = iota
	Desc
)

func (d Dir) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Select is always the first segment of a query.
type Select struct {
	Base
	Fields   []FieldExpr
	Resource Resource
}

func (*Select) segment() {}

// Join is a secondary resource joined against the accumulated row stream.
type Join struct {
	Base
	Type     JoinType
	Resource Resource
	Clause   BinaryClause
}

func (*Join) segment() {}

// Where filters rows with a single binary comparison.
type Where struct {
	Base
	Clause BinaryClause
}

func (*Where) segment() {}

// AttrRef names the attribute a GROUP BY or ORDER BY segment keys on:
// either a source field (FieldRef) or a user-supplied SELECT alias
// (AliasRef). Per the design notes, when a name could be read as either,
// AliasRef wins.
type AttrRef interface {
	attrRef()
}

// GroupBy groups the row set on a single attribute's value.
type GroupBy struct {
	Base
	Attr AttrRef
}

func (*GroupBy) segment() {}

// OrderBy sorts the row set on a single attribute.
type OrderBy struct {
	Base
	Attr AttrRef
	Dir  Dir
}

func (*OrderBy) segment() {}

// Limit caps the row set to the first N rows.
type Limit struct {
	Base
	N int
}

func (*Limit) segment() {}

// FieldRef names a plain field on a source alias, e.g. "csv.name".
type FieldRef struct {
	Src   string
	Field string
}

func (FieldRef) attrRef() {}
func (FieldRef) operand() {}
func (FieldRef) funcParam() {}

// AliasRef names a user-supplied SELECT alias, e.g. the "c" in
// "GROUP BY c" when the SELECT list has "COUNT(s.msg) AS c".
type AliasRef struct {
	Alias string
}

func (AliasRef) attrRef()   {}
func (AliasRef) funcParam() {}

// FieldExpr is one item of a SELECT list.
type FieldExpr interface {
	fieldExpr()
}

// Star selects every column of a source alias ("csv.*").
type Star struct {
	Src string
}

func (Star) fieldExpr() {}
func (Star) funcParam() {}

// Field selects one named field, optionally with a user alias.
type Field struct {
	Src   string
	Field string
	Alias *string
}

func (Field) fieldExpr() {}

// FuncKind classifies a function call by arity/aggregation shape, fixed at
// parse time from the closed symbol sets in the grammar.
type FuncKind int

const (
	ScalarFunc FuncKind = iota
	ScalarVarargsFunc
	AggregateFunc
	// UnknownFunc marks a syntactically valid call to a name outside the
	// closed function set; the planner rejects it with a ValidationError.
	UnknownFunc
)

// FuncCall is a scalar, scalar-varargs, or aggregate function invocation
// in a SELECT list. Ident disambiguates unaliased function outputs within
// one SELECT list ("LOWER_2" = function name as written + underscore + zero-based
// index among the SELECT fields); the parser synthesizes it when Alias is
// nil, per the grammar contract.
type FuncCall struct {
	Name   string
	Kind   FuncKind
	Params []FuncParam
	Alias  *string
	Ident  string
}

func (FuncCall) fieldExpr() {}

// FuncParam is one argument to a function call.
type FuncParam interface {
	funcParam()
}

// QuotedString is a single-quoted string literal, usable both as a
// function argument and as a WHERE/JOIN comparison operand.
type QuotedString struct {
	Raw      string
	Unquoted string
}

func (QuotedString) funcParam() {}
func (QuotedString) operand()   {}

// AtomLiteral is a bare keyword argument drawn from the closed set
// {DISTINCT}.
type AtomLiteral struct {
	Value string
}

func (AtomLiteral) funcParam() {}

// Op is a BinaryClause comparison operator.
type Op int

const (
	Eq Op = iota
	Neq
	Lte
	Gte
	Lt
	Gt
)

func (o Op) String() string {
	switch o {
	case Eq:
		return "="
	case Neq:
		return "<>"
	case Lte:
		return "<="
	case Gte:
		return ">="
	case Lt:
		return "<"
	case Gt:
		return ">"
	}
	return "?"
}

// Operand is one side of a BinaryClause: a field reference, a quoted
// string, or a numeric literal.
type Operand interface {
	operand()
}

// Number is a numeric literal matching [+-]?digits(.digits)?.
type Number struct {
	Raw     string
	IsFloat bool
	Int     int64
	Float   float64
}

func (Number) operand() {}

// BinaryClause is the sole comparison shape supported by WHERE and the
// JOIN ON clause: exactly one operator between exactly two operands.
type BinaryClause struct {
	P1 Operand
	Op Op
	P2 Operand
}
