// Package connector defines the contract every data-source backend
// (relational, file, web-api) implements, plus the row/column types that
// contract speaks in. The contract is deliberately narrow — connect,
// prepare, stream, columns — so new backends slot in without touching the
// engine (spec §4.3).
package connector

import (
	"context"
)

// ColumnDescriptor identifies one output column by the triple the engine's
// column index is built from: which source alias it came from, its native
// field name, and the user-facing alias (if the query set one).
type ColumnDescriptor struct {
	Alias      string // source alias, e.g. "c" in "FROM oracle.customers c"
	Field      string // native field/column name, or a function ident for computed columns
	UserAlias  string // SELECT-list alias, empty if none was given
	IsFunction bool   // true when this column is a pushed-down function result
}

// Row is one fetched record: a plain value vector aligned 1:1 with the
// stream's ColumnDescriptor list. Values are one of nil, bool, int64,
// float64, or string — the universal cell types used throughout the engine.
type Row struct {
	Cells []interface{}
}

// RowResult is one item yielded by a row stream: either a Row, or a
// FetchError that aborts the stream per spec §4.3.
type RowResult struct {
	Row Row
	Err error
}

// Attribute is one field the engine needs fetched from this resource, as
// prepared by the planner. Native selects a plain column by name; when
// Rendered is set the connector's prepare stage embeds it verbatim in the
// projection (a function-capability-module pushdown result), aliased to
// Ident in the emitted result.
type Attribute struct {
	Field      string // native field name; empty when Rendered is set
	Star       bool   // expand to every column of this resource
	Rendered   string // pre-rendered native-language fragment for a pushed-down function
	Ident      string // output identifier: field name, SELECT alias, or FuncCall.Ident
	IsFunction bool
}

// FetchSpec is everything a connector needs to run one resource's fetch:
// which resource, and which attributes to project.
type FetchSpec struct {
	DataSource string
	Src        string
	Alias      string
	Attributes []Attribute
}

// Handle is an opaque, connector-owned connection handle (socket, file
// descriptor, HTTP client). Connectors type-assert their own concrete type
// back out of it.
type Handle interface {
	Close() error
}

// ResultHandle is an opaque, connector-owned prepared-query handle.
type ResultHandle interface {
	Columns() []ColumnDescriptor
}

// RowIter lazily yields rows from a prepared result. Callers must call
// Close when done, including on error paths.
type RowIter interface {
	Next(ctx context.Context) (RowResult, bool)
	Close() error
}

// Connector is the full backend contract spec §4.3 requires.
type Connector interface {
	Connect(ctx context.Context, props map[string]string, constants map[string]string) (Handle, error)
	Prepare(ctx context.Context, h Handle, spec FetchSpec) (ResultHandle, error)
	Stream(ctx context.Context, rh ResultHandle) (RowIter, error)
}

// RowIsAllNil reports whether every cell of r is nil, the shape of a row
// that a LEFT/RIGHT join padded with nils because no counterpart matched.
// The engine's aggregates use their own equivalent check on engine rows.
func RowIsAllNil(r Row) bool {
	for _, c := range r.Cells {
		if c != nil {
			return false
		}
	}
	return true
}
