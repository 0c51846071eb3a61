// Package relational implements the ODBC-backed connector for databases
// reachable only via Kerberos authentication (spec §4.3.1). Rows stream
// tuple-by-tuple; NULL sentinels become the universal nil.
package relational

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/qerr"
)

// DescribeTable resolves the full, ordered column list of a table, used
// to expand Star{alias} into the real projection before building the SQL
// string (spec §4.3.1).
type DescribeTable func(ctx context.Context, h *Handle, table string) ([]string, error)

// Exec runs the built SQL string and returns a cursor-like row source.
// Real drivers plug in here (database/sql + an ODBC driver); the
// connector itself only shapes the query text and coerces results.
type Exec func(ctx context.Context, h *Handle, query string) (Cursor, error)

// Cursor is the minimal tuple-at-a-time contract a real ODBC driver
// adapter must satisfy.
type Cursor interface {
	Next(ctx context.Context) ([]interface{}, bool, error)
	Close() error
}

// Connector implements connector.Connector for Kerberos-authenticated
// relational sources.
type Connector struct {
	Kinit    func(ctx context.Context, keytab, principal string) error
	Describe DescribeTable
	RunQuery Exec
}

// Handle is the relational connector's connection handle: a connection
// string built from the configured template plus whatever state Exec
// needs to run queries against it.
type Handle struct {
	ConnString string
	closeFn    func() error
}

func (h *Handle) Close() error {
	if h.closeFn == nil {
		return nil
	}
	return h.closeFn()
}

// resultHandle pairs the built SQL text with the column descriptors the
// engine will index rows by, plus the connection handle Stream runs it
// against.
type resultHandle struct {
	handle *Handle
	sql    string
	cols   []connector.ColumnDescriptor
}

func (r *resultHandle) Columns() []connector.ColumnDescriptor { return r.cols }

func defaultKinit(ctx context.Context, keytab, principal string) error {
	if keytab == "" || principal == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, "kinit", "-kt", keytab, principal)
	if out, err := cmd.CombinedOutput(); err != nil {
		return qerr.E(qerr.ConnectError, fmt.Errorf("kinit failed: %w: %s", err, out))
	}
	return nil
}

// New builds a relational Connector. A nil kinit falls back to invoking
// the system `kinit` binary directly, matching the spec's "performs kinit
// with configured client keytab and principal" requirement without this
// package taking a hard dependency on a specific Kerberos library.
func New(describe DescribeTable, run Exec, kinit func(ctx context.Context, keytab, principal string) error) *Connector {
	if kinit == nil {
		kinit = defaultKinit
	}
	return &Connector{Kinit: kinit, Describe: describe, RunQuery: run}
}

// Connect performs kinit, then substitutes $driver/$hostname/$database/
// $spn/$uid into the configured connection string template.
func (c *Connector) Connect(ctx context.Context, props map[string]string, constants map[string]string) (connector.Handle, error) {
	keytab := constants["kerberos_client_keytab"]
	principal := constants["kerberos_client_uid"]
	if err := c.Kinit(ctx, keytab, principal); err != nil {
		return nil, err
	}
	template := constants["connection_string_template"]
	connString := substituteTemplate(template, props)
	return &Handle{ConnString: connString}, nil
}

func substituteTemplate(template string, props map[string]string) string {
	r := template
	for _, key := range []string{"driver", "hostname", "database", "spn", "uid"} {
		r = strings.ReplaceAll(r, "$"+key, props[key])
	}
	return r
}

// Prepare builds a single `SELECT {projection} FROM {src}[ {alias}]`
// string, expanding any Star attribute into the table's full column list
// (deduplicated against the explicit projection) and embedding pushed-down
// function fragments as `"{func_sql} AS {ident}"`.
func (c *Connector) Prepare(ctx context.Context, h connector.Handle, spec connector.FetchSpec) (connector.ResultHandle, error) {
	handle, ok := h.(*Handle)
	if !ok {
		return nil, qerr.E(qerr.InternalError, "relational connector given a foreign handle")
	}
	var projection []string
	var cols []connector.ColumnDescriptor
	seen := map[string]bool{}

	addField := func(field string) {
		if seen[field] {
			return
		}
		seen[field] = true
		projection = append(projection, field)
		cols = append(cols, connector.ColumnDescriptor{Alias: spec.Alias, Field: field})
	}

	for _, attr := range spec.Attributes {
		switch {
		case attr.Star:
			if c.Describe == nil {
				return nil, qerr.E(qerr.ConnectError, "relational connector has no DESCRIBE TABLE capability")
			}
			allCols, err := c.Describe(ctx, handle, spec.Src)
			if err != nil {
				return nil, qerr.E(qerr.ConnectError, err)
			}
			for _, col := range allCols {
				addField(col)
			}
		case attr.Rendered != "":
			projection = append(projection, fmt.Sprintf("%s AS %s", attr.Rendered, attr.Ident))
			cols = append(cols, connector.ColumnDescriptor{Alias: spec.Alias, Field: attr.Ident, UserAlias: attr.Ident, IsFunction: true})
		default:
			addField(attr.Field)
		}
	}

	from := spec.Src
	if spec.Alias != "" {
		from = from + " " + spec.Alias
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(projection, ", "), from)
	return &resultHandle{handle: handle, sql: sql, cols: cols}, nil
}

type rowIter struct {
	cursor Cursor
}

func (it *rowIter) Next(ctx context.Context) (connector.RowResult, bool) {
	vals, ok, err := it.cursor.Next(ctx)
	if err != nil {
		return connector.RowResult{Err: qerr.E(qerr.FetchError, err)}, true
	}
	if !ok {
		return connector.RowResult{}, false
	}
	for i, v := range vals {
		if isNullSentinel(v) {
			vals[i] = nil
		}
	}
	return connector.RowResult{Row: connector.Row{Cells: vals}}, true
}

func (it *rowIter) Close() error { return it.cursor.Close() }

// isNullSentinel recognizes driver-specific NULL sentinels beyond a plain
// Go nil (some ODBC bridges surface NULL as a typed nil pointer or a
// dedicated marker value); real driver adapters extend this as needed.
func isNullSentinel(v interface{}) bool {
	return v == nil
}

func (c *Connector) Stream(ctx context.Context, rh connector.ResultHandle) (connector.RowIter, error) {
	rs, ok := rh.(*resultHandle)
	if !ok {
		return nil, qerr.E(qerr.InternalError, "relational connector given a foreign result handle")
	}
	if c.RunQuery == nil {
		return nil, qerr.E(qerr.ConnectError, "relational connector has no query executor configured")
	}
	cur, err := c.RunQuery(ctx, rs.handle, rs.sql)
	if err != nil {
		return nil, qerr.E(qerr.FetchError, err)
	}
	return &rowIter{cursor: cur}, nil
}
