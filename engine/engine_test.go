package engine

import (
	"context"

	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/planner"
)

// fakeHandle/fakeResultHandle/fakeIter/fakeConnector let tests drive Run
// without a real connector backend: rows are supplied up front and
// Columns/Stream just replay them.
type fakeHandle struct{}

func (fakeHandle) Close() error { return nil }

type fakeResultHandle struct {
	cols []connector.ColumnDescriptor
}

func (h fakeResultHandle) Columns() []connector.ColumnDescriptor { return h.cols }

type fakeIter struct {
	rows []connector.Row
	i    int
}

func (it *fakeIter) Next(context.Context) (connector.RowResult, bool) {
	if it.i >= len(it.rows) {
		return connector.RowResult{}, false
	}
	r := it.rows[it.i]
	it.i++
	return connector.RowResult{Row: r}, true
}

func (it *fakeIter) Close() error { return nil }

type fakeConnector struct {
	cols []connector.ColumnDescriptor
	rows []connector.Row
}

func (c *fakeConnector) Connect(context.Context, map[string]string, map[string]string) (connector.Handle, error) {
	return fakeHandle{}, nil
}

func (c *fakeConnector) Prepare(context.Context, connector.Handle, connector.FetchSpec) (connector.ResultHandle, error) {
	return fakeResultHandle{cols: c.cols}, nil
}

func (c *fakeConnector) Stream(context.Context, connector.ResultHandle) (connector.RowIter, error) {
	return &fakeIter{rows: c.rows}, nil
}

// fakeResolver maps a resource's data source name directly to a pre-built
// fakeConnector, skipping the registry entirely.
type fakeResolver struct {
	bySrc map[string]*fakeConnector
}

func (r *fakeResolver) Resolve(rp planner.ResourcePlan) (connector.Connector, map[string]string, map[string]string, error) {
	return r.bySrc[rp.Resource.DataSource], nil, nil, nil
}

func col(alias, field string) connector.ColumnDescriptor {
	return connector.ColumnDescriptor{Alias: alias, Field: field}
}

func row(cells ...interface{}) connector.Row {
	return connector.Row{Cells: cells}
}
