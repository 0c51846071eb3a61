// Package webapi implements the REST connector (spec §4.3.3): GET-only,
// JSON-only, authenticated per request via SPNEGO negotiation.
package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/qerr"
)

// EndpointMapping describes one entry of the configured endpoint_mappings
// table: the URL to GET and the JSON path the response body is rooted at.
type EndpointMapping struct {
	URL        string
	ResultPath string
}

// Negotiator performs the client side of a SPNEGO handshake: given the
// challenge from a 401 response's WWW-Authenticate header, it returns the
// next Authorization header value to retry with, or false when it has
// nothing left to offer. Real Kerberos/SPNEGO libraries implement this;
// the connector caps the exchange at three rounds regardless.
type Negotiator interface {
	Kinit(ctx context.Context) error
	Negotiate(ctx context.Context, challenge string) (authHeader string, ok bool)
}

const maxSPNEGORounds = 3

// Connector is the web-api connector. Mappings is the endpoint_mappings
// configuration table keyed by the src name used in query text.
type Connector struct {
	Mappings map[string]EndpointMapping
	Client   *http.Client
	Negotiator
}

func New(mappings map[string]EndpointMapping, client *http.Client, neg Negotiator) *Connector {
	if client == nil {
		client = http.DefaultClient
	}
	return &Connector{Mappings: mappings, Client: client, Negotiator: neg}
}

// Handle carries nothing beyond the authenticator state; each request
// negotiates independently per spec §4.3.3 ("SPNEGO negotiation per
// request").
type Handle struct{}

func (Handle) Close() error { return nil }

func (c *Connector) Connect(ctx context.Context, props map[string]string, constants map[string]string) (connector.Handle, error) {
	if c.Negotiator != nil {
		if err := c.Negotiator.Kinit(ctx); err != nil {
			return nil, qerr.E(qerr.ConnectError, err)
		}
	}
	return Handle{}, nil
}

type resultHandle struct {
	mapping EndpointMapping
	cols    []connector.ColumnDescriptor
	star    bool
}

func (r *resultHandle) Columns() []connector.ColumnDescriptor { return r.cols }

func (c *Connector) Prepare(ctx context.Context, h connector.Handle, spec connector.FetchSpec) (connector.ResultHandle, error) {
	mapping, ok := c.Mappings[spec.Src]
	if !ok {
		return nil, qerr.E(qerr.ValidationError, fmt.Sprintf("unknown endpoint mapping: %s", spec.Src))
	}
	rh := &resultHandle{mapping: mapping}
	for _, attr := range spec.Attributes {
		if attr.Star {
			rh.star = true
			continue
		}
		rh.cols = append(rh.cols, connector.ColumnDescriptor{Alias: spec.Alias, Field: attr.Field})
	}
	return rh, nil
}

// doWithSPNEGO issues the GET request, negotiating up to three SPNEGO
// continuation rounds if the server challenges with a 401.
func (c *Connector) doWithSPNEGO(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, qerr.E(qerr.FetchError, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, qerr.E(qerr.FetchError, err)
	}
	rounds := 0
	for resp.StatusCode == http.StatusUnauthorized && rounds < maxSPNEGORounds {
		challenge := resp.Header.Get("WWW-Authenticate")
		resp.Body.Close()
		if c.Negotiator == nil {
			return nil, qerr.E(qerr.FetchError, "server requires SPNEGO negotiation but no negotiator is configured")
		}
		authHeader, ok := c.Negotiator.Negotiate(ctx, challenge)
		if !ok {
			return nil, qerr.E(qerr.FetchError, "SPNEGO continuation exhausted")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, qerr.E(qerr.FetchError, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", authHeader)
		resp, err = c.Client.Do(req)
		if err != nil {
			return nil, qerr.E(qerr.FetchError, err)
		}
		rounds++
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, qerr.E(qerr.FetchError, "SPNEGO continuation exhausted")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, qerr.E(qerr.FetchError, fmt.Sprintf("unexpected HTTP status: %d", resp.StatusCode))
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		resp.Body.Close()
		return nil, qerr.E(qerr.FetchError, fmt.Sprintf("unexpected content type: %s", ct))
	}
	return resp, nil
}

type rowIter struct {
	rows []map[string]interface{}
	cols []connector.ColumnDescriptor
	pos  int
}

func (c *Connector) Stream(ctx context.Context, rh connector.ResultHandle) (connector.RowIter, error) {
	r, ok := rh.(*resultHandle)
	if !ok {
		return nil, qerr.E(qerr.InternalError, "webapi connector given a foreign result handle")
	}
	resp, err := c.doWithSPNEGO(ctx, r.mapping.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var root interface{}
	if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
		return nil, qerr.E(qerr.FetchError, err)
	}
	rows, err := evalJSONPath(root, r.mapping.ResultPath)
	if err != nil {
		return nil, err
	}
	if r.star && len(rows) > 0 {
		for k := range rows[0] {
			r.cols = append(r.cols, connector.ColumnDescriptor{Field: k})
		}
	}
	return &rowIter{rows: rows, cols: r.cols}, nil
}

func (it *rowIter) Next(ctx context.Context) (connector.RowResult, bool) {
	if it.pos >= len(it.rows) {
		return connector.RowResult{}, false
	}
	obj := it.rows[it.pos]
	it.pos++
	cells := make([]interface{}, len(it.cols))
	for i, col := range it.cols {
		cells[i] = obj[col.Field]
	}
	return connector.RowResult{Row: connector.Row{Cells: cells}}, true
}

func (it *rowIter) Close() error { return nil }

// evalJSONPath is the same restricted dotted-path evaluator the file
// connector uses for its JSON source; duplicated here (rather than
// exported from package file) to keep the two backends independently
// deployable with no cross-import.
func evalJSONPath(root interface{}, path string) ([]map[string]interface{}, error) {
	cur := root
	if path != "" && path != "$" {
		segs := strings.Split(strings.TrimPrefix(path, "$."), ".")
		for _, seg := range segs {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil, qerr.E(qerr.FetchError, "json result_path does not match document shape")
			}
			cur, ok = m[seg]
			if !ok {
				return nil, qerr.E(qerr.FetchError, fmt.Sprintf("json result_path segment %q not found", seg))
			}
		}
	}
	arr, ok := cur.([]interface{})
	if !ok {
		return nil, qerr.E(qerr.FetchError, "json result_path does not resolve to an array")
	}
	rows := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, qerr.E(qerr.FetchError, "json array element is not an object")
		}
		rows = append(rows, obj)
	}
	return rows, nil
}
