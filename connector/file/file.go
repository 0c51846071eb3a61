// Package file implements the flat-file connector (spec §4.3.2): CSV and
// JSON sources read from a configured base directory, no authentication.
package file

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fedsql/fedsql/connector"
	"github.com/fedsql/fedsql/qerr"
)

var (
	intPattern   = regexp.MustCompile(`^[+-]?[0-9]+$`)
	floatPattern = regexp.MustCompile(`^[+-]?[0-9]+\.[0-9]+$`)
)

// coerce implicitly types a raw CSV field: integer, then float, else the
// original string. Preserved from observed behavior (design note: this can
// round-trip-break values like leading-zero identifiers, but a declared
// schema is out of scope here).
func coerce(raw string) (interface{}, error) {
	switch {
	case intPattern.MatchString(raw):
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, qerr.E(qerr.CoercionError, err)
		}
		return n, nil
	case floatPattern.MatchString(raw):
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, qerr.E(qerr.CoercionError, err)
		}
		return f, nil
	default:
		return raw, nil
	}
}

// Connector reads CSV and JSON files below BaseDir. Format ("csv"/"json")
// and CSV separator are taken from the configured data source's Constants
// at Connect time.
type Connector struct {
	BaseDir string
}

func New(baseDir string) *Connector {
	return &Connector{BaseDir: baseDir}
}

// Handle carries the per-data-source format/separator configuration that
// Prepare and Stream need; the file itself is opened lazily in Stream.
type Handle struct {
	format    string
	separator rune
	resultPth string
}

func (h *Handle) Close() error { return nil }

// safePath strips "." and ".." path components and joins the remainder
// onto BaseDir, so a query's src can never escape the configured root.
func safePath(baseDir, src string) string {
	clean := filepath.Clean("/" + src)
	parts := strings.Split(clean, string(filepath.Separator))
	var kept []string
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		kept = append(kept, p)
	}
	return filepath.Join(baseDir, filepath.Join(kept...))
}

func (c *Connector) Connect(ctx context.Context, props map[string]string, constants map[string]string) (connector.Handle, error) {
	format := constants["format"]
	if format == "" {
		format = "csv"
	}
	sep := rune(',')
	if s := constants["separator"]; s != "" {
		sep = rune(s[0])
	}
	resultPath := constants["result_path"]
	if resultPath == "" {
		resultPath = "$"
	}
	return &Handle{format: format, separator: sep, resultPth: resultPath}, nil
}

type resultHandle struct {
	handle *Handle
	path   string
	cols   []connector.ColumnDescriptor
	star   bool // Star was requested; the effective schema is inferred from the first row
}

func (r *resultHandle) Columns() []connector.ColumnDescriptor { return r.cols }

// Prepare resolves the safe on-disk path and the requested attribute list.
// A Star attribute defers schema resolution to Stream's first row, per
// spec §4.3.2.
func (c *Connector) Prepare(ctx context.Context, h connector.Handle, spec connector.FetchSpec) (connector.ResultHandle, error) {
	handle, ok := h.(*Handle)
	if !ok {
		return nil, qerr.E(qerr.InternalError, "file connector given a foreign handle")
	}
	path := safePath(c.BaseDir, spec.Src)
	if _, err := os.Stat(path); err != nil {
		return nil, qerr.E(qerr.ConnectError, fmt.Errorf("file not found: %s: %w", spec.Src, err))
	}
	rh := &resultHandle{handle: handle, path: path}
	for _, attr := range spec.Attributes {
		if attr.Star {
			rh.star = true
			continue
		}
		rh.cols = append(rh.cols, connector.ColumnDescriptor{Alias: spec.Alias, Field: attr.Field})
	}
	return rh, nil
}

func (c *Connector) Stream(ctx context.Context, rh connector.ResultHandle) (connector.RowIter, error) {
	r, ok := rh.(*resultHandle)
	if !ok {
		return nil, qerr.E(qerr.InternalError, "file connector given a foreign result handle")
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, qerr.E(qerr.ConnectError, err)
	}
	switch r.handle.format {
	case "json":
		return newJSONIter(f, r)
	default:
		return newCSVIter(f, r)
	}
}

type csvIter struct {
	f        *os.File
	reader   *csv.Reader
	r        *resultHandle
	header   []string
	wantIdx  []int
	wantCols []connector.ColumnDescriptor
	init     bool
}

func newCSVIter(f *os.File, r *resultHandle) (*csvIter, error) {
	reader := csv.NewReader(f)
	reader.Comma = r.handle.separator
	reader.FieldsPerRecord = -1
	return &csvIter{f: f, reader: reader, r: r}, nil
}

func (it *csvIter) initHeader(first []string) {
	it.header = first
	if it.r.star {
		for i, name := range first {
			it.r.cols = append(it.r.cols, connector.ColumnDescriptor{Alias: "", Field: name})
			it.wantIdx = append(it.wantIdx, i)
		}
		it.wantCols = it.r.cols
		it.init = true
		return
	}
	byName := make(map[string]int, len(first))
	for i, name := range first {
		byName[name] = i
	}
	for _, col := range it.r.cols {
		it.wantIdx = append(it.wantIdx, byName[col.Field])
	}
	it.wantCols = it.r.cols
	it.init = true
}

func (it *csvIter) Next(ctx context.Context) (connector.RowResult, bool) {
	rec, err := it.reader.Read()
	if err == io.EOF {
		return connector.RowResult{}, false
	}
	if err != nil {
		return connector.RowResult{Err: qerr.E(qerr.FetchError, err)}, true
	}
	if !it.init {
		it.initHeader(rec)
		return it.Next(ctx)
	}
	cells := make([]interface{}, len(it.wantIdx))
	for i, idx := range it.wantIdx {
		if idx < 0 || idx >= len(rec) {
			cells[i] = nil
			continue
		}
		v, err := coerce(rec[idx])
		if err != nil {
			return connector.RowResult{Err: err}, true
		}
		cells[i] = v
	}
	return connector.RowResult{Row: connector.Row{Cells: cells}}, true
}

func (it *csvIter) Close() error { return it.f.Close() }

type jsonIter struct {
	f        *os.File
	r        *resultHandle
	rows     []map[string]interface{}
	pos      int
	wantCols []connector.ColumnDescriptor
	init     bool
}

func newJSONIter(f *os.File, r *resultHandle) (*jsonIter, error) {
	var root interface{}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&root); err != nil {
		f.Close()
		return nil, qerr.E(qerr.FetchError, err)
	}
	rows, err := evalJSONPath(root, r.handle.resultPth)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &jsonIter{f: f, r: r, rows: rows}, nil
}

func (it *jsonIter) initSchema() {
	if it.r.star {
		if len(it.rows) > 0 {
			for k := range it.rows[0] {
				it.r.cols = append(it.r.cols, connector.ColumnDescriptor{Alias: "", Field: k})
			}
		}
	}
	it.wantCols = it.r.cols
	it.init = true
}

func (it *jsonIter) Next(ctx context.Context) (connector.RowResult, bool) {
	if !it.init {
		it.initSchema()
	}
	if it.pos >= len(it.rows) {
		return connector.RowResult{}, false
	}
	obj := it.rows[it.pos]
	it.pos++
	cells := make([]interface{}, len(it.wantCols))
	for i, col := range it.wantCols {
		cells[i] = obj[col.Field]
	}
	return connector.RowResult{Row: connector.Row{Cells: cells}}, true
}

func (it *jsonIter) Close() error { return it.f.Close() }

// evalJSONPath resolves a restricted dotted JSON path ("$", "$.result",
// "$.a.b") to the array of object rows it points at, matching the
// streaming JSON path evaluator contract of spec §4.3.2/4.3.3 without
// pulling in a general-purpose JSONPath engine for a one-shape need.
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
