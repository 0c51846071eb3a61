// Package engine implements the execution pipeline of spec §4.6: fetch,
// join, filter, scalar platform functions, group/aggregate, order, limit,
// and final projection, finishing with a spill file written to disk.
package engine

import (
	"github.com/fedsql/fedsql/connector"
)

// Row is a plain value vector; a parallel ColumnIndex gives meaning to
// each position. Design note: the teacher's source annotates cells with
// (descriptor, value) tuples only because joins need lhs/rhs bookkeeping;
// here the join builds each output row directly from its matched pair and
// keeps no per-cell side tags, so Row stays a flat vector throughout the
// whole pipeline.
type Row struct {
	Cells []interface{}
}

func (r Row) isAllNil() bool {
	for _, c := range r.Cells {
		if c != nil {
			return false
		}
	}
	return true
}

// ColumnIndex gives each row position a descriptor and supports lookup
// either by (alias, field) — used to resolve FieldRef operands — or by
// user alias alone, via FindByUserAlias.
type ColumnIndex struct {
	cols []connector.ColumnDescriptor
}

func newColumnIndex(cols []connector.ColumnDescriptor) *ColumnIndex {
	return &ColumnIndex{cols: cols}
}

func (ci *ColumnIndex) Len() int { return len(ci.cols) }

func (ci *ColumnIndex) At(i int) connector.ColumnDescriptor { return ci.cols[i] }

// Find resolves (alias, field) to a row position, matching on the source
// alias and native field name regardless of any user-facing alias.
func (ci *ColumnIndex) Find(alias, field string) (int, bool) {
	for i, c := range ci.cols {
		if c.Alias == alias && c.Field == field {
			return i, true
		}
	}
	return 0, false
}

// FindByUserAlias resolves a bare SELECT-list alias to a row position.
func (ci *ColumnIndex) FindByUserAlias(alias string) (int, bool) {
	for i, c := range ci.cols {
		if c.UserAlias == alias {
			return i, true
		}
	}
	return 0, false
}

// FindAlias returns the row positions of every column belonging to a
// source alias, in source order — used to expand Star{alias} at project
// time.
func (ci *ColumnIndex) FindAlias(alias string) []int {
	var idx []int
	for i, c := range ci.cols {
		if c.Alias == alias {
			idx = append(idx, i)
		}
	}
	return idx
}

// concat returns a new index: this index's columns followed by other's.
func (ci *ColumnIndex) concat(other *ColumnIndex) *ColumnIndex {
	cols := make([]connector.ColumnDescriptor, 0, ci.Len()+other.Len())
	cols = append(cols, ci.cols...)
	cols = append(cols, other.cols...)
	return &ColumnIndex{cols: cols}
}

// RowSet pairs a column index with its materialized rows — the in-memory
// representation the engine threads through every pipeline stage.
type RowSet struct {
	Cols *ColumnIndex
	Rows []Row
}
