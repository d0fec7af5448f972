package query

import (
	"sort"
	"strings"

	"github.com/vusplatform/varspace/internal/domain/table"
)

// Operator names a filter comparison.
type Operator string

const (
	OpContains    Operator = "contains"
	OpEquals      Operator = "equals"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
)

// Condition is one filter entry: an operator applied to a column's cells.
type Condition struct {
	Op    Operator `json:"op"`
	Value string   `json:"value"`
}

// FilterSpec maps column → condition. Multiple entries AND-combine. The
// engine stays general even though the current UI sends at most one entry.
type FilterSpec map[string]Condition

// Direction orders a sort key.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortSpec maps column → direction. With several entries, keys apply in
// ascending column-name order so results are deterministic.
type SortSpec map[string]Direction

// Matches evaluates the filter against one row of t.
//
// Operator policy: contains is a case-insensitive substring test; equals is
// exact text match; greaterThan/lessThan compare numerically and exclude
// non-numeric cells from the match instead of raising.
func (f FilterSpec) Matches(t *table.Table, row int) bool {
	for column, cond := range f {
		cell, ok := t.Cell(row, column)
		if !ok {
			return false
		}
		switch cond.Op {
		case OpContains:
			if !strings.Contains(strings.ToLower(cell), strings.ToLower(cond.Value)) {
				return false
			}
		case OpEquals:
			if cell != cond.Value {
				return false
			}
		case OpGreaterThan:
			cv, cok := table.ParseNumber(cell)
			fv, fok := table.ParseNumber(cond.Value)
			if !cok || !fok || !(cv > fv) {
				return false
			}
		case OpLessThan:
			cv, cok := table.ParseNumber(cell)
			fv, fok := table.ParseNumber(cond.Value)
			if !cok || !fok || !(cv < fv) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// FilterRows returns the indexes of t's rows matching the filter, in original
// row order. A nil or empty filter matches everything.
func FilterRows(t *table.Table, filter FilterSpec) []int {
	matched := make([]int, 0, len(t.Rows))
	for i := range t.Rows {
		if len(filter) == 0 || filter.Matches(t, i) {
			matched = append(matched, i)
		}
	}
	return matched
}

// SortRows stably orders the given row indexes. A column compares numerically
// when every one of its values among the candidate rows parses as a number,
// lexicographically otherwise. Ties keep original row order.
func SortRows(t *table.Table, rows []int, spec SortSpec) []int {
	if len(spec) == 0 || len(rows) < 2 {
		return rows
	}

	columns := make([]string, 0, len(spec))
	for col := range spec {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	type key struct {
		idx     int
		numeric bool
		desc    bool
	}
	keys := make([]key, 0, len(columns))
	for _, col := range columns {
		idx := t.ColumnIndex(col)
		if idx < 0 {
			continue
		}
		numeric := true
		for _, r := range rows {
			if _, ok := table.ParseNumber(t.Rows[r][idx]); !ok {
				numeric = false
				break
			}
		}
		keys = append(keys, key{idx: idx, numeric: numeric, desc: spec[col] == Descending})
	}
	if len(keys) == 0 {
		return rows
	}

	out := make([]int, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := t.Rows[out[a]], t.Rows[out[b]]
		for _, k := range keys {
			var less, greater bool
			if k.numeric {
				va, _ := table.ParseNumber(ra[k.idx])
				vb, _ := table.ParseNumber(rb[k.idx])
				less, greater = va < vb, va > vb
			} else {
				less = ra[k.idx] < rb[k.idx]
				greater = ra[k.idx] > rb[k.idx]
			}
			if k.desc {
				less, greater = greater, less
			}
			if less {
				return true
			}
			if greater {
				return false
			}
		}
		return false
	})
	return out
}

// Paginate slices a zero-based page out of rows. Pages beyond the end clamp
// to an empty slice rather than erroring.
func Paginate(rows []int, page, rowsPerPage int) []int {
	if rowsPerPage <= 0 || page < 0 {
		return nil
	}
	start := page * rowsPerPage
	if start >= len(rows) {
		return []int{}
	}
	end := start + rowsPerPage
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// Window applies filter then sort then pagination and returns the selected
// row indexes along with the total matching count. Page reads and windowed
// saves both resolve their window through this single path so the two always
// agree.
func Window(t *table.Table, page, rowsPerPage int, sortSpec SortSpec, filter FilterSpec) (rows []int, total int) {
	matched := FilterRows(t, filter)
	ordered := SortRows(t, matched, sortSpec)
	return Paginate(ordered, page, rowsPerPage), len(ordered)
}
