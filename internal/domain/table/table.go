package table

import (
	"strconv"
	"strings"

	"github.com/vusplatform/varspace/internal/domain/faults"
)

// Row is one table record. Cells are stored as text and are positionally
// aligned to the table header.
type Row []string

// Copy returns a copy of the row so callers can edit without aliasing.
func (r Row) Copy() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Table is an in-memory tabular file: an ordered header of unique column
// names plus rows whose width always equals the header's.
type Table struct {
	Header []string
	Rows   []Row
}

// New builds a table from a header and rows, validating the width invariant
// and header uniqueness up front.
func New(header []string, rows []Row) (*Table, error) {
	t := &Table{Header: header, Rows: rows}
	if err := t.Validate(""); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the header/row invariants. path is only used to label the
// returned ValidationError.
func (t *Table) Validate(path string) error {
	seen := make(map[string]struct{}, len(t.Header))
	for _, col := range t.Header {
		if col == "" {
			return &faults.ValidationError{Path: path, Row: -1, Reason: "empty column name"}
		}
		if _, dup := seen[col]; dup {
			return &faults.ValidationError{Path: path, Row: -1, Reason: "duplicate column '" + col + "'"}
		}
		seen[col] = struct{}{}
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return &faults.ValidationError{
				Path:   path,
				Row:    i,
				Reason: "row width " + strconv.Itoa(len(row)) + " does not match header width " + strconv.Itoa(len(t.Header)),
			}
		}
	}
	return nil
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Header {
		if col == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, column name). ok is false when the column
// does not exist.
func (t *Table) Cell(row int, column string) (string, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	return t.Rows[row][idx], true
}

// Copy deep-copies the table. Engines snapshot their inputs with this so
// concurrent edits to a source cannot leak into a running computation.
func (t *Table) Copy() *Table {
	header := make([]string, len(t.Header))
	copy(header, t.Header)
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.Copy()
	}
	return &Table{Header: header, Rows: rows}
}

// AppendColumn adds a column with the given values, one per row. Returns a
// ValidationError if the value count does not match the row count.
func (t *Table) AppendColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return &faults.ValidationError{
			Row:    -1,
			Reason: "column '" + name + "' has " + strconv.Itoa(len(values)) + " values for " + strconv.Itoa(len(t.Rows)) + " rows",
		}
	}
	if t.ColumnIndex(name) >= 0 {
		return &faults.ValidationError{Row: -1, Reason: "column '" + name + "' already exists"}
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// ParseNumber reports a cell's numeric value. A cell is numeric only when the
// whole trimmed text parses as a float; anything else is treated as text by
// the numeric operators.
func ParseNumber(cell string) (float64, bool) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
