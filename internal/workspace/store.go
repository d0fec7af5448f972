package workspace

import (
	"log/slog"

	"github.com/vusplatform/varspace/internal/domain/faults"
	"github.com/vusplatform/varspace/internal/domain/table"
	"github.com/vusplatform/varspace/internal/query"
)

// Page is one paged view over a table file.
type Page struct {
	Header        []string    `json:"header"`
	Rows          []table.Row `json:"rows"`
	TotalMatching int         `json:"totalMatching"`
	Page          int         `json:"page"`
}

// GetPage applies filter then sort to the full table and slices out the
// requested zero-based page. A page beyond the end comes back empty, not as
// an error. Sorting is stable; ties keep original file order.
func (e *Engine) GetPage(fileID string, page, rowsPerPage int, sortSpec query.SortSpec, filter query.FilterSpec) (*Page, error) {
	release := e.locks.AcquireRead(fileID)
	defer release()

	t, err := e.store.Load(fileID)
	if err != nil {
		return nil, err
	}

	window, total := query.Window(t, page, rowsPerPage, sortSpec, filter)
	rows := make([]table.Row, len(window))
	for i, r := range window {
		rows[i] = t.Rows[r].Copy()
	}
	return &Page{Header: t.Header, Rows: rows, TotalMatching: total, Page: page}, nil
}

// Save splices edited rows back into the window they were read from. The
// filter+sort window is re-resolved against the file's current on-disk state;
// if it no longer holds exactly len(editedRows) rows the table changed
// underneath the caller and the save fails with ConflictError. All other rows
// are untouched and the file is replaced atomically.
func (e *Engine) Save(fileID string, header []string, editedRows []table.Row, page, rowsPerPage int, sortSpec query.SortSpec, filter query.FilterSpec) error {
	op := e.beginOp("save", fileID)

	err := e.save(fileID, header, editedRows, page, rowsPerPage, sortSpec, filter)
	op.finish(len(editedRows), err)
	return err
}

func (e *Engine) save(fileID string, header []string, editedRows []table.Row, page, rowsPerPage int, sortSpec query.SortSpec, filter query.FilterSpec) error {
	release, err := e.locks.AcquireWrite(fileID)
	if err != nil {
		return err
	}
	defer release()

	t, err := e.store.Load(fileID)
	if err != nil {
		return err
	}

	if len(header) != len(t.Header) {
		return &faults.ValidationError{Path: fileID, Row: -1, Reason: "submitted header width does not match file"}
	}
	for i, row := range editedRows {
		if len(row) != len(t.Header) {
			return &faults.ValidationError{Path: fileID, Row: i, Reason: "edited row width does not match header"}
		}
	}

	window, _ := query.Window(t, page, rowsPerPage, sortSpec, filter)
	if len(window) != len(editedRows) {
		return &faults.ConflictError{Path: fileID, Expected: len(editedRows), Actual: len(window)}
	}
	for i, rowIdx := range window {
		t.Rows[rowIdx] = editedRows[i].Copy()
	}

	if err := e.store.Replace(fileID, t); err != nil {
		return err
	}
	slog.Info("windowed save applied",
		slog.String("file", fileID),
		slog.Int("edited_rows", len(editedRows)),
		slog.Int("page", page),
	)
	return nil
}

// ImportTable writes an uploaded table into the workspace as a new file.
// An existing target needs the override flag, same as every other mutation
// that creates a file.
func (e *Engine) ImportTable(fileID string, t *table.Table, override bool) error {
	op := e.beginOp("import", fileID)

	err := func() error {
		if err := e.store.CheckTarget(fileID, override); err != nil {
			return err
		}
		release, err := e.locks.AcquireWrite(fileID)
		if err != nil {
			return err
		}
		defer release()

		// re-check under the lock: a concurrent operation may have created
		// the target between the first check and acquisition
		if err := e.store.CheckTarget(fileID, override); err != nil {
			return err
		}
		return e.store.Replace(fileID, t)
	}()
	rows := 0
	if t != nil {
		rows = len(t.Rows)
	}
	op.finish(rows, err)
	return err
}

// DeleteFile removes a table file, failing fast with Busy while any mutation
// holds it.
func (e *Engine) DeleteFile(fileID string) error {
	op := e.beginOp("delete", fileID)

	err := func() error {
		release, err := e.locks.AcquireWrite(fileID)
		if err != nil {
			return err
		}
		defer release()
		return e.store.Delete(fileID)
	}()
	op.finish(0, err)
	return err
}
