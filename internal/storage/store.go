package storage

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vusplatform/varspace/internal/domain/faults"
	"github.com/vusplatform/varspace/internal/domain/table"
)

// TableExtension is the extension every tabular workspace file must carry.
const TableExtension = ".csv"

// Store reads and replaces table files under a workspace root. File ids are
// workspace-relative paths; replacement is all-or-nothing via temp + rename.
type Store struct {
	Root string
}

// NewStore creates the workspace root if needed and returns a store over it.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root %s: %w", root, err)
	}
	return &Store{Root: root}, nil
}

// Resolve turns a workspace-relative file id into an absolute path, rejecting
// ids that escape the root.
func (s *Store) Resolve(fileID string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(fileID))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", &faults.NotFoundError{Path: fileID}
	}
	return filepath.Join(s.Root, cleaned), nil
}

// Exists reports whether a file id currently names a file.
func (s *Store) Exists(fileID string) bool {
	abs, err := s.Resolve(fileID)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// Load reads a table file: first record is the header, every following
// record a row of equal width. Unknown ids yield NotFoundError, malformed
// content a ValidationError.
func (s *Store) Load(fileID string) (*table.Table, error) {
	abs, err := s.Resolve(fileID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &faults.NotFoundError{Path: fileID}
		}
		return nil, fmt.Errorf("open %s: %w", fileID, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // width checked by table.Validate for a typed error
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &faults.ValidationError{Path: fileID, Row: -1, Reason: err.Error()}
	}
	if len(records) == 0 {
		return nil, &faults.ValidationError{Path: fileID, Row: -1, Reason: "missing header record"}
	}

	rows := make([]table.Row, len(records)-1)
	for i, rec := range records[1:] {
		rows[i] = table.Row(rec)
	}
	t := &table.Table{Header: records[0], Rows: rows}
	if err := t.Validate(fileID); err != nil {
		return nil, err
	}
	return t, nil
}

// Replace writes the table to the file id atomically: temp file in the same
// directory, then rename. The target is never observable half-written.
func (s *Store) Replace(fileID string, t *table.Table) error {
	if err := t.Validate(fileID); err != nil {
		return err
	}
	abs, err := s.Resolve(fileID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", fileID, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), filepath.Base(abs)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", fileID, err)
	}
	tmpPath := tmp.Name()

	writer := csv.NewWriter(tmp)
	writeErr := writer.Write(t.Header)
	if writeErr == nil {
		for _, row := range t.Rows {
			if writeErr = writer.Write(row); writeErr != nil {
				break
			}
		}
	}
	if writeErr == nil {
		writer.Flush()
		writeErr = writer.Error()
	}
	if writeErr == nil {
		writeErr = tmp.Sync()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write temp for %s: %w", fileID, writeErr)
	}

	if err := os.Rename(tmpPath, abs); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", fileID, err)
	}

	slog.Info("table file replaced",
		slog.String("file", fileID),
		slog.Int("rows", len(t.Rows)),
		slog.Int("columns", len(t.Header)),
	)
	return nil
}

// Delete removes a table file from the workspace.
func (s *Store) Delete(fileID string) error {
	abs, err := s.Resolve(fileID)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return &faults.NotFoundError{Path: fileID}
		}
		return fmt.Errorf("delete %s: %w", fileID, err)
	}
	return nil
}

// List returns the workspace-relative ids of all table files under the root,
// in lexical walk order.
func (s *Store) List() ([]string, error) {
	var ids []string
	err := filepath.WalkDir(s.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), TableExtension) {
			return nil
		}
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list workspace %s: %w", s.Root, err)
	}
	return ids, nil
}
