package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vusplatform/varspace/internal/domain/faults"
)

// ValidateExtension checks a file id carries the required extension.
func ValidateExtension(fileID, required string) error {
	if !strings.EqualFold(filepath.Ext(fileID), required) {
		return &faults.InvalidExtensionError{Path: fileID, Required: required}
	}
	return nil
}

// CheckTarget enforces the shared target-path contract of mutating
// operations: the extension must match, and an existing target is only
// acceptable when override is set.
func (s *Store) CheckTarget(fileID string, override bool) error {
	if err := ValidateExtension(fileID, TableExtension); err != nil {
		return err
	}
	if !override && s.Exists(fileID) {
		return &faults.PathConflictError{Path: fileID}
	}
	return nil
}

// UniqueName allocates a collision-free file id from a desired one by
// suffixing " (1)", " (2)", … before the extension, the way desktop file
// managers do. The name is reserved only by the eventual write; callers
// holding the path lock race-free is the operation's job.
func (s *Store) UniqueName(fileID string) string {
	if !s.Exists(fileID) {
		return fileID
	}
	ext := filepath.Ext(fileID)
	base := strings.TrimSuffix(fileID, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if !s.Exists(candidate) {
			return candidate
		}
	}
}
