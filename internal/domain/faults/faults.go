package faults

import (
	"errors"
	"fmt"
)

// PathConflictError is returned when a mutating operation targets an existing
// file and the caller did not set the override flag.
type PathConflictError struct {
	Path string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("path conflict: '%s' already exists and override is not set", e.Path)
}

// InvalidExtensionError is returned when a target path does not carry the
// extension an operation requires.
type InvalidExtensionError struct {
	Path     string
	Required string
}

func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("invalid extension: '%s' must end with '%s'", e.Path, e.Required)
}

// BusyError is returned when a mutating operation finds another mutation in
// flight on the same path. The caller may retry; nothing was written.
type BusyError struct {
	Path string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("busy: another operation holds '%s'", e.Path)
}

// ConflictError is returned by a windowed save when the filtered+sorted window
// recomputed against the current file no longer matches the rows the caller
// edited.
type ConflictError struct {
	Path     string
	Expected int // rows the caller submitted
	Actual   int // rows the recomputed window holds
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("save conflict on '%s': submitted %d rows but the current window holds %d",
		e.Path, e.Expected, e.Actual)
}

// NotFoundError is returned for an unknown file id.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: '%s'", e.Path)
}

// ValidationError reports a malformed table: a row whose width differs from
// the header, a duplicate column name, or a missing required column.
type ValidationError struct {
	Path   string
	Row    int // 0-based data row index, -1 if not row-specific
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("invalid table '%s' at row %d: %s", e.Path, e.Row, e.Reason)
	}
	return fmt.Sprintf("invalid table '%s': %s", e.Path, e.Reason)
}

// ProviderError reports a failed annotation provider call. Systemic failures
// (configuration, auth) abort the whole apply run; transient unavailability is
// recovered per row as an NA score.
type ProviderError struct {
	Tool     string
	Systemic bool
	Err      error
}

func (e *ProviderError) Error() string {
	kind := "unavailable"
	if e.Systemic {
		kind = "systemic failure"
	}
	return fmt.Sprintf("provider %s %s: %v", e.Tool, kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsBusy reports whether err is a BusyError anywhere in its chain.
func IsBusy(err error) bool {
	var be *BusyError
	return errors.As(err, &be)
}

// IsSystemic reports whether err carries a systemic provider failure.
func IsSystemic(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Systemic
}
