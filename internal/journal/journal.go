// Package journal keeps an append-only record of mutating workspace
// operations. Entries are JSON lines; there is no recovery semantics because
// table files are only ever replaced atomically and whole.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Outcome of a journaled operation.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Entry is one journaled operation.
type Entry struct {
	ID       string    `json:"id"` // operation uuid
	Op       string    `json:"op"` // save, merge, apply, delete
	Target   string    `json:"target"`
	Sources  []string  `json:"sources,omitempty"`
	Rows     int       `json:"rows,omitempty"`
	Outcome  string    `json:"outcome"`
	Error    string    `json:"error,omitempty"`
	Duration int64     `json:"durationMs"`
	Time     time.Time `json:"time"`
}

// Journal appends entries to a single file, serialized by a mutex and synced
// per append so a crash never loses an acknowledged record.
type Journal struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open opens (or creates) the journal file for appending.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &Journal{path: path, file: f}, nil
}

// Append writes one entry. Failures are returned but callers treat the
// journal as advisory: a failed append never fails the operation it records.
func (j *Journal) Append(e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return j.file.Sync()
}

// Close releases the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// Recent reads back up to limit entries, newest last. A limit <= 0 returns
// everything. Unparseable lines are skipped rather than failing the read.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal %s: %w", j.path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal %s: %w", j.path, err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
