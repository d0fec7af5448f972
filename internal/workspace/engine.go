// Package workspace is the backend data engine over a per-user workspace of
// tabular variant files: paged/sorted/filtered reads, windowed saves, column
// aggregation, key-based source merges, and annotation application.
package workspace

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vusplatform/varspace/internal/annotate"
	"github.com/vusplatform/varspace/internal/domain/variant"
	"github.com/vusplatform/varspace/internal/journal"
	"github.com/vusplatform/varspace/internal/locking"
	"github.com/vusplatform/varspace/internal/storage"
)

// Engine bundles the file store, lock registry, source schema, and annotation
// providers behind the operations the API exposes. All methods are safe for
// concurrent use; per-path locks arbitrate access to individual files.
type Engine struct {
	store     *storage.Store
	locks     *locking.Registry
	schema    *variant.SchemaFile
	lift      variant.Liftover
	providers map[string]annotate.Provider
	journal   *journal.Journal

	obsMu     sync.RWMutex
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithSchema installs the per-role key-column mappings.
func WithSchema(s *variant.SchemaFile) Option {
	return func(e *Engine) { e.schema = s }
}

// WithLiftover installs the coordinate translator for hg19 sources.
func WithLiftover(l variant.Liftover) Option {
	return func(e *Engine) { e.lift = l }
}

// WithProvider registers an annotation provider under its tool name.
func WithProvider(p annotate.Provider) Option {
	return func(e *Engine) { e.providers[p.Name()] = p }
}

// WithJournal installs the operation journal.
func WithJournal(j *journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// New creates an engine over the given store.
func New(store *storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		locks:     locking.NewRegistry(),
		providers: make(map[string]annotate.Provider),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddObserver subscribes an observer to operation lifecycle events.
func (e *Engine) AddObserver(o Observer) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, o)
}

// RemoveObserver unsubscribes a previously added observer.
func (e *Engine) RemoveObserver(o Observer) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	for i, existing := range e.observers {
		if existing == o {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return
		}
	}
}

func (e *Engine) notify(eventType EventType, opID, op, target, message string) {
	e.obsMu.RLock()
	observers := make([]Observer, len(e.observers))
	copy(observers, e.observers)
	e.obsMu.RUnlock()

	event := Event{
		Type:      eventType,
		OpID:      opID,
		Op:        op,
		Target:    target,
		Timestamp: time.Now(),
		Message:   message,
	}
	for _, o := range observers {
		o.OnEvent(event)
	}
}

// operation tracks one mutating operation from start to journal entry.
type operation struct {
	engine  *Engine
	id      string
	op      string
	target  string
	sources []string
	started time.Time
}

func (e *Engine) beginOp(op, target string, sources ...string) *operation {
	o := &operation{
		engine:  e,
		id:      uuid.New().String(),
		op:      op,
		target:  target,
		sources: sources,
		started: time.Now(),
	}
	e.notify(EventOpStart, o.id, op, target, op+" started")
	return o
}

func (o *operation) finish(rows int, err error) {
	entry := journal.Entry{
		ID:       o.id,
		Op:       o.op,
		Target:   o.target,
		Sources:  o.sources,
		Rows:     rows,
		Outcome:  journal.OutcomeOK,
		Duration: time.Since(o.started).Milliseconds(),
	}
	if err != nil {
		entry.Outcome = journal.OutcomeError
		entry.Error = err.Error()
		o.engine.notify(EventOpError, o.id, o.op, o.target, err.Error())
	} else {
		o.engine.notify(EventOpSuccess, o.id, o.op, o.target, o.op+" completed")
	}
	if o.engine.journal != nil {
		// advisory: a journal write failure never fails the operation
		if jerr := o.engine.journal.Append(entry); jerr != nil {
			slog.Warn("journal append failed", "op_id", o.id, "error", jerr)
		}
	}
}

// resolverFor builds the key resolver for a role from the configured schema.
func (e *Engine) resolverFor(role variant.Role) (variant.Resolver, bool) {
	if e.schema == nil {
		return variant.Resolver{}, false
	}
	mapping, ok := e.schema.Sources[role]
	if !ok {
		return variant.Resolver{}, false
	}
	return variant.Resolver{Mapping: mapping, Lift: e.lift}, true
}

// Exists reports whether a file id names an existing table file.
func (e *Engine) Exists(fileID string) bool { return e.store.Exists(fileID) }

// CreateUnique allocates a collision-free variant of the desired file id.
func (e *Engine) CreateUnique(fileID string) string { return e.store.UniqueName(fileID) }

// ListFiles returns all table file ids in the workspace.
func (e *Engine) ListFiles() ([]string, error) { return e.store.List() }

// RecentOperations returns the newest journaled operations, oldest first.
func (e *Engine) RecentOperations(limit int) ([]journal.Entry, error) {
	if e.journal == nil {
		return nil, nil
	}
	return e.journal.Recent(limit)
}
