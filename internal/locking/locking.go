package locking

import (
	"sync"

	"github.com/vusplatform/varspace/internal/domain/faults"
)

// Registry hands out per-path readers–writer locks. Concurrent reads of the
// same path proceed together; a mutation needs the path exclusively and fails
// fast with BusyError instead of queueing behind another mutation.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.RWMutex
	refs int
}

// NewRegistry returns an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*pathLock)}
}

func (r *Registry) get(path string) *pathLock {
	r.mu.Lock()
	defer r.mu.Unlock()
	pl, ok := r.locks[path]
	if !ok {
		pl = &pathLock{}
		r.locks[path] = pl
	}
	pl.refs++
	return pl
}

func (r *Registry) put(path string, pl *pathLock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pl.refs--
	if pl.refs == 0 {
		delete(r.locks, path)
	}
}

// AcquireRead takes a shared lock on path, blocking while a mutation holds
// it. The returned release function must be called exactly once.
func (r *Registry) AcquireRead(path string) (release func()) {
	pl := r.get(path)
	pl.mu.RLock()
	var once sync.Once
	return func() {
		once.Do(func() {
			pl.mu.RUnlock()
			r.put(path, pl)
		})
	}
}

// AcquireWrite takes the path exclusively. If any other holder (reader or
// mutation) is in flight it returns BusyError immediately; nothing is
// queued, so a caller never waits behind a long merge or apply run.
func (r *Registry) AcquireWrite(path string) (release func(), err error) {
	pl := r.get(path)
	if !pl.mu.TryLock() {
		r.put(path, pl)
		return nil, &faults.BusyError{Path: path}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			pl.mu.Unlock()
			r.put(path, pl)
		})
	}, nil
}
