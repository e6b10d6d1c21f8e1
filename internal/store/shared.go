package store

import "sync"

// Shared serialises writers and lets readers run concurrently.
//
// Write holds the exclusive lock for the whole callback, including the
// synchronous subscriber fan-out. Read runs the deferred resort under the
// exclusive lock if needed, then calls fn with a sorted View under the
// shared lock.
type Shared struct {
	mu    sync.RWMutex
	store *Store
}

// NewShared wraps s. The caller must not use s directly afterwards.
func NewShared(s *Store) *Shared {
	return &Shared{store: s}
}

// Write runs fn with exclusive access to the store.
func (sh *Shared) Write(fn func(*Store) error) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return fn(sh.store)
}

// Read runs fn with a sorted view. Several readers may run at once.
func (sh *Shared) Read(fn func(*View) error) error {
	for {
		sh.mu.RLock()
		if !sh.store.Dirty() {
			break
		}
		sh.mu.RUnlock()

		sh.mu.Lock()
		sh.store.Sorted()
		sh.mu.Unlock()
	}
	defer sh.mu.RUnlock()

	view := &View{store: sh.store, generation: sh.store.generation}
	return fn(view)
}

// Registry returns the registry of the wrapped store.
func (sh *Shared) Registry() *Registry {
	return sh.store.Registry()
}

// ID returns the id of the wrapped store.
func (sh *Shared) ID() string {
	return sh.store.id
}
