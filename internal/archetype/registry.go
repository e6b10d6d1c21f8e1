package archetype

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/strata/internal/types"
)

// Archetype is the compiled form of a definition.
type Archetype = types.Archetype

// Registry resolves archetypes by name.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Archetype
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Archetype)}
}

// Builtins returns a registry holding the embedded definitions
// (Image, Points2D, Points3D, Scalar, TextLog).
func Builtins() (*Registry, error) {
	defs, err := loadBuiltins()
	if err != nil {
		return nil, fmt.Errorf("compile builtin archetypes: %w", err)
	}
	r := NewRegistry()
	for _, a := range defs {
		r.Register(a)
	}
	return r, nil
}

// MustBuiltins is like Builtins but panics on error.
// The embedded definitions are compiled by the package tests, so a panic
// here means a broken build.
func MustBuiltins() *Registry {
	r, err := Builtins()
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds or replaces an archetype.
func (r *Registry) Register(a Archetype) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[a.Name] = a
}

// LoadDir compiles the archetypes in dir and registers them, replacing
// builtins of the same name.
func (r *Registry) LoadDir(dir string) (int, error) {
	defs, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}
	for _, a := range defs {
		r.Register(a)
	}
	return len(defs), nil
}

// Get returns the archetype called name.
func (r *Registry) Get(name string) (Archetype, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
