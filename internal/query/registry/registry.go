// Package registry holds every named FieldIndices a running process
// serves, keyed by index name. Queries and ingest events both resolve a
// name through here before touching a concrete FieldIndices.
package registry

import (
	"fmt"
	"sync"

	"github.com/fieldsearch/queryengine/internal/query/fieldindex"
)

// Registry is a concurrency-safe map from index name to FieldIndices.
type Registry struct {
	mu      sync.RWMutex
	indices map[string]*fieldindex.FieldIndices
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{indices: make(map[string]*fieldindex.FieldIndices)}
}

// Register adds (or replaces) the FieldIndices served under name.
func (r *Registry) Register(name string, fi *fieldindex.FieldIndices) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indices[name] = fi
}

// Get resolves name to its FieldIndices.
func (r *Registry) Get(name string) (*fieldindex.FieldIndices, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fi, ok := r.indices[name]
	if !ok {
		return nil, fmt.Errorf("registry: no such index %q", name)
	}
	return fi, nil
}

// Names returns every registered index name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.indices))
	for name := range r.indices {
		out = append(out, name)
	}
	return out
}

// Drop removes name from the registry, if present.
func (r *Registry) Drop(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indices, name)
}
