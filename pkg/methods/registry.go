package methods

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrNotFound is returned by Get for a name that is not registered.
var ErrNotFound = errors.New("method not found")

// Registry maps method names to methods. It is built once and never mutated,
// so lookups need no locking.
type Registry struct {
	methods map[string]*Method
	names   []string
}

// NewRegistry builds a registry. Names must be unique.
func NewRegistry(methods ...*Method) (*Registry, error) {
	r := &Registry{methods: make(map[string]*Method, len(methods))}
	for _, m := range methods {
		if m == nil {
			return nil, fmt.Errorf("%s - nil method", logPrefix)
		}
		if _, exists := r.methods[m.name]; exists {
			return nil, fmt.Errorf("%s - duplicate method %q", logPrefix, m.name)
		}
		r.methods[m.name] = m
		r.names = append(r.names, m.name)
	}
	sort.Strings(r.names)
	slog.Debug(fmt.Sprintf("%s - registry built with %d methods", logPrefix, len(r.names)))
	return r, nil
}

// Contains reports whether name is registered.
func (r *Registry) Contains(name string) bool {
	_, ok := r.methods[name]
	return ok
}

// Get returns the method registered under name.
func (r *Registry) Get(name string) (*Method, error) {
	m, ok := r.methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return m, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered methods.
func (r *Registry) Len() int { return len(r.names) }
