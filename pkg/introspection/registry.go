package introspection

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrVarNotFound is returned for an unpublished path.
var ErrVarNotFound = errors.New("variable not found")

// Registry holds published debug variables. Each workbench run owns its own
// registry. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	vars map[string]Var
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{vars: make(map[string]Var)}
}

// Publish registers v at path, replacing any previous variable. Paths may
// contain slashes ("events/dropped"). It panics on an empty path or nil Var.
func (r *Registry) Publish(path string, v Var) {
	if path == "" {
		panic("introspection: empty path not allowed")
	}
	if v == nil {
		panic("introspection: nil Var not allowed")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.vars[path] = v
}

// Get returns the value of the variable at path.
func (r *Registry) Get(path string) (any, error) {
	r.mu.RLock()
	v, ok := r.vars[path]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVarNotFound, path)
	}

	return v.Get()
}

// GetWithField returns the value at path narrowed by a JSONPath expression
// such as "{.version}". An empty field returns the whole value.
func (r *Registry) GetWithField(path, field string) (any, error) {
	value, err := r.Get(path)
	if err != nil {
		return nil, err
	}

	return ExtractField(value, field)
}

// All returns every variable keyed by path.
func (r *Registry) All() (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]any, len(r.vars))
	for path, v := range r.vars {
		value, err := v.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get variable %q: %w", path, err)
		}
		result[path] = value
	}

	return result, nil
}

// Paths returns the registered paths, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.vars))
	for path := range r.vars {
		paths = append(paths, path)
	}

	sort.Strings(paths)
	return paths
}

// Len returns the number of registered variables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vars)
}
