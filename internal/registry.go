package internal

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Lookup instantiates objects by name.
// It backs resolution of Named identifiers, both for middleware and for
// route handlers. Implementations must be safe for concurrent use.
type Lookup interface {
	Instantiate(ctx context.Context, name string) (any, error)
}

// LookupFunc adapts a plain function to the Lookup interface.
type LookupFunc func(ctx context.Context, name string) (any, error)

// Instantiate calls f(ctx, name).
func (f LookupFunc) Instantiate(ctx context.Context, name string) (any, error) {
	return f(ctx, name)
}

// Factory constructs the object registered under a name.
// It is called every time the name is resolved unless the resolver caches.
type Factory func(ctx context.Context) (any, error)

// Registry is the default Lookup: a name to factory map.
// It is safe for concurrent use.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
// A factory with the same name is overwritten.
func (r *Registry) Register(name string, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("conveyor: nil factory for %q", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Singleton registers a value that is returned as-is on every lookup.
func (r *Registry) Singleton(name string, value any) {
	r.Register(name, func(context.Context) (any, error) {
		return value, nil
	})
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instantiate runs the factory registered under name.
// Returns ErrNotRegistered for unknown names.
func (r *Registry) Instantiate(ctx context.Context, name string) (any, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return factory(ctx)
}

var _ Lookup = (*Registry)(nil)
