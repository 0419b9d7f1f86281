package internal

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/dmitrymomot/conveyor/pkg/cache"
	"github.com/dmitrymomot/conveyor/pkg/logger"
)

// resolverCachePrefix namespaces resolver entries in a shared cache.
const resolverCachePrefix = "conveyor.resolver:"

// Resolver turns identifiers into invocable middleware and handlers.
// Resolution is a pure function of the identifier and the Lookup: resolving
// the same identifier twice yields behaviorally equivalent values, whether or
// not a cache is configured.
type Resolver struct {
	lookup Lookup
	cache  cache.Cache[any]
	logger *slog.Logger
	ttl    time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverCache memoizes Named identifiers in c.
// Concurrent resolutions of the same name instantiate it once.
// Cached instances are shared across concurrent requests, so the factories
// behind them must not keep request-specific state.
func WithResolverCache(c cache.Cache[any]) ResolverOption {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithResolverCacheTTL sets how long memoized instances live.
// Defaults to forever (negative TTL).
func WithResolverCacheTTL(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.ttl = d
	}
}

// WithResolverLogger sets the logger used for resolution diagnostics.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver backed by lookup.
// A nil lookup behaves like an empty Registry.
func NewResolver(lookup Lookup, opts ...ResolverOption) *Resolver {
	if lookup == nil {
		lookup = NewRegistry()
	}
	r := &Resolver{
		lookup: lookup,
		logger: logger.NewNope(),
		ttl:    -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the middleware for id.
// A Handler in a middleware position is accepted and acts as a terminal
// middleware that never calls next.
func (r *Resolver) Resolve(ctx context.Context, id Identifier) (Middleware, error) {
	v, err := r.value(ctx, id)
	if err != nil {
		return nil, &ResolutionError{ID: id, Err: err}
	}

	switch t := v.(type) {
	case Middleware:
		return t, nil
	case func(*Request, Handler) (*Response, error):
		return MiddlewareFunc(t), nil
	case Handler:
		return terminalMiddleware{h: t}, nil
	case func(*Request) (*Response, error):
		return terminalMiddleware{h: HandlerFunc(t)}, nil
	}

	return nil, &ResolutionError{
		ID:  id,
		Err: fmt.Errorf("%w: %T has no Process(*Request, Handler) method", ErrNotInvocable, v),
	}
}

// ResolveHandler returns the route handler for id.
func (r *Resolver) ResolveHandler(ctx context.Context, id Identifier) (Handler, error) {
	v, err := r.value(ctx, id)
	if err != nil {
		return nil, &ResolutionError{ID: id, Err: err}
	}

	switch t := v.(type) {
	case Handler:
		return t, nil
	case func(*Request) (*Response, error):
		return HandlerFunc(t), nil
	}

	return nil, &ResolutionError{
		ID:  id,
		Err: fmt.Errorf("%w: %T has no Handle(*Request) method", ErrNotInvocable, v),
	}
}

// value produces the raw object behind id.
func (r *Resolver) value(ctx context.Context, id Identifier) (any, error) {
	switch id := id.(type) {
	case InstanceID:
		if isNil(id.Value) {
			return nil, ErrNilIdentifier
		}
		return id.Value, nil

	case FuncID:
		if isNil(id.Fn) {
			return nil, ErrNilIdentifier
		}
		return id.Fn, nil

	case NamedID:
		if r.cache == nil {
			return r.instantiate(ctx, id.Name)
		}
		return cache.GetOrSet(ctx, r.cache, resolverCachePrefix+id.Name,
			func(ctx context.Context) (any, time.Duration, error) {
				v, err := r.instantiate(ctx, id.Name)
				return v, r.ttl, err
			})
	}

	return nil, ErrNilIdentifier
}

func (r *Resolver) instantiate(ctx context.Context, name string) (any, error) {
	v, err := r.lookup.Instantiate(ctx, name)
	if err != nil {
		return nil, err
	}
	if isNil(v) {
		return nil, fmt.Errorf("%w: lookup returned nil for %q", ErrNotInvocable, name)
	}
	r.logger.DebugContext(ctx, "identifier instantiated", slog.String("name", name))
	return v, nil
}

// isNil reports whether v is nil or a typed nil pointer/func.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Interface, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
