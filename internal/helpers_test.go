package internal_test

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/dmitrymomot/conveyor/internal"
)

// trace records pipeline events in order.
type trace struct {
	events []string
	mu     sync.Mutex
}

func (tr *trace) add(event string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, event)
}

func (tr *trace) list() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return slices.Clone(tr.events)
}

// traced returns middleware that records enter and exit events.
func traced(name string, tr *trace) internal.MiddlewareFunc {
	return func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
		tr.add(name + ".enter")
		resp, err := next.Handle(req)
		if err != nil {
			return nil, err
		}
		tr.add(name + ".exit")
		return resp, nil
	}
}

// countingLookup wraps a registry and counts instantiations per name.
type countingLookup struct {
	reg    *internal.Registry
	counts map[string]int
	mu     sync.Mutex
}

func newCountingLookup() *countingLookup {
	return &countingLookup{reg: internal.NewRegistry(), counts: make(map[string]int)}
}

func (l *countingLookup) Instantiate(ctx context.Context, name string) (any, error) {
	l.mu.Lock()
	l.counts[name]++
	l.mu.Unlock()
	return l.reg.Instantiate(ctx, name)
}

func (l *countingLookup) count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[name]
}

// okHandler answers 200 with body.
func okHandler(body string) internal.HandlerFunc {
	return func(*internal.Request) (*internal.Response, error) {
		return internal.Text(http.StatusOK, body), nil
	}
}

// newPipeline builds a dispatcher whose last element is a router over routes.
func newPipeline(lookup internal.Lookup, routes *internal.Routes, mw ...internal.Identifier) (*internal.Dispatcher, *internal.Resolver) {
	resolver := internal.NewResolver(lookup)
	d := internal.NewDispatcher(resolver)
	if err := d.Add(mw...); err != nil {
		panic(err)
	}
	if err := d.Add(internal.Instance(internal.NewRouterMiddleware(routes, resolver))); err != nil {
		panic(err)
	}
	return d, resolver
}
