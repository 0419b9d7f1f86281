package internal

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
)

// Dispatcher owns the ordered middleware list and runs it for each request.
//
// The list is append-only until the first Dispatch (or an explicit Freeze)
// and read-only afterwards, so concurrent dispatches share it without locks.
// Every dispatch builds its own chain of links; a link resolves its
// identifier only when the traversal reaches it.
type Dispatcher struct {
	resolver *Resolver
	ids      []Identifier
	mu       sync.Mutex
	frozen   atomic.Bool
}

// NewDispatcher creates an empty dispatcher.
// A nil resolver resolves against an empty Registry.
func NewDispatcher(resolver *Resolver) *Dispatcher {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &Dispatcher{resolver: resolver}
}

// Add appends identifiers in order.
// Returns ErrPipelineFrozen once dispatching has started.
func (d *Dispatcher) Add(ids ...Identifier) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frozen.Load() {
		return ErrPipelineFrozen
	}
	for _, id := range ids {
		if id == nil {
			return ErrNilIdentifier
		}
	}
	d.ids = append(d.ids, ids...)
	return nil
}

// Freeze makes the middleware list read-only. Idempotent.
func (d *Dispatcher) Freeze() {
	d.mu.Lock()
	d.frozen.Store(true)
	d.mu.Unlock()
}

// Frozen reports whether the list is read-only.
func (d *Dispatcher) Frozen() bool {
	return d.frozen.Load()
}

// Len returns the number of registered identifiers.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ids)
}

// Dispatch runs req through the chain and returns the single response.
// Middleware run in registration order on the way in and in reverse order
// on the way out. The first call freezes the list.
//
// Faults not converted by an error boundary are returned as errors.
// Dispatch on an empty pipeline returns ErrEmptyPipeline.
func (d *Dispatcher) Dispatch(req *Request) (*Response, error) {
	if !d.frozen.Load() {
		d.Freeze()
	}

	// Safe without the lock: the list never changes after freezing.
	ids := d.ids
	if len(ids) == 0 {
		return nil, ErrEmptyPipeline
	}

	return buildChain(d.resolver, ids, exhausted).Handle(req)
}

// exhausted terminates every chain. A well-formed pipeline ends in the
// router adapter, which never calls next, so reaching it means the chain
// ran out of middleware.
var exhausted = HandlerFunc(func(*Request) (*Response, error) {
	return Text(http.StatusInternalServerError, "Internal Server Error").
		WithHeader("X-Conveyor-Error", "chain exhausted"), nil
})

// link is one chain position for a single traversal.
type link struct {
	resolver *Resolver
	id       Identifier
	next     Handler
	called   atomic.Bool
}

// Handle resolves the identifier on first use and invokes it with the rest
// of the chain. A second call fails with ErrNextCalledTwice.
func (l *link) Handle(req *Request) (*Response, error) {
	if !l.called.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: %s", ErrNextCalledTwice, l.id)
	}

	mw, err := l.resolver.Resolve(req.Context(), l.id)
	if err != nil {
		return nil, err
	}

	resp, err := mw.Process(req, l.next)
	if err == nil && resp == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResponse, l.id)
	}
	return resp, err
}

// buildChain links ids right-to-left around terminal.
// Nothing is resolved here.
func buildChain(resolver *Resolver, ids []Identifier, terminal Handler) Handler {
	next := terminal
	for i := len(ids) - 1; i >= 0; i-- {
		next = &link{resolver: resolver, id: ids[i], next: next}
	}
	return next
}
