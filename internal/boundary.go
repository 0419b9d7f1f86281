package internal

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/conveyor/pkg/logger"
)

// DefaultStackSize is the default maximum stack trace size in bytes
// captured for recovered panics.
const DefaultStackSize = 4096

// Preference is the kind of error response a client expects.
type Preference int

const (
	// PreferRendered asks for a rendered page.
	PreferRendered Preference = iota
	// PreferStructured asks for a structured (JSON) body.
	PreferStructured
)

func (p Preference) String() string {
	if p == PreferStructured {
		return "structured"
	}
	return "rendered"
}

// AcceptancePreference decides which error representation a request expects.
type AcceptancePreference interface {
	Of(req *Request) Preference
}

// AcceptancePreferenceFunc adapts a function to AcceptancePreference.
type AcceptancePreferenceFunc func(req *Request) Preference

// Of calls f(req).
func (f AcceptancePreferenceFunc) Of(req *Request) Preference {
	return f(req)
}

// HeaderPreference prefers structured errors for requests that accept or
// send JSON, and for AJAX requests.
type HeaderPreference struct{}

// Of implements AcceptancePreference.
func (HeaderPreference) Of(req *Request) Preference {
	if req.WantsJSON() || req.IsJSON() || req.IsAJAX() {
		return PreferStructured
	}
	return PreferRendered
}

// FaultResponder turns a fault into a response.
// A returned error is fatal: the boundary does not try to recover from it.
type FaultResponder interface {
	HandleFault(fault error, req *Request) (*Response, error)
}

// FaultResponderFunc adapts a function to FaultResponder.
type FaultResponderFunc func(fault error, req *Request) (*Response, error)

// HandleFault calls f(fault, req).
func (f FaultResponderFunc) HandleFault(fault error, req *Request) (*Response, error) {
	return f(fault, req)
}

// BoundaryOption configures an ErrorBoundary.
type BoundaryOption func(*ErrorBoundary)

// WithStructuredResponder sets the responder for requests preferring structured errors.
func WithStructuredResponder(r FaultResponder) BoundaryOption {
	return func(b *ErrorBoundary) {
		if r != nil {
			b.structured = r
		}
	}
}

// WithRenderedResponder sets the responder for requests preferring rendered errors.
func WithRenderedResponder(r FaultResponder) BoundaryOption {
	return func(b *ErrorBoundary) {
		if r != nil {
			b.rendered = r
		}
	}
}

// WithResponder uses r for every preference.
func WithResponder(r FaultResponder) BoundaryOption {
	return func(b *ErrorBoundary) {
		if r != nil {
			b.structured = r
			b.rendered = r
		}
	}
}

// WithAcceptancePreference replaces the default HeaderPreference.
func WithAcceptancePreference(p AcceptancePreference) BoundaryOption {
	return func(b *ErrorBoundary) {
		if p != nil {
			b.preference = p
		}
	}
}

// WithBoundaryLogger sets the logger used to report handled faults.
func WithBoundaryLogger(l *slog.Logger) BoundaryOption {
	return func(b *ErrorBoundary) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBoundaryStackSize sets how much stack is captured for panics.
// Zero disables stack capture.
func WithBoundaryStackSize(size int) BoundaryOption {
	return func(b *ErrorBoundary) {
		b.stackSize = size
	}
}

// ErrorBoundary is a middleware that converts faults raised anywhere below
// it into responses. A fault is a returned error or a panic.
//
// It always returns either a response or a *FaultResponderError. The latter
// means the responder itself failed; outer boundaries pass it through and it
// leaves Dispatch for the hosting process to report.
type ErrorBoundary struct {
	structured FaultResponder
	rendered   FaultResponder
	preference AcceptancePreference
	logger     *slog.Logger
	stackSize  int
}

// NewErrorBoundary creates a boundary with JSON and page responders chosen
// by HeaderPreference.
func NewErrorBoundary(opts ...BoundaryOption) *ErrorBoundary {
	b := &ErrorBoundary{
		structured: JSONResponder{},
		rendered:   PageResponder{},
		preference: HeaderPreference{},
		logger:     logger.NewNope(),
		stackSize:  DefaultStackSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Process implements Middleware.
func (b *ErrorBoundary) Process(req *Request, next Handler) (*Response, error) {
	resp, fault := b.guard(req, next)
	if fault == nil {
		return resp, nil
	}

	var fre *FaultResponderError
	if errors.As(fault, &fre) {
		return nil, fault
	}

	return b.respond(fault, req)
}

// guard runs next and recovers panics into *PanicError.
func (b *ErrorBoundary) guard(req *Request, next Handler) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == http.ErrAbortHandler {
				panic(r)
			}
			resp, err = nil, NewPanicError(r, b.stackSize)
		}
	}()
	return next.Handle(req)
}

// respond hands fault to the responder chosen for req.
// Any failure here becomes a *FaultResponderError.
func (b *ErrorBoundary) respond(fault error, req *Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, &FaultResponderError{Fault: fault, Err: NewPanicError(r, b.stackSize)}
		}
	}()

	pref := b.preference.Of(req)
	responder := b.rendered
	if pref == PreferStructured {
		responder = b.structured
	}

	resp, err = responder.HandleFault(fault, req)
	if err != nil {
		return nil, &FaultResponderError{Fault: fault, Err: err}
	}
	if resp == nil {
		return nil, &FaultResponderError{Fault: fault, Err: ErrNoResponse}
	}

	level := slog.LevelWarn
	if resp.StatusCode() >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	b.logger.Log(req.Context(), level, "fault handled",
		slog.String("method", req.Method()),
		slog.String("path", req.Path()),
		slog.Int("status", resp.StatusCode()),
		slog.String("preference", pref.String()),
		slog.Any("error", fault),
	)

	return resp, nil
}
