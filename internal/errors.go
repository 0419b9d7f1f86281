package internal

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// Sentinel errors for pipeline configuration and chain contract violations.
var (
	// ErrEmptyPipeline is returned by Dispatch when no middleware is registered.
	ErrEmptyPipeline = errors.New("conveyor: dispatch on empty pipeline")

	// ErrPipelineFrozen is returned by Add once the pipeline has started dispatching.
	ErrPipelineFrozen = errors.New("conveyor: pipeline is frozen")

	// ErrNextCalledTwice is returned when a middleware invokes next more than once.
	ErrNextCalledTwice = errors.New("conveyor: next handler invoked more than once")

	// ErrNoResponse is returned when a middleware or handler returns neither
	// a response nor an error.
	ErrNoResponse = errors.New("conveyor: handler returned no response")

	// ErrNotRegistered is returned by a Lookup for unknown names.
	ErrNotRegistered = errors.New("conveyor: identifier not registered")

	// ErrNilIdentifier is returned when resolving a nil identifier.
	ErrNilIdentifier = errors.New("conveyor: nil identifier")

	// ErrNotInvocable is returned when a resolved value lacks the required capability.
	ErrNotInvocable = errors.New("conveyor: value is not invocable")

	// ErrInvalidStatus is returned by Emit for a status outside 100..999.
	ErrInvalidStatus = errors.New("conveyor: invalid response status")
)

// ResolutionError reports that an identifier could not be turned into an
// invocable middleware or handler. It is a fault: the error boundary sees it.
type ResolutionError struct {
	ID  Identifier
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("conveyor: resolve %s: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// PanicError represents a panic recovered inside the chain.
type PanicError struct {
	Value any    // The panic value
	Stack []byte // Stack trace (nil if disabled)
}

// NewPanicError captures a recovered panic value together with up to
// stackSize bytes of the current goroutine's stack. A non-positive stackSize
// skips the stack.
func NewPanicError(value any, stackSize int) *PanicError {
	pe := &PanicError{Value: value}
	if stackSize > 0 {
		buf := make([]byte, stackSize)
		pe.Stack = buf[:runtime.Stack(buf, false)]
	}
	return pe
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// FaultResponderError reports that a fault responder failed while handling
// a fault. It is unrecoverable: error boundaries pass it through untouched and
// it surfaces from Dispatch to the hosting process.
type FaultResponderError struct {
	Fault error // The fault being handled
	Err   error // What went wrong in the responder
}

func (e *FaultResponderError) Error() string {
	return fmt.Sprintf("conveyor: fault responder failed: %v (while handling: %v)", e.Err, e.Fault)
}

func (e *FaultResponderError) Unwrap() []error {
	return []error{e.Err, e.Fault}
}

// IsResolutionError returns true if the error is a ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

// IsPanicError returns true if the error is a PanicError.
func IsPanicError(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// IsFaultResponderError returns true if the error is a FaultResponderError.
func IsFaultResponderError(err error) bool {
	var fe *FaultResponderError
	return errors.As(err, &fe)
}

// AsPanicError extracts the PanicError from an error if present.
func AsPanicError(err error) (*PanicError, bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// HTTPError represents an HTTP error with all data needed for rendering.
// Handlers return it to choose the status code the fault responder uses.
type HTTPError struct {
	// Err is the underlying error (for logging, not exposed to users).
	Err error

	// Message is the user-facing error message.
	Message string

	// Detail is an optional extended description.
	Detail string

	// ErrorCode is an application-specific error code (for i18n, client handling).
	ErrorCode string

	// Code is the HTTP status code (e.g., 404, 500).
	Code int
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError creates a new HTTPError with the given status code and message.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{
		Code:    code,
		Message: message,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithDetail(detail string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Detail = detail
	}
}

func WithErrorCode(code string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.ErrorCode = code
	}
}

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

// Convenience constructors for common HTTP errors.

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

// IsHTTPError returns true if the error chain contains an HTTPError.
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

// AsHTTPError extracts the HTTPError from an error chain if present.
// Returns nil if there is none.
func AsHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}
