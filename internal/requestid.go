package internal

import "context"

// requestIDKey is the context key for the request ID.
type requestIDKey struct{}

// ContextWithRequestID returns a copy of ctx carrying id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// RequestID returns the request ID assigned to req.
// It prefers the ID stored by the RequestID middleware and falls back to
// the X-Request-ID header.
func (r *Request) RequestID() string {
	if id := RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header("X-Request-ID")
}
