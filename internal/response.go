package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Component is the interface for renderable templates.
// This is compatible with templ.Component.
type Component interface {
	Render(ctx context.Context, w io.Writer) error
}

// Response is an immutable outbound response.
// Builder methods return new values; the receiver is never modified.
//
// A body built from bytes can be read any number of times. A body built
// from a stream is handed to the transport as-is and can be read once;
// call Buffered to turn it into a re-readable copy.
type Response struct {
	header http.Header
	stream io.Reader
	reason string
	proto  string
	body   []byte
	status int
}

// NewResponse creates an empty response with the given status code.
func NewResponse(status int) *Response {
	return &Response{
		status: status,
		proto:  "1.1",
		header: make(http.Header),
	}
}

func (r *Response) clone() *Response {
	c := *r
	return &c
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.status }

// ReasonPhrase returns the reason phrase, defaulting to the standard text for the status.
func (r *Response) ReasonPhrase() string {
	if r.reason != "" {
		return r.reason
	}
	return http.StatusText(r.status)
}

// ProtocolVersion returns the HTTP protocol version, e.g. "1.1".
func (r *Response) ProtocolVersion() string { return r.proto }

// Header returns the first value of the named header.
func (r *Response) Header(name string) string {
	return r.header.Get(name)
}

// HeaderValues returns all values of the named header.
func (r *Response) HeaderValues(name string) []string {
	return append([]string(nil), r.header.Values(name)...)
}

// Headers returns a copy of all response headers.
func (r *Response) Headers() http.Header {
	return r.header.Clone()
}

// Body returns a reader over the response body.
// For byte bodies every call returns a fresh reader.
func (r *Response) Body() io.Reader {
	if r.stream != nil {
		return r.stream
	}
	return bytes.NewReader(r.body)
}

// IsStreamed reports whether the body is a one-shot stream.
func (r *Response) IsStreamed() bool {
	return r.stream != nil
}

// Bytes returns the body bytes of a non-streamed response.
// Returns nil for streamed responses; use Buffered first.
func (r *Response) Bytes() []byte {
	if r.stream != nil {
		return nil
	}
	return bytes.Clone(r.body)
}

// Buffered drains a streamed body into memory and returns a response whose
// body can be read repeatedly. Non-streamed responses are returned unchanged.
func (r *Response) Buffered() (*Response, error) {
	if r.stream == nil {
		return r, nil
	}
	data, err := io.ReadAll(r.stream)
	if closer, ok := r.stream.(io.Closer); ok {
		_ = closer.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("conveyor: buffer response body: %w", err)
	}
	c := r.clone()
	c.stream = nil
	c.body = data
	return c, nil
}

// WithStatus returns a copy with the status code and optional reason phrase replaced.
func (r *Response) WithStatus(code int, reason ...string) *Response {
	c := r.clone()
	c.status = code
	c.reason = ""
	if len(reason) > 0 {
		c.reason = reason[0]
	}
	return c
}

// WithProtocolVersion returns a copy with the protocol version replaced.
func (r *Response) WithProtocolVersion(version string) *Response {
	c := r.clone()
	c.proto = version
	return c
}

// WithHeader returns a copy with the named header set to value.
func (r *Response) WithHeader(name, value string) *Response {
	c := r.clone()
	c.header = cloneHeader(r.header)
	c.header.Set(name, value)
	return c
}

// WithAddedHeader returns a copy with value appended to the named header.
func (r *Response) WithAddedHeader(name, value string) *Response {
	c := r.clone()
	c.header = cloneHeader(r.header)
	c.header.Add(name, value)
	return c
}

// WithoutHeader returns a copy without the named header.
func (r *Response) WithoutHeader(name string) *Response {
	c := r.clone()
	c.header = cloneHeader(r.header)
	c.header.Del(name)
	return c
}

// WithBytes returns a copy whose body is data.
func (r *Response) WithBytes(data []byte) *Response {
	c := r.clone()
	c.stream = nil
	c.body = bytes.Clone(data)
	return c
}

// WithBody returns a copy streaming its body from body.
func (r *Response) WithBody(body io.Reader) *Response {
	c := r.clone()
	c.body = nil
	c.stream = body
	return c
}

// cloneHeader copies h and never returns nil.
func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return make(http.Header)
	}
	return h.Clone()
}

// Text creates a plain text response.
func Text(status int, s string) *Response {
	return NewResponse(status).
		WithHeader("Content-Type", "text/plain; charset=utf-8").
		WithBytes([]byte(s))
}

// HTML creates an HTML response from a string.
func HTML(status int, s string) *Response {
	return NewResponse(status).
		WithHeader("Content-Type", "text/html; charset=utf-8").
		WithBytes([]byte(s))
}

// JSON creates a JSON response by encoding v.
func JSON(status int, v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("conveyor: encode json: %w", err)
	}
	return NewResponse(status).
		WithHeader("Content-Type", "application/json").
		WithBytes(data), nil
}

// NoContent creates a response with no body.
func NoContent(status int) *Response {
	return NewResponse(status)
}

// Redirect creates a redirect response. Status defaults to 302 when zero.
func Redirect(url string, status int) *Response {
	if status == 0 {
		status = http.StatusFound
	}
	return NewResponse(status).WithHeader("Location", url)
}

// Render renders a component into an HTML response.
// Compatible with templ.Component.
func Render(ctx context.Context, status int, component Component) (*Response, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("conveyor: render component: %w", err)
	}
	return NewResponse(status).
		WithHeader("Content-Type", "text/html; charset=utf-8").
		WithBytes(buf.Bytes()), nil
}
