package internal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Emit writes resp to w: headers, status, then the body.
// A streamed body is closed once copied. Bodies are skipped for statuses
// that forbid them. Returns the number of body bytes written.
// A status outside 100..999 is replaced by a bare 500 and reported as
// ErrInvalidStatus.
//
// net/http always sends the standard reason phrase and the connection's
// protocol version, so ReasonPhrase and ProtocolVersion are not emitted.
func Emit(w http.ResponseWriter, resp *Response) (int64, error) {
	if closer, ok := resp.stream.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	status := resp.StatusCode()
	if status == 0 {
		status = http.StatusOK
	}
	if status < 100 || status > 999 {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return 0, fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}

	dst := w.Header()
	for name, values := range resp.header {
		dst[name] = append([]string(nil), values...)
	}
	w.WriteHeader(status)

	if !bodyAllowed(status) {
		return 0, nil
	}

	n, err := io.Copy(w, resp.Body())
	if errors.Is(err, http.ErrBodyNotAllowed) {
		return n, nil
	}
	if f, ok := w.(http.Flusher); ok && resp.IsStreamed() {
		f.Flush()
	}
	return n, err
}

// bodyAllowed reports whether a response with status may carry a body.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// FromHTTPHandler runs a net/http handler as a route handler.
// The handler's output is buffered into a Response, so it suits small
// endpoints such as metrics or legacy pages, not long-lived streams.
func FromHTTPHandler(h http.Handler) Handler {
	return HandlerFunc(func(req *Request) (*Response, error) {
		rec := &recorder{header: make(http.Header)}
		h.ServeHTTP(rec, req.HTTPRequest())

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		resp := NewResponse(status).WithBytes(rec.body.Bytes())
		resp.header = rec.header
		return resp, nil
	})
}

// recorder is a minimal in-memory http.ResponseWriter.
type recorder struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}
