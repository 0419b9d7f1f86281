package middlewares_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conveyor/internal"
)

// pipeline dispatches through mws followed by a router over routes.
func pipeline(t *testing.T, routes *internal.Routes, mws ...internal.Middleware) *internal.Dispatcher {
	t.Helper()

	d := internal.NewDispatcher(internal.NewResolver(nil))
	for _, mw := range mws {
		require.NoError(t, d.Add(internal.Instance(mw)))
	}
	require.NoError(t, d.Add(internal.Instance(internal.NewRouterMiddleware(routes, nil))))
	return d
}

// usersRoutes serves GET /users/{id} and a failing GET /crash.
func usersRoutes() *internal.Routes {
	routes := internal.NewRoutes()
	routes.Add(http.MethodGet, "/users/{id}", internal.Instance(func(req *internal.Request) (*internal.Response, error) {
		return internal.Text(http.StatusOK, "user "+req.Param("id")), nil
	}))
	routes.Add(http.MethodGet, "/crash", internal.Instance(func(*internal.Request) (*internal.Response, error) {
		return nil, errors.New("crash")
	}))
	return routes
}

// okHandler answers 200 "ok".
var okHandler = internal.HandlerFunc(func(*internal.Request) (*internal.Response, error) {
	return internal.Text(http.StatusOK, "ok"), nil
})

// countingHandler wraps h and records how many times it ran and the last
// request it saw.
type countingHandler struct {
	h    internal.Handler
	last *internal.Request
	mu   sync.Mutex
	n    int
}

func (c *countingHandler) Handle(req *internal.Request) (*internal.Response, error) {
	c.mu.Lock()
	c.n++
	c.last = req
	c.mu.Unlock()
	return c.h.Handle(req)
}

func (c *countingHandler) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *countingHandler) lastRequest() *internal.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
