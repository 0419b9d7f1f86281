package internal_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conveyor/internal"
)

// staticResponder answers every fault with a fixed status and records faults.
type staticResponder struct {
	faults []error
	status int
}

func (r *staticResponder) HandleFault(fault error, _ *internal.Request) (*internal.Response, error) {
	r.faults = append(r.faults, fault)
	return internal.Text(r.status, "handled"), nil
}

func failingRoute(fault error) *internal.Routes {
	routes := internal.NewRoutes()
	routes.Add(http.MethodGet, "/", internal.Func(func(*internal.Request) (*internal.Response, error) {
		return nil, fault
	}))
	return routes
}

func panickingRoute(value any) *internal.Routes {
	routes := internal.NewRoutes()
	routes.Add(http.MethodGet, "/", internal.Func(func(*internal.Request) (*internal.Response, error) {
		panic(value)
	}))
	return routes
}

func TestErrorBoundary_HandlerFault(t *testing.T) {
	t.Parallel()

	tr := &trace{}
	fault := errors.New("database down")
	responder := &staticResponder{status: http.StatusServiceUnavailable}
	boundary := internal.NewErrorBoundary(internal.WithResponder(responder))

	d, _ := newPipeline(nil, failingRoute(fault),
		internal.Instance(boundary),
		internal.Instance(traced("inner", tr)),
	)

	resp, err := d.Dispatch(internal.NewRequest(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode())

	// inner's pre-effects ran once, its post-effects never did.
	assert.Equal(t, []string{"inner.enter"}, tr.list())
	require.Len(t, responder.faults, 1)
	assert.ErrorIs(t, responder.faults[0], fault)
}

func TestErrorBoundary_Panic(t *testing.T) {
	t.Parallel()

	responder := &staticResponder{status: http.StatusInternalServerError}
	boundary := internal.NewErrorBoundary(internal.WithResponder(responder))
	d, _ := newPipeline(nil, panickingRoute("kaboom"), internal.Instance(boundary))

	resp, err := d.Dispatch(internal.NewRequest(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())

	require.Len(t, responder.faults, 1)
	pe, ok := internal.AsPanicError(responder.faults[0])
	require.True(t, ok)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestErrorBoundary_AbortHandlerRepanics(t *testing.T) {
	t.Parallel()

	d, _ := newPipeline(nil, panickingRoute(http.ErrAbortHandler),
		internal.Instance(internal.NewErrorBoundary()))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		_, _ = d.Dispatch(internal.NewRequest(http.MethodGet, "/"))
	})
}

func TestErrorBoundary_Preference(t *testing.T) {
	t.Parallel()

	fault := internal.ErrBadRequest("invalid input", internal.WithErrorCode("invalid_input"))

	newDispatcher := func(opts ...internal.BoundaryOption) *internal.Dispatcher {
		d, _ := newPipeline(nil, failingRoute(fault), internal.Instance(internal.NewErrorBoundary(opts...)))
		return d
	}

	t.Run("json accept gets structured report", func(t *testing.T) {
		t.Parallel()
		req := internal.NewRequest(http.MethodGet, "/").
			WithHeader("Accept", "application/json").
			WithHeader("X-Request-ID", "req-1")

		resp, err := newDispatcher().Dispatch(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.Contains(t, resp.Header("Content-Type"), "application/json")
		assert.Equal(t, "no-store", resp.Header("Cache-Control"))

		var report internal.FaultReport
		require.NoError(t, json.Unmarshal(resp.Bytes(), &report))
		assert.Equal(t, "invalid input", report.Message)
		assert.Equal(t, "invalid_input", report.ErrorCode)
		assert.Equal(t, "req-1", report.RequestID)
		assert.Equal(t, http.StatusBadRequest, report.Status)
		assert.Empty(t, report.Trace)
	})

	t.Run("browser gets rendered page", func(t *testing.T) {
		t.Parallel()
		req := internal.NewRequest(http.MethodGet, "/").WithHeader("Accept", "text/html")

		resp, err := newDispatcher().Dispatch(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.Contains(t, resp.Header("Content-Type"), "text/html")
		assert.Contains(t, string(resp.Bytes()), "invalid input")
	})

	t.Run("custom preference", func(t *testing.T) {
		t.Parallel()
		structured := &staticResponder{status: http.StatusTeapot}
		rendered := &staticResponder{status: http.StatusBadGateway}
		d := newDispatcher(
			internal.WithStructuredResponder(structured),
			internal.WithRenderedResponder(rendered),
			internal.WithAcceptancePreference(internal.AcceptancePreferenceFunc(func(req *internal.Request) internal.Preference {
				if strings.HasPrefix(req.Path(), "/api") {
					return internal.PreferStructured
				}
				return internal.PreferRendered
			})),
		)

		resp, err := d.Dispatch(internal.NewRequest(http.MethodGet, "/").WithHeader("Accept", "application/json"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode())
		assert.Len(t, rendered.faults, 1)
		assert.Empty(t, structured.faults)
	})
}

func TestErrorBoundary_ResponderFailure(t *testing.T) {
	t.Parallel()

	fault := errors.New("original")
	respErr := errors.New("responder broke")

	tests := []struct {
		name      string
		responder internal.FaultResponder
		want      error
	}{
		{
			name: "responder returns error",
			responder: internal.FaultResponderFunc(func(error, *internal.Request) (*internal.Response, error) {
				return nil, respErr
			}),
			want: respErr,
		},
		{
			name: "responder returns nothing",
			responder: internal.FaultResponderFunc(func(error, *internal.Request) (*internal.Response, error) {
				return nil, nil
			}),
			want: internal.ErrNoResponse,
		},
		{
			name: "responder panics",
			responder: internal.FaultResponderFunc(func(error, *internal.Request) (*internal.Response, error) {
				panic("responder panic")
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			outer := &staticResponder{status: http.StatusOK}
			d, _ := newPipeline(nil, failingRoute(fault),
				internal.Instance(internal.NewErrorBoundary(internal.WithResponder(outer))),
				internal.Instance(internal.NewErrorBoundary(internal.WithResponder(tt.responder))),
			)

			resp, err := d.Dispatch(internal.NewRequest(http.MethodGet, "/"))
			require.Nil(t, resp)
			require.True(t, internal.IsFaultResponderError(err))
			assert.ErrorIs(t, err, fault)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				assert.True(t, internal.IsPanicError(err))
			}
			assert.Empty(t, outer.faults, "outer boundary must not handle responder failures")
		})
	}
}

func TestErrorBoundary_Nested(t *testing.T) {
	t.Parallel()

	tr := &trace{}
	outer := &staticResponder{status: http.StatusInternalServerError}
	inner := &staticResponder{status: http.StatusConflict}

	d, _ := newPipeline(nil, failingRoute(errors.New("conflict")),
		internal.Instance(traced("before", tr)),
		internal.Instance(internal.NewErrorBoundary(internal.WithResponder(outer))),
		internal.Instance(traced("middle", tr)),
		internal.Instance(internal.NewErrorBoundary(internal.WithResponder(inner))),
	)

	resp, err := d.Dispatch(internal.NewRequest(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode())
	assert.Len(t, inner.faults, 1)
	assert.Empty(t, outer.faults)

	// middleware outside the innermost boundary sees a normal response.
	assert.Equal(t, []string{"before.enter", "middle.enter", "middle.exit", "before.exit"}, tr.list())
}

func TestErrorBoundary_PassesSuccessThrough(t *testing.T) {
	t.Parallel()

	responder := &staticResponder{status: http.StatusInternalServerError}
	routes := internal.NewRoutes()
	routes.Add(http.MethodGet, "/", internal.Instance(okHandler("fine")))
	d, _ := newPipeline(nil, routes, internal.Instance(internal.NewErrorBoundary(internal.WithResponder(responder))))

	resp, err := d.Dispatch(internal.NewRequest(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, "fine", string(resp.Bytes()))
	assert.Empty(t, responder.faults)

	// 404 from the router is a response, not a fault.
	resp, err = d.Dispatch(internal.NewRequest(http.MethodGet, "/missing"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Empty(t, responder.faults)
}

func TestHeaderPreference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		value  string
		want   internal.Preference
	}{
		{"json accept", "Accept", "application/json", internal.PreferStructured},
		{"json body", "Content-Type", "application/json", internal.PreferStructured},
		{"ajax", "X-Requested-With", "XMLHttpRequest", internal.PreferStructured},
		{"html", "Accept", "text/html", internal.PreferRendered},
		{"nothing", "X-Other", "1", internal.PreferRendered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := internal.NewRequest(http.MethodGet, "/").WithHeader(tt.header, tt.value)
			assert.Equal(t, tt.want, internal.HeaderPreference{}.Of(req))
		})
	}

	assert.Equal(t, "structured", internal.PreferStructured.String())
	assert.Equal(t, "rendered", internal.PreferRendered.String())
}

func TestFaultReport(t *testing.T) {
	t.Parallel()

	req := internal.NewRequest(http.MethodGet, "/").WithHeader("X-Request-ID", "abc")

	t.Run("generic fault hides details", func(t *testing.T) {
		t.Parallel()
		report := internal.NewFaultReport(errors.New("secret dsn"), req, false)
		assert.Equal(t, http.StatusInternalServerError, report.Status)
		assert.Equal(t, "Internal Server Error", report.Message)
		assert.Empty(t, report.Detail)
		assert.Equal(t, "abc", report.RequestID)
	})

	t.Run("details expose type and trace", func(t *testing.T) {
		t.Parallel()
		pe := internal.NewPanicError("boom", 2048)
		report := internal.NewFaultReport(pe, req, true)
		assert.Equal(t, "panic(string)", report.Type)
		assert.Contains(t, report.Detail, "boom")
		assert.NotEmpty(t, report.Trace)
	})

	t.Run("http error detail is public", func(t *testing.T) {
		t.Parallel()
		report := internal.NewFaultReport(internal.ErrNotFound("no such post", internal.WithDetail("post 7")), nil, false)
		assert.Equal(t, http.StatusNotFound, report.Status)
		assert.Equal(t, "no such post", report.Message)
		assert.Equal(t, "post 7", report.Detail)
	})

	t.Run("page escapes html", func(t *testing.T) {
		t.Parallel()
		resp, err := internal.PageResponder{DisplayDetails: true}.HandleFault(errors.New("<script>x</script>"), req)
		require.NoError(t, err)
		body := string(resp.Bytes())
		assert.NotContains(t, body, "<script>")
		assert.Contains(t, body, "&lt;script&gt;")
		assert.Contains(t, body, "abc")
	})
}
