package middlewares

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/conveyor/internal"
)

const tracerName = "github.com/dmitrymomot/conveyor/middlewares"

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Propagators extracts the parent span context from request headers.
	// Defaults to otel.GetTextMapPropagator().
	Propagators propagation.TextMapPropagator
}

// TracingOption configures TracingConfig.
type TracingOption func(*TracingConfig)

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(cfg *TracingConfig) {
		cfg.TracerProvider = tp
	}
}

// WithPropagators sets the propagator used to extract trace context.
func WithPropagators(p propagation.TextMapPropagator) TracingOption {
	return func(cfg *TracingConfig) {
		cfg.Propagators = p
	}
}

// Tracing returns middleware that opens a server span for every request.
// The span context is placed on the request context so downstream code can
// start child spans. Once the router matches, the span is renamed to
// "METHOD /pattern" and tagged with http.route.
//
// Faults and 5xx responses mark the span as failed.
func Tracing(opts ...TracingOption) internal.Middleware {
	cfg := &TracingConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	propagator := cfg.Propagators
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	tracer := tp.Tracer(tracerName)

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
		method := req.Method()
		ctx := propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Headers()))
		ctx, span := tracer.Start(ctx, method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", method),
				attribute.String("url.path", req.Path()),
				attribute.String("url.scheme", req.Scheme()),
				attribute.String("server.address", req.Host()),
				attribute.String("client.address", req.IP()),
				attribute.String("user_agent.original", req.UserAgent()),
			),
		)
		defer span.End()

		req = internal.OnRoute(req.WithContext(ctx), func(pattern string) {
			span.SetName(method + " " + pattern)
			span.SetAttributes(attribute.String("http.route", pattern))
		})

		resp, err := next.Handle(req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		status := resp.StatusCode()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return resp, nil
	})
}
