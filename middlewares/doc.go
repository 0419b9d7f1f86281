// Package middlewares provides ready-made middleware for conveyor pipelines.
//
// Every constructor returns an internal.Middleware value. Register it with
// conveyor.Instance, or register the constructor as a factory and refer to
// it by name so it is built only when a request first reaches it:
//
//	app := conveyor.New(
//	    conveyor.WithFactory("auth", func(ctx context.Context) (any, error) {
//	        return middlewares.BearerAuth(verifyToken), nil
//	    }),
//	    conveyor.WithMiddleware(
//	        conveyor.Instance(middlewares.RequestID()),
//	        conveyor.Instance(middlewares.Logger(log)),
//	        conveyor.Named("auth"),
//	    ),
//	)
//
// # Request ID
//
// RequestID reuses X-Request-ID or X-Correlation-ID when the client sends
// one and generates a UUID otherwise. The ID is stored on the request
// context, echoed on the response and picked up by RequestIDExtractor for
// log records.
//
// # Recover and Timeout
//
// Recover turns panics below it into *PanicError faults so the error
// boundary can answer them. Timeout bounds the rest of the chain and fails
// with a 504 HTTPError wrapping *TimeoutError. The chain keeps running after
// the deadline; handlers should watch the request context.
//
// # CORS
//
// CORS answers preflight requests itself and decorates every other response
// with the configured Access-Control headers.
//
// # Auth
//
// BearerAuth and BasicAuth short-circuit with 401 and a WWW-Authenticate
// challenge. Verified claims are read with GetAuthClaims.
//
// # Rate limiting
//
// RateLimit keeps a token bucket per key (client IP by default) and answers
// 429 with Retry-After once the bucket is empty.
//
// # Observability
//
// Logger writes one record per request. Metrics exports Prometheus request
// counters and latency histograms. Tracing opens an OpenTelemetry server
// span. All three learn the matched route pattern from the router.
//
// # Response cache
//
// Cache stores successful GET responses in a cache.Cache, in memory or in
// Redis, and answers repeated requests without running the handler.
//
// # Order
//
// Outer middleware sees everything inner middleware does:
//
//	conveyor.WithMiddleware(
//	    conveyor.Instance(middlewares.RequestID()),
//	    conveyor.Instance(middlewares.Tracing()),
//	    conveyor.Instance(middlewares.Metrics()),
//	    conveyor.Instance(middlewares.Logger(log)),
//	    conveyor.Instance(middlewares.CORS()),
//	    conveyor.Instance(middlewares.Recover()),
//	    conveyor.Instance(middlewares.Timeout(5*time.Second)),
//	)
package middlewares
