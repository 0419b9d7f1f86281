package internal

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/conveyor/pkg/cache"
	"github.com/dmitrymomot/conveyor/pkg/logger"
)

// Option configures the application.
type Option func(*App)

// WithMiddleware appends global middleware to the pipeline.
// Middleware runs in the order provided, after the error boundary and
// before the router. Identifiers are resolved only when a request reaches
// them.
//
// Example:
//
//	conveyor.WithMiddleware(
//	    conveyor.Instance(middlewares.RequestID()),
//	    conveyor.Named("auth"),
//	    conveyor.Func(func(req *conveyor.Request, next conveyor.Handler) (*conveyor.Response, error) {
//	        return next.Handle(req)
//	    }),
//	)
func WithMiddleware(ids ...Identifier) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, ids...)
	}
}

// WithControllers registers controllers that declare routes.
// Each controller's Routes method is called during setup.
func WithControllers(c ...Controller) Option {
	return func(a *App) {
		a.controllers = append(a.controllers, c...)
	}
}

// WithRoutes declares routes inline.
//
// Example:
//
//	conveyor.WithRoutes(func(r conveyor.Router) {
//	    r.GET("/users/{id}", conveyor.Named("users.show"))
//	})
func WithRoutes(fn func(r Router)) Option {
	return func(a *App) {
		a.controllers = append(a.controllers, routesFunc(fn))
	}
}

// routesFunc adapts a function to Controller.
type routesFunc func(r Router)

func (f routesFunc) Routes(r Router) { f(r) }

// WithRegistry replaces the default registry.
// Apply it before WithFactory and WithSingleton, which register into
// whatever registry is current.
func WithRegistry(r *Registry) Option {
	return func(a *App) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithLookup resolves Named identifiers through l instead of the registry.
func WithLookup(l Lookup) Option {
	return func(a *App) {
		a.lookup = l
	}
}

// WithFactory registers a factory for a Named identifier.
//
// Example:
//
//	conveyor.WithFactory("auth", func(ctx context.Context) (any, error) {
//	    return middlewares.BearerAuth(tokens.Verify), nil
//	})
func WithFactory(name string, f Factory) Option {
	return func(a *App) {
		a.registry.Register(name, f)
	}
}

// WithSingleton registers an already constructed value under name.
func WithSingleton(name string, v any) Option {
	return func(a *App) {
		a.registry.Singleton(name, v)
	}
}

// WithInstanceCache memoizes Named identifiers in c, so each factory runs
// once per TTL instead of once per request. A negative ttl never expires.
// Factories behind cached names must not keep request-specific state.
//
// Example:
//
//	conveyor.WithInstanceCache(cache.NewMemory[any](), -1)
func WithInstanceCache(c cache.Cache[any], ttl time.Duration) Option {
	return func(a *App) {
		a.instanceCache = c
		a.instanceTTL = ttl
	}
}

// WithErrorBoundary configures the outermost error boundary.
//
// Example:
//
//	conveyor.WithErrorBoundary(
//	    conveyor.WithRenderedResponder(myPages),
//	)
func WithErrorBoundary(opts ...BoundaryOption) Option {
	return func(a *App) {
		a.boundaryOpts = append(a.boundaryOpts, opts...)
	}
}

// WithoutErrorBoundary removes the outermost error boundary.
// Faults then leave Dispatch as errors; ServeHTTP answers them with a bare 500.
func WithoutErrorBoundary() Option {
	return func(a *App) {
		a.noBoundary = true
	}
}

// WithDisplayErrors shows error text, type and stack traces in fault
// responses from the default responders. Keep it off in production.
func WithDisplayErrors(display bool) Option {
	return func(a *App) {
		a.displayErrors = display
	}
}

// WithNotFoundHandler sets a custom 404 handler.
//
// Example:
//
//	conveyor.WithNotFoundHandler(conveyor.HandlerFunc(func(req *conveyor.Request) (*conveyor.Response, error) {
//	    return conveyor.Text(http.StatusNotFound, "Page not found"), nil
//	}))
func WithNotFoundHandler(h Handler) Option {
	return func(a *App) {
		a.routerOpts = append(a.routerOpts, NotFound(h))
	}
}

// WithMethodNotAllowedHandler sets a custom 405 handler.
// The Allow header is always added.
func WithMethodNotAllowedHandler(h Handler) Option {
	return func(a *App) {
		a.routerOpts = append(a.routerOpts, MethodNotAllowed(h))
	}
}

// WithBasePath serves the application under a sub-path, e.g. "/app".
// Requests outside it get 404.
func WithBasePath(path string) Option {
	return func(a *App) {
		a.routerOpts = append(a.routerOpts, StripPrefix(path))
	}
}

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): Always returns OK if process is running.
// Readiness (/health/ready): Runs all configured checks.
//
// Example:
//
//	conveyor.WithHealthChecks(
//	    conveyor.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		a.healthEnabled = true
		a.healthOptions = append(a.healthOptions, opts...)
	}
}

// WithLogger creates a logger with a component name and optional extractors.
// The component name is added to every log entry for easy filtering.
// Extractors pull values from context (e.g., request_id).
//
// Example:
//
//	conveyor.New(
//	    conveyor.WithLogger("api", middlewares.RequestIDExtractor()),
//	)
func WithLogger(component string, extractors ...logger.ContextExtractor) Option {
	return func(a *App) {
		a.logger = logger.New(extractors...).With("component", component)
	}
}

// WithCustomLogger sets a fully custom logger.
// Use this when you need complete control over logging configuration.
func WithCustomLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}
