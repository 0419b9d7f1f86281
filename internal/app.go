package internal

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/conveyor/pkg/cache"
	"github.com/dmitrymomot/conveyor/pkg/logger"
)

// Default server timeouts (hardcoded, opinionated).
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// App wires the registry, resolver, dispatcher and routes into one pipeline.
//
// The pipeline is, in order: the error boundary (unless disabled), global
// middleware in registration order, then the router adapter. It is frozen
// when New returns; App is immutable after creation.
type App struct {
	registry      *Registry
	lookup        Lookup
	resolver      *Resolver
	dispatcher    *Dispatcher
	routes        *Routes
	logger        *slog.Logger
	instanceCache cache.Cache[any]
	healthConfig  *healthConfig
	metrics       *metricsRoute
	healthOptions []HealthOption
	boundaryOpts  []BoundaryOption
	routerOpts    []RouterOption
	middlewares   []Identifier
	controllers   []Controller
	instanceTTL   time.Duration
	displayErrors bool
	noBoundary    bool
	healthEnabled bool
}

// New creates a new application with the given options.
//
// Example:
//
//	app := conveyor.New(
//	    conveyor.WithMiddleware(
//	        conveyor.Instance(middlewares.RequestID()),
//	        conveyor.Named("auth"),
//	    ),
//	    conveyor.WithFactory("auth", newAuthCheck),
//	    conveyor.WithControllers(&UsersController{}),
//	)
func New(opts ...Option) *App {
	a := &App{
		registry:    NewRegistry(),
		routes:      NewRoutes(),
		logger:      logger.NewNope(), // Default: noop logger (before options)
		instanceTTL: -1,
	}

	for _, opt := range opts {
		opt(a)
	}

	lookup := a.lookup
	if lookup == nil {
		lookup = a.registry
	}

	resolverOpts := []ResolverOption{WithResolverLogger(a.logger)}
	if a.instanceCache != nil {
		resolverOpts = append(resolverOpts,
			WithResolverCache(a.instanceCache),
			WithResolverCacheTTL(a.instanceTTL),
		)
	}
	a.resolver = NewResolver(lookup, resolverOpts...)
	a.dispatcher = NewDispatcher(a.resolver)

	a.setupPipeline()
	return a
}

// setupPipeline registers the pipeline and freezes it.
func (a *App) setupPipeline() {
	if !a.noBoundary {
		opts := append([]BoundaryOption{
			WithBoundaryLogger(a.logger),
			WithStructuredResponder(JSONResponder{DisplayDetails: a.displayErrors}),
			WithRenderedResponder(PageResponder{DisplayDetails: a.displayErrors}),
		}, a.boundaryOpts...)
		a.mustAdd(Instance(NewErrorBoundary(opts...)))
	}

	a.mustAdd(a.middlewares...)

	r := a.routes.Router()
	if a.healthEnabled {
		a.healthConfig = newHealthConfig(a.logger, a.healthOptions...)
		a.healthConfig.Routes(r)
	}
	if a.metrics != nil {
		a.metrics.Routes(r)
	}
	for _, c := range a.controllers {
		c.Routes(r)
	}

	a.mustAdd(Instance(NewRouterMiddleware(a.routes, a.resolver, a.routerOpts...)))
	a.dispatcher.Freeze()
}

// mustAdd appends to the dispatcher during setup.
// Only a nil identifier can fail here, which is a programming error.
func (a *App) mustAdd(ids ...Identifier) {
	if err := a.dispatcher.Add(ids...); err != nil {
		panic(err)
	}
}

// Registry returns the registry backing Named identifiers.
// Registering after New is allowed; names are looked up at call time.
func (a *App) Registry() *Registry {
	return a.registry
}

// Resolver returns the resolver shared by the pipeline and the router.
func (a *App) Resolver() *Resolver {
	return a.resolver
}

// Routes returns the route table.
func (a *App) Routes() *Routes {
	return a.routes
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Dispatch runs req through the pipeline.
// A non-nil error means no response could be produced: the pipeline has no
// error boundary, or a fault responder failed (*FaultResponderError).
func (a *App) Dispatch(req *Request) (*Response, error) {
	return a.dispatcher.Dispatch(req)
}

// ServeHTTP adapts the pipeline to net/http.
// Errors escaping Dispatch are logged and answered with a bare 500.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := a.dispatcher.Dispatch(RequestFromHTTP(r))
	if err != nil {
		a.logger.ErrorContext(r.Context(), "dispatch failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if _, err := Emit(w, resp); err != nil {
		a.logger.WarnContext(r.Context(), "write response failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
}

// Run starts a single-app HTTP server and blocks until shutdown.
//
// Example:
//
//	app := conveyor.New(conveyor.WithControllers(&UsersController{}))
//	err := app.Run(":8080", conveyor.Logger(log))
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := buildRunConfig(append([]RunOption{Address(addr), Logger(a.logger)}, opts...)...)
	return serve(a, cfg)
}

// Shutdown returns a hook that releases resources owned by the App.
// It closes the instance cache when one is configured.
func (a *App) Shutdown() func(context.Context) error {
	return func(context.Context) error {
		if a.instanceCache == nil {
			return nil
		}
		return a.instanceCache.Close()
	}
}
