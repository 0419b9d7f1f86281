package conveyor

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/conveyor/internal"
	"github.com/dmitrymomot/conveyor/pkg/cache"
	"github.com/dmitrymomot/conveyor/pkg/config"
	"github.com/dmitrymomot/conveyor/pkg/health"
	"github.com/dmitrymomot/conveyor/pkg/logger"
)

// Type aliases - public API
type (
	// App wires a registry, resolver, dispatcher and routes into one pipeline.
	App = internal.App

	// Request is an immutable inbound request.
	Request = internal.Request

	// Response is an immutable outbound response.
	Response = internal.Response

	// Params holds path parameters extracted by the router.
	Params = internal.Params

	// Handler produces a response for a request.
	Handler = internal.Handler

	// HandlerFunc adapts a function to Handler.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps the rest of the chain.
	Middleware = internal.Middleware

	// MiddlewareFunc adapts a function to Middleware.
	MiddlewareFunc = internal.MiddlewareFunc

	// Controller declares routes on a router.
	Controller = internal.Controller

	// Router is the interface controllers use to declare routes.
	Router = internal.Router

	// Identifier names a middleware or handler without constructing it.
	Identifier = internal.Identifier

	// Lookup instantiates objects by name for Named identifiers.
	Lookup = internal.Lookup

	// LookupFunc adapts a function to Lookup.
	LookupFunc = internal.LookupFunc

	// Factory constructs the object registered under a name.
	Factory = internal.Factory

	// Registry is the default Lookup.
	Registry = internal.Registry

	// Resolver turns identifiers into middleware and handlers.
	Resolver = internal.Resolver

	// Dispatcher runs requests through an ordered middleware pipeline.
	Dispatcher = internal.Dispatcher

	// Routes is the chi-backed route table.
	Routes = internal.Routes

	// RouteMatch is the result of matching a method and path.
	RouteMatch = internal.RouteMatch

	// RouteMatcher maps a method and path to a route.
	RouteMatcher = internal.RouteMatcher

	// RouteStatus is the outcome of a route match.
	RouteStatus = internal.RouteStatus

	// RouterMiddleware is the terminal router adapter.
	RouterMiddleware = internal.RouterMiddleware

	// ErrorBoundary converts faults below it into responses.
	ErrorBoundary = internal.ErrorBoundary

	// FaultResponder turns a fault into a response.
	FaultResponder = internal.FaultResponder

	// FaultResponderFunc adapts a function to FaultResponder.
	FaultResponderFunc = internal.FaultResponderFunc

	// FaultReport is the client-facing description of a fault.
	FaultReport = internal.FaultReport

	// JSONResponder answers faults with JSON.
	JSONResponder = internal.JSONResponder

	// PageResponder answers faults with an HTML page.
	PageResponder = internal.PageResponder

	// AcceptancePreference decides which error representation a request expects.
	AcceptancePreference = internal.AcceptancePreference

	// AcceptancePreferenceFunc adapts a function to AcceptancePreference.
	AcceptancePreferenceFunc = internal.AcceptancePreferenceFunc

	// HeaderPreference is the default AcceptancePreference.
	HeaderPreference = internal.HeaderPreference

	// Preference is the kind of error response a client expects.
	Preference = internal.Preference

	// Component is the interface for renderable templates.
	Component = internal.Component

	// Extractor pulls a value out of a request from ordered sources.
	Extractor = internal.Extractor

	// ExtractorSource is one place an Extractor looks.
	ExtractorSource = internal.ExtractorSource

	// HTTPError is an error with an HTTP status code.
	HTTPError = internal.HTTPError

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// ResolutionError reports an identifier that could not be resolved.
	ResolutionError = internal.ResolutionError

	// PanicError is a panic recovered inside the chain.
	PanicError = internal.PanicError

	// FaultResponderError reports a failing fault responder.
	FaultResponderError = internal.FaultResponderError

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// ResolverOption configures a Resolver.
	ResolverOption = internal.ResolverOption

	// RouterOption configures a RouterMiddleware.
	RouterOption = internal.RouterOption

	// BoundaryOption configures an ErrorBoundary.
	BoundaryOption = internal.BoundaryOption

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// ContextExtractor extracts a slog attribute from context.
	// Used with WithLogger to add request-scoped values to logs.
	ContextExtractor = logger.ContextExtractor
)

// Route match outcomes.
const (
	RouteNotFound         = internal.RouteNotFound
	RouteFound            = internal.RouteFound
	RouteMethodNotAllowed = internal.RouteMethodNotAllowed
)

// Error representations.
const (
	PreferRendered   = internal.PreferRendered
	PreferStructured = internal.PreferStructured
)

// DefaultStackSize is the default stack capture size for recovered panics.
const DefaultStackSize = internal.DefaultStackSize

// Sentinel errors.
var (
	ErrEmptyPipeline   = internal.ErrEmptyPipeline
	ErrPipelineFrozen  = internal.ErrPipelineFrozen
	ErrNextCalledTwice = internal.ErrNextCalledTwice
	ErrNoResponse      = internal.ErrNoResponse
	ErrNotRegistered   = internal.ErrNotRegistered
	ErrNilIdentifier   = internal.ErrNilIdentifier
	ErrNotInvocable    = internal.ErrNotInvocable
	ErrInvalidStatus   = internal.ErrInvalidStatus
)

// Constructors

// New creates a new application with the given options.
// The App is immutable after creation.
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
//
//	err := app.Run(":8080", conveyor.Logger(log))
func New(opts ...Option) *App {
	return internal.New(opts...)
}

// Run starts a multi-domain HTTP server and blocks until shutdown.
// Each App keeps its own pipeline; the host decides which one a request enters.
//
// Example:
//
//	err := conveyor.Run(
//	    conveyor.Domain("api.acme.com", api),
//	    conveyor.Domain("*.acme.com", website),
//	    conveyor.Address(":8080"),
//	)
func Run(opts ...RunOption) error {
	return internal.Run(opts...)
}

// NewRequest creates a request for in-process dispatch and tests.
func NewRequest(method, target string) *Request {
	return internal.NewRequest(method, target)
}

// RequestFromHTTP converts a net/http request into a Request.
func RequestFromHTTP(r *http.Request) *Request {
	return internal.RequestFromHTTP(r)
}

// Emit writes resp to w.
func Emit(w http.ResponseWriter, resp *Response) (int64, error) {
	return internal.Emit(w, resp)
}

// FromHTTPHandler runs a net/http handler as a route handler.
func FromHTTPHandler(h http.Handler) Handler {
	return internal.FromHTTPHandler(h)
}

// NewResponse creates an empty response with the given status.
func NewResponse(status int) *Response {
	return internal.NewResponse(status)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return internal.NewRegistry()
}

// NewResolver creates a resolver backed by lookup.
func NewResolver(lookup Lookup, opts ...ResolverOption) *Resolver {
	return internal.NewResolver(lookup, opts...)
}

// NewDispatcher creates an empty pipeline.
func NewDispatcher(resolver *Resolver) *Dispatcher {
	return internal.NewDispatcher(resolver)
}

// NewRoutes creates an empty route table.
func NewRoutes() *Routes {
	return internal.NewRoutes()
}

// NewRouterMiddleware creates the router adapter.
func NewRouterMiddleware(matcher RouteMatcher, resolver *Resolver, opts ...RouterOption) *RouterMiddleware {
	return internal.NewRouterMiddleware(matcher, resolver, opts...)
}

// NewErrorBoundary creates an error boundary.
func NewErrorBoundary(opts ...BoundaryOption) *ErrorBoundary {
	return internal.NewErrorBoundary(opts...)
}

// NewExtractor creates an extractor that tries sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return internal.NewExtractor(sources...)
}

// Identifiers

// Instance identifies an already constructed Middleware or Handler.
func Instance(v any) Identifier {
	return internal.Instance(v)
}

// Named identifies a middleware or handler by its registered name.
func Named(name string) Identifier {
	return internal.Named(name)
}

// Func identifies a plain function with a middleware or handler signature.
func Func(fn any) Identifier {
	return internal.Func(fn)
}

// Responses

// Text creates a plain text response.
func Text(status int, s string) *Response {
	return internal.Text(status, s)
}

// HTML creates an HTML response.
func HTML(status int, s string) *Response {
	return internal.HTML(status, s)
}

// JSON creates a JSON response.
func JSON(status int, v any) (*Response, error) {
	return internal.JSON(status, v)
}

// NoContent creates a response without a body.
func NoContent(status int) *Response {
	return internal.NoContent(status)
}

// Redirect creates a redirect response.
func Redirect(url string, status int) *Response {
	return internal.Redirect(url, status)
}

// Render renders a component into an HTML response.
func Render(ctx context.Context, status int, c Component) (*Response, error) {
	return internal.Render(ctx, status, c)
}

// App options

// WithMiddleware appends global middleware to the pipeline.
func WithMiddleware(ids ...Identifier) Option {
	return internal.WithMiddleware(ids...)
}

// WithControllers registers controllers that declare routes.
func WithControllers(c ...Controller) Option {
	return internal.WithControllers(c...)
}

// WithRoutes declares routes inline.
func WithRoutes(fn func(r Router)) Option {
	return internal.WithRoutes(fn)
}

// WithRegistry replaces the default registry.
func WithRegistry(r *Registry) Option {
	return internal.WithRegistry(r)
}

// WithLookup resolves Named identifiers through l.
func WithLookup(l Lookup) Option {
	return internal.WithLookup(l)
}

// WithFactory registers a factory for a Named identifier.
func WithFactory(name string, f Factory) Option {
	return internal.WithFactory(name, f)
}

// WithSingleton registers a constructed value under name.
func WithSingleton(name string, v any) Option {
	return internal.WithSingleton(name, v)
}

// WithInstanceCache memoizes Named identifiers in c.
func WithInstanceCache(c cache.Cache[any], ttl time.Duration) Option {
	return internal.WithInstanceCache(c, ttl)
}

// WithErrorBoundary configures the outermost error boundary.
func WithErrorBoundary(opts ...BoundaryOption) Option {
	return internal.WithErrorBoundary(opts...)
}

// WithoutErrorBoundary removes the outermost error boundary.
func WithoutErrorBoundary() Option {
	return internal.WithoutErrorBoundary()
}

// WithDisplayErrors shows error details in fault responses.
func WithDisplayErrors(display bool) Option {
	return internal.WithDisplayErrors(display)
}

// WithNotFoundHandler sets a custom 404 handler.
func WithNotFoundHandler(h Handler) Option {
	return internal.WithNotFoundHandler(h)
}

// WithMethodNotAllowedHandler sets a custom 405 handler.
func WithMethodNotAllowedHandler(h Handler) Option {
	return internal.WithMethodNotAllowedHandler(h)
}

// WithBasePath serves the application under a sub-path.
func WithBasePath(path string) Option {
	return internal.WithBasePath(path)
}

// WithHealthChecks enables liveness and readiness endpoints.
//
// Example:
//
//	conveyor.WithHealthChecks(
//	    conveyor.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithMetricsRoute serves Prometheus metrics from g at path.
func WithMetricsRoute(path string, g prometheus.Gatherer) Option {
	return internal.WithMetricsRoute(path, g)
}

// WithLogger creates a logger with a component name and optional extractors.
//
// Example:
//
//	conveyor.New(
//	    conveyor.WithLogger("api", middlewares.RequestIDExtractor()),
//	)
func WithLogger(component string, extractors ...ContextExtractor) Option {
	return internal.WithLogger(component, extractors...)
}

// WithCustomLogger sets a fully custom logger.
func WithCustomLogger(l *slog.Logger) Option {
	return internal.WithCustomLogger(l)
}

// Health options

// WithLivenessPath sets a custom liveness endpoint path.
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets a custom readiness endpoint path.
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// WithHealthOptions passes options to the health runner.
func WithHealthOptions(opts ...health.Option) HealthOption {
	return internal.WithHealthOptions(opts...)
}

// Resolver options

// WithResolverCache memoizes Named identifiers in c.
func WithResolverCache(c cache.Cache[any]) ResolverOption {
	return internal.WithResolverCache(c)
}

// WithResolverCacheTTL sets how long memoized instances live.
func WithResolverCacheTTL(d time.Duration) ResolverOption {
	return internal.WithResolverCacheTTL(d)
}

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return internal.WithResolverLogger(l)
}

// Router options

// NotFound replaces the default 404 response.
func NotFound(h Handler) RouterOption {
	return internal.NotFound(h)
}

// MethodNotAllowed replaces the default 405 response.
func MethodNotAllowed(h Handler) RouterOption {
	return internal.MethodNotAllowed(h)
}

// StripPrefix serves the router from a sub-path.
func StripPrefix(prefix string) RouterOption {
	return internal.StripPrefix(prefix)
}

// Boundary options

// WithStructuredResponder sets the responder for structured errors.
func WithStructuredResponder(r FaultResponder) BoundaryOption {
	return internal.WithStructuredResponder(r)
}

// WithRenderedResponder sets the responder for rendered errors.
func WithRenderedResponder(r FaultResponder) BoundaryOption {
	return internal.WithRenderedResponder(r)
}

// WithResponder uses r for every preference.
func WithResponder(r FaultResponder) BoundaryOption {
	return internal.WithResponder(r)
}

// WithAcceptancePreference replaces the default HeaderPreference.
func WithAcceptancePreference(p AcceptancePreference) BoundaryOption {
	return internal.WithAcceptancePreference(p)
}

// WithBoundaryLogger sets the logger for handled faults.
func WithBoundaryLogger(l *slog.Logger) BoundaryOption {
	return internal.WithBoundaryLogger(l)
}

// WithBoundaryStackSize sets how much stack is captured for panics.
func WithBoundaryStackSize(size int) BoundaryOption {
	return internal.WithBoundaryStackSize(size)
}

// NewFaultReport builds the client-facing report for fault.
func NewFaultReport(fault error, req *Request, details bool) FaultReport {
	return internal.NewFaultReport(fault, req, details)
}

// FaultPage renders report as a standalone HTML document.
func FaultPage(title string, report FaultReport) templ.Component {
	return internal.FaultPage(title, report)
}

// NewPanicError wraps a recovered panic value with up to stackSize bytes of stack.
func NewPanicError(value any, stackSize int) *PanicError {
	return internal.NewPanicError(value, stackSize)
}

// Run options

// Address sets the server listen address.
// Default: ":8080"
func Address(addr string) RunOption {
	return internal.Address(addr)
}

// Listener serves on ln instead of opening a new listener.
func Listener(ln net.Listener) RunOption {
	return internal.Listener(ln)
}

// ServerConfig applies server.addr and server.shutdown_timeout.
func ServerConfig(sc config.ServerConfig) RunOption {
	return internal.ServerConfig(sc)
}

// Logger sets the logger for server lifecycle events.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the graceful shutdown timeout.
// Default: 30 seconds
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook registers a function that runs before the listener opens.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook registers a cleanup function called during graceful shutdown.
// Hooks run in reverse registration order after the HTTP server stops.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// Domain maps a host pattern to an App.
// Patterns: "api.example.com" (exact) or "*.example.com" (wildcard)
func Domain(pattern string, app *App) RunOption {
	return internal.Domain(pattern, app)
}

// Fallback sets the App for requests that match no domain.
func Fallback(app *App) RunOption {
	return internal.Fallback(app)
}

// WithContext sets a custom base context for signal handling.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// Errors

// NewHTTPError creates an HTTPError.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

// WithDetail sets the public detail of an HTTPError.
func WithDetail(detail string) HTTPErrorOption {
	return internal.WithDetail(detail)
}

// WithErrorCode sets the machine-readable code of an HTTPError.
func WithErrorCode(code string) HTTPErrorOption {
	return internal.WithErrorCode(code)
}

// WithError wraps an underlying error in an HTTPError.
func WithError(err error) HTTPErrorOption {
	return internal.WithError(err)
}

// ErrBadRequest creates a 400 HTTPError.
func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrBadRequest(message, opts...)
}

// ErrUnauthorized creates a 401 HTTPError.
func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnauthorized(message, opts...)
}

// ErrForbidden creates a 403 HTTPError.
func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrForbidden(message, opts...)
}

// ErrNotFound creates a 404 HTTPError.
func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrNotFound(message, opts...)
}

// ErrInternal creates a 500 HTTPError.
func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrInternal(message, opts...)
}

// IsHTTPError reports whether err contains an HTTPError.
func IsHTTPError(err error) bool {
	return internal.IsHTTPError(err)
}

// AsHTTPError returns the HTTPError in err's chain, or nil.
func AsHTTPError(err error) *HTTPError {
	return internal.AsHTTPError(err)
}

// IsResolutionError reports whether err contains a ResolutionError.
func IsResolutionError(err error) bool {
	return internal.IsResolutionError(err)
}

// IsPanicError reports whether err contains a PanicError.
func IsPanicError(err error) bool {
	return internal.IsPanicError(err)
}

// AsPanicError returns the PanicError in err's chain.
func AsPanicError(err error) (*PanicError, bool) {
	return internal.AsPanicError(err)
}

// IsFaultResponderError reports whether err contains a FaultResponderError.
func IsFaultResponderError(err error) bool {
	return internal.IsFaultResponderError(err)
}

// Extractor sources

// FromHeader extracts a value from a request header.
func FromHeader(name string) ExtractorSource {
	return internal.FromHeader(name)
}

// FromQuery extracts a value from a query parameter.
func FromQuery(name string) ExtractorSource {
	return internal.FromQuery(name)
}

// FromCookie extracts a value from a cookie.
func FromCookie(name string) ExtractorSource {
	return internal.FromCookie(name)
}

// FromParam extracts a value from a path parameter.
func FromParam(name string) ExtractorSource {
	return internal.FromParam(name)
}

// FromAttribute extracts a string attribute.
func FromAttribute(key any) ExtractorSource {
	return internal.FromAttribute(key)
}

// FromIP extracts the client IP, trusting proxy headers.
func FromIP() ExtractorSource {
	return internal.FromIP()
}

// FromRemoteIP extracts the peer IP, ignoring proxy headers.
func FromRemoteIP() ExtractorSource {
	return internal.FromRemoteIP()
}

// FromBearerToken extracts the token from an Authorization: Bearer header.
func FromBearerToken() ExtractorSource {
	return internal.FromBearerToken()
}

// Request helpers

// Attr returns a typed request attribute or the zero value.
func Attr[T any](req *Request, key any) T {
	return internal.Attr[T](req, key)
}

// ContextValue returns a typed value from the request context or the zero value.
func ContextValue[T any](req *Request, key any) T {
	return internal.ContextValue[T](req, key)
}

// Param returns a typed path parameter or the zero value.
func Param[T ~string | ~int | ~int64 | ~float64 | ~bool](req *Request, name string) T {
	return internal.Param[T](req, name)
}

// Query returns a typed query parameter or the zero value.
func Query[T ~string | ~int | ~int64 | ~float64 | ~bool](req *Request, name string) T {
	return internal.Query[T](req, name)
}

// QueryDefault returns a typed query parameter or defaultValue.
func QueryDefault[T ~string | ~int | ~int64 | ~float64 | ~bool](req *Request, name string, defaultValue T) T {
	return internal.QueryDefault[T](req, name, defaultValue)
}

// OnRoute returns a copy of req that reports the matched route pattern to fn.
func OnRoute(req *Request, fn func(pattern string)) *Request {
	return internal.OnRoute(req, fn)
}

// RequestIDFromContext returns the request ID stored in ctx.
func RequestIDFromContext(ctx context.Context) string {
	return internal.RequestIDFromContext(ctx)
}

// ContextWithRequestID stores id in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return internal.ContextWithRequestID(ctx, id)
}
