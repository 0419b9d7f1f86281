package internal

import (
	"net/http"
	"slices"
	"strings"
)

// RouteStatus is the outcome of a route match.
type RouteStatus int

const (
	// RouteNotFound means no route matches the path.
	RouteNotFound RouteStatus = iota
	// RouteFound means a route matches both method and path.
	RouteFound
	// RouteMethodNotAllowed means the path matches but not for this method.
	RouteMethodNotAllowed
)

func (s RouteStatus) String() string {
	switch s {
	case RouteFound:
		return "found"
	case RouteMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "not_found"
	}
}

// RouteMatch is what a RouteMatcher reports for a method and path.
type RouteMatch struct {
	Handler    Identifier   // Route handler, set when Status is RouteFound
	Params     Params       // Extracted path parameters
	Pattern    string       // Matched route pattern
	Middleware []Identifier // Route-level middleware, outermost first
	Allowed    []string     // Methods valid for the path, set when Status is RouteMethodNotAllowed
	Status     RouteStatus
}

// RouteMatcher maps a method and path to a route.
// Routes is the default implementation.
type RouteMatcher interface {
	Match(method, path string) RouteMatch
}

// RouterOption configures a RouterMiddleware.
type RouterOption func(*RouterMiddleware)

// NotFound replaces the default 404 response.
func NotFound(h Handler) RouterOption {
	return func(m *RouterMiddleware) {
		if h != nil {
			m.notFound = h
		}
	}
}

// MethodNotAllowed replaces the default 405 response.
// The Allow header is added to whatever the handler returns.
func MethodNotAllowed(h Handler) RouterOption {
	return func(m *RouterMiddleware) {
		if h != nil {
			m.methodNotAllowed = h
		}
	}
}

// StripPrefix serves the application from a sub-path: prefix is removed
// from the request path before matching, and paths outside it are not found.
func StripPrefix(prefix string) RouterOption {
	return func(m *RouterMiddleware) {
		m.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// RouterMiddleware is the terminal middleware that matches the request
// against a RouteMatcher and runs the matched handler. It never calls next,
// so it belongs at the end of the pipeline.
//
// Unmatched paths yield 404 and known paths with the wrong method yield 405
// with an Allow header. Neither is a fault. Faults raised by the route handler
// or route-level middleware propagate to the enclosing error boundary.
type RouterMiddleware struct {
	matcher          RouteMatcher
	resolver         *Resolver
	notFound         Handler
	methodNotAllowed Handler
	prefix           string
}

// NewRouterMiddleware creates the router adapter.
// Route handlers and route-level middleware are resolved through resolver
// when a request reaches them.
func NewRouterMiddleware(matcher RouteMatcher, resolver *Resolver, opts ...RouterOption) *RouterMiddleware {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	m := &RouterMiddleware{
		matcher:          matcher,
		resolver:         resolver,
		notFound:         HandlerFunc(defaultNotFound),
		methodNotAllowed: HandlerFunc(defaultMethodNotAllowed),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Process matches req and invokes the route handler. next is never called.
// routingPath returns the escaped path when it differs from the decoded one,
// so an encoded slash stays inside a single segment.
func routingPath(req *Request) string {
	u := req.URL()
	if u.RawPath != "" {
		return u.RawPath
	}
	return req.Path()
}

func (m *RouterMiddleware) Process(req *Request, _ Handler) (*Response, error) {
	path, ok := m.stripPrefix(routingPath(req))
	if !ok {
		return m.notFound.Handle(req)
	}
	match := m.matcher.Match(req.Method(), path)

	switch match.Status {
	case RouteFound:
		notifyRoute(req, match.Pattern)
		req = req.withRoute(match.Pattern, match.Params)
		return buildChain(m.resolver, match.Middleware, routeHandler{
			resolver: m.resolver,
			id:       match.Handler,
		}).Handle(req)

	case RouteMethodNotAllowed:
		if len(match.Allowed) == 0 {
			return m.notFound.Handle(req)
		}
		resp, err := m.methodNotAllowed.Handle(req)
		if err != nil || resp == nil {
			return resp, err
		}
		return resp.WithHeader("Allow", allowHeader(match.Allowed)), nil
	}

	return m.notFound.Handle(req)
}

// stripPrefix removes the configured prefix from path.
// Reports false when path lies outside it.
func (m *RouterMiddleware) stripPrefix(path string) (string, bool) {
	if m.prefix == "" {
		return path, true
	}
	if path == m.prefix {
		return "/", true
	}
	rest, ok := strings.CutPrefix(path, m.prefix+"/")
	if !ok {
		return "", false
	}
	return "/" + rest, true
}

// routeObserversKey is the attribute key for registered route observers.
type routeObserversKey struct{}

// OnRoute returns a copy of req that reports the matched route pattern to fn.
// Middleware placed before the router use it to learn the route, which is
// otherwise only visible to requests downstream of the match. fn runs
// synchronously inside the router and is not called for 404 or 405.
func OnRoute(req *Request, fn func(pattern string)) *Request {
	existing, _ := req.Attribute(routeObserversKey{}).([]func(string))
	observers := make([]func(string), 0, len(existing)+1)
	observers = append(observers, existing...)
	observers = append(observers, fn)
	return req.WithAttribute(routeObserversKey{}, observers)
}

func notifyRoute(req *Request, pattern string) {
	observers, _ := req.Attribute(routeObserversKey{}).([]func(string))
	for _, fn := range observers {
		fn(pattern)
	}
}

// routeHandler resolves the matched handler when the route chain reaches it.
type routeHandler struct {
	resolver *Resolver
	id       Identifier
}

func (h routeHandler) Handle(req *Request) (*Response, error) {
	handler, err := h.resolver.ResolveHandler(req.Context(), h.id)
	if err != nil {
		return nil, err
	}
	return handler.Handle(req)
}

func defaultNotFound(*Request) (*Response, error) {
	return Text(http.StatusNotFound, http.StatusText(http.StatusNotFound)), nil
}

func defaultMethodNotAllowed(*Request) (*Response, error) {
	return Text(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed)), nil
}

// allowHeader formats methods as a sorted, de-duplicated Allow value.
func allowHeader(methods []string) string {
	sorted := slices.Clone(methods)
	for i := range sorted {
		sorted[i] = strings.ToUpper(sorted[i])
	}
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), ", ")
}
