package internal

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Router is the interface controllers use to declare routes.
// Handlers and middleware are identifiers, so nothing is constructed until
// a request reaches them.
type Router interface {
	// GET registers a handler for GET requests.
	GET(path string, h Identifier, mw ...Identifier)

	// POST registers a handler for POST requests.
	POST(path string, h Identifier, mw ...Identifier)

	// PUT registers a handler for PUT requests.
	PUT(path string, h Identifier, mw ...Identifier)

	// PATCH registers a handler for PATCH requests.
	PATCH(path string, h Identifier, mw ...Identifier)

	// DELETE registers a handler for DELETE requests.
	DELETE(path string, h Identifier, mw ...Identifier)

	// HEAD registers a handler for HEAD requests.
	HEAD(path string, h Identifier, mw ...Identifier)

	// OPTIONS registers a handler for OPTIONS requests.
	OPTIONS(path string, h Identifier, mw ...Identifier)

	// Handle registers a handler for an arbitrary method.
	Handle(method, path string, h Identifier, mw ...Identifier)

	// Group creates an inline route group.
	// Middleware added with Use inside fn apply only to routes in the group.
	Group(fn func(r Router))

	// Route creates a route group with a pattern prefix.
	// All routes defined inside fn share the pattern prefix.
	Route(prefix string, fn func(r Router))

	// Use appends route-level middleware for routes declared after it
	// on this router and its groups.
	Use(mw ...Identifier)
}

// probeMethods are tried when a path matches but the request method does not.
var probeMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

// route is a registered route entry.
type route struct {
	handler    Identifier
	pattern    string
	middleware []Identifier
}

// Routes is a RouteMatcher backed by a chi routing tree.
// chi does the pattern matching; Routes keeps the identifiers per method and
// pattern. Registration and matching are safe for concurrent use.
type Routes struct {
	mux    *chi.Mux
	routes map[string]route
	mu     sync.RWMutex
}

// NewRoutes creates an empty route table.
func NewRoutes() *Routes {
	return &Routes{
		mux:    chi.NewRouter(),
		routes: make(map[string]route),
	}
}

// Router returns the declaration interface for the table.
func (rt *Routes) Router() Router {
	return &routeGroup{routes: rt}
}

// Add registers a route. Panics on an invalid pattern, a nil handler, or a
// method chi does not support.
func (rt *Routes) Add(method, pattern string, h Identifier, mw ...Identifier) {
	if h == nil {
		panic(fmt.Sprintf("conveyor: nil handler for %s %s", method, pattern))
	}
	method = strings.ToUpper(method)

	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.mux.MethodFunc(method, pattern, noopHandler)
	rt.routes[routeKeyFor(method, pattern)] = route{
		handler:    h,
		pattern:    pattern,
		middleware: slices.Clone(mw),
	}
}

// Len returns the number of registered routes.
func (rt *Routes) Len() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.routes)
}

// Match implements RouteMatcher.
func (rt *Routes) Match(method, path string) RouteMatch {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	method = strings.ToUpper(method)
	if path == "" {
		path = "/"
	}

	rctx := chi.NewRouteContext()
	if pattern := rt.mux.Find(rctx, method, path); pattern != "" {
		if r, ok := rt.routes[routeKeyFor(method, pattern)]; ok {
			params := make(Params, len(rctx.URLParams.Keys))
			for i, key := range rctx.URLParams.Keys {
				params[key] = rctx.URLParams.Values[i]
			}
			return RouteMatch{
				Status:     RouteFound,
				Handler:    r.handler,
				Pattern:    r.pattern,
				Params:     params,
				Middleware: slices.Clone(r.middleware),
			}
		}
	}

	var allowed []string
	for _, m := range probeMethods {
		if m == method {
			continue
		}
		if rt.mux.Find(chi.NewRouteContext(), m, path) != "" {
			allowed = append(allowed, m)
		}
	}
	if len(allowed) > 0 {
		return RouteMatch{Status: RouteMethodNotAllowed, Allowed: allowed}
	}
	return RouteMatch{Status: RouteNotFound}
}

func routeKeyFor(method, pattern string) string {
	return method + " " + pattern
}

// noopHandler fills chi's endpoint slots; chi never serves requests here.
func noopHandler(http.ResponseWriter, *http.Request) {}

// routeGroup implements Router over a Routes table with a prefix and
// inherited middleware.
type routeGroup struct {
	routes     *Routes
	prefix     string
	middleware []Identifier
}

func (g *routeGroup) GET(path string, h Identifier, mw ...Identifier) {
	g.Handle(http.MethodGet, path, h, mw...)
}

func (g *routeGroup) POST(path string, h Identifier, mw ...Identifier) {
	g.Handle(http.MethodPost, path, h, mw...)
}

func (g *routeGroup) PUT(path string, h Identifier, mw ...Identifier) {
	g.Handle(http.MethodPut, path, h, mw...)
}

func (g *routeGroup) PATCH(path string, h Identifier, mw ...Identifier) {
	g.Handle(http.MethodPatch, path, h, mw...)
}

func (g *routeGroup) DELETE(path string, h Identifier, mw ...Identifier) {
	g.Handle(http.MethodDelete, path, h, mw...)
}

func (g *routeGroup) HEAD(path string, h Identifier, mw ...Identifier) {
	g.Handle(http.MethodHead, path, h, mw...)
}

func (g *routeGroup) OPTIONS(path string, h Identifier, mw ...Identifier) {
	g.Handle(http.MethodOptions, path, h, mw...)
}

func (g *routeGroup) Handle(method, path string, h Identifier, mw ...Identifier) {
	all := make([]Identifier, 0, len(g.middleware)+len(mw))
	all = append(all, g.middleware...)
	all = append(all, mw...)
	g.routes.Add(method, joinPattern(g.prefix, path), h, all...)
}

func (g *routeGroup) Group(fn func(Router)) {
	fn(&routeGroup{
		routes:     g.routes,
		prefix:     g.prefix,
		middleware: slices.Clone(g.middleware),
	})
}

func (g *routeGroup) Route(prefix string, fn func(Router)) {
	fn(&routeGroup{
		routes:     g.routes,
		prefix:     joinPattern(g.prefix, prefix),
		middleware: slices.Clone(g.middleware),
	})
}

func (g *routeGroup) Use(mw ...Identifier) {
	g.middleware = append(g.middleware, mw...)
}

// joinPattern concatenates a group prefix and a route pattern.
func joinPattern(prefix, pattern string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if pattern == "" || pattern == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return prefix + pattern
}
