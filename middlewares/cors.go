package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/conveyor/internal"
)

// DefaultCORSMaxAge is the default preflight cache duration.
const DefaultCORSMaxAge = 12 * time.Hour

// DefaultCORSConfig provides sensible defaults for CORS.
var DefaultCORSConfig = CORSConfig{
	AllowOrigins: []string{"*"},
	AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
	AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
	MaxAge:       DefaultCORSMaxAge,
}

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists allowed origins. "*" allows any origin and
	// "https://*.example.com" allows any subdomain of example.com.
	AllowOrigins []string

	// AllowOriginFunc replaces AllowOrigins when set.
	AllowOriginFunc func(origin string) bool

	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string

	// AllowCredentials echoes the request origin instead of "*".
	AllowCredentials bool

	// MaxAge is how long browsers may cache a preflight answer.
	MaxAge time.Duration
}

// CORSOption configures CORSConfig.
type CORSOption func(*CORSConfig)

// WithAllowOrigins sets the allowed origins.
func WithAllowOrigins(origins ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowOrigins = origins
	}
}

// WithAllowOriginFunc sets a dynamic origin validator.
// When set, it completely overrides AllowOrigins.
func WithAllowOriginFunc(fn func(origin string) bool) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowOriginFunc = fn
	}
}

// WithAllowMethods sets the allowed HTTP methods.
func WithAllowMethods(methods ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowMethods = methods
	}
}

// WithAllowHeaders sets the allowed request headers.
func WithAllowHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowHeaders = headers
	}
}

// WithExposeHeaders sets the headers exposed to the client.
func WithExposeHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.ExposeHeaders = headers
	}
}

// WithAllowCredentials enables credentials support.
// When enabled, Access-Control-Allow-Origin echoes the actual origin instead of "*".
func WithAllowCredentials() CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowCredentials = true
	}
}

// WithMaxAge sets the preflight cache duration.
func WithMaxAge(duration time.Duration) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.MaxAge = duration
	}
}

// CORS returns middleware that handles Cross-Origin Resource Sharing.
// Preflight requests from allowed origins are answered with 204 without
// calling the rest of the chain. Other requests from allowed origins get
// CORS headers on whatever response the chain produces. Requests from
// other origins pass through untouched and the browser blocks them.
func CORS(opts ...CORSOption) internal.Middleware {
	cfg := DefaultCORSConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	p := newCORSPolicy(cfg)

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
		origin := req.Header("Origin")
		if origin == "" || !p.allows(origin) {
			return next.Handle(req)
		}

		if req.Method() == http.MethodOptions && req.Header("Access-Control-Request-Method") != "" {
			return p.preflight(origin), nil
		}

		resp, err := next.Handle(req)
		if err != nil {
			return nil, err
		}
		return p.decorate(resp, origin), nil
	})
}

// corsPolicy is a CORSConfig compiled for request time.
type corsPolicy struct {
	allowFunc   func(string) bool
	exact       map[string]struct{}
	suffixes    [][2]string // scheme+"://" and ".domain" of wildcard origins
	methods     string
	headers     string
	expose      string
	maxAge      string
	anyOrigin   bool
	credentials bool
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		allowFunc:   cfg.AllowOriginFunc,
		exact:       make(map[string]struct{}, len(cfg.AllowOrigins)),
		methods:     strings.Join(cfg.AllowMethods, ", "),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}
	for _, o := range cfg.AllowOrigins {
		switch scheme, host, ok := strings.Cut(o, "://*"); {
		case o == "*":
			p.anyOrigin = true
		case ok && strings.HasPrefix(host, "."):
			p.suffixes = append(p.suffixes, [2]string{scheme + "://", host})
		default:
			p.exact[strings.ToLower(o)] = struct{}{}
		}
	}
	return p
}

func (p *corsPolicy) allows(origin string) bool {
	if p.allowFunc != nil {
		return p.allowFunc(origin)
	}
	if p.anyOrigin {
		return true
	}
	origin = strings.ToLower(origin)
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, s := range p.suffixes {
		rest, ok := strings.CutPrefix(origin, s[0])
		if ok && len(rest) > len(s[1]) && strings.HasSuffix(rest, s[1]) {
			return true
		}
	}
	return false
}

// decorate adds the headers shared by preflight and actual responses.
func (p *corsPolicy) decorate(resp *internal.Response, origin string) *internal.Response {
	allowOrigin := origin
	if p.anyOrigin && !p.credentials {
		allowOrigin = "*"
	}
	resp = resp.WithAddedHeader("Vary", "Origin").
		WithHeader("Access-Control-Allow-Origin", allowOrigin)
	if p.credentials {
		resp = resp.WithHeader("Access-Control-Allow-Credentials", "true")
	}
	if p.expose != "" {
		resp = resp.WithHeader("Access-Control-Expose-Headers", p.expose)
	}
	return resp
}

func (p *corsPolicy) preflight(origin string) *internal.Response {
	resp := p.decorate(internal.NoContent(http.StatusNoContent), origin).
		WithAddedHeader("Vary", "Access-Control-Request-Method").
		WithAddedHeader("Vary", "Access-Control-Request-Headers").
		WithHeader("Access-Control-Allow-Methods", p.methods).
		WithHeader("Access-Control-Allow-Headers", p.headers)
	if p.maxAge != "" {
		resp = resp.WithHeader("Access-Control-Max-Age", p.maxAge)
	}
	return resp
}
