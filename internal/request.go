package internal

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/conveyor/pkg/hostrouter"
)

// Params holds path parameters extracted by the route matcher.
type Params map[string]string

// routeKey is the attribute key for the matched route.
type routeKey struct{}

// routeInfo is what the router adapter stores on the request after a match.
type routeInfo struct {
	params  Params
	pattern string
}

// Request is an immutable inbound request.
// Every With* method returns a new value and leaves the receiver untouched,
// so a Request can be passed down the chain without defensive copies.
// The body is a stream and can be consumed once.
type Request struct {
	ctx        context.Context
	url        *url.URL
	header     http.Header
	body       io.ReadCloser
	attrs      map[any]any
	method     string
	proto      string
	host       string
	remoteAddr string
	tls        bool
}

// NewRequest creates a request for in-process dispatch and tests.
// It panics if target cannot be parsed, like httptest.NewRequest.
func NewRequest(method, target string) *Request {
	u, err := url.ParseRequestURI(target)
	if err != nil {
		u, err = url.Parse(target)
		if err != nil {
			panic(fmt.Sprintf("conveyor: invalid request target %q: %v", target, err))
		}
	}
	if method == "" {
		method = http.MethodGet
	}
	return &Request{
		ctx:    context.Background(),
		method: method,
		url:    u,
		host:   u.Host,
		proto:  "1.1",
		header: make(http.Header),
		body:   http.NoBody,
	}
}

// RequestFromHTTP converts a net/http request into a Request value.
// Headers and URL are copied; the body stream is shared with r.
func RequestFromHTTP(r *http.Request) *Request {
	u := *r.URL
	body := r.Body
	if body == nil {
		body = http.NoBody
	}
	return &Request{
		ctx:        r.Context(),
		method:     r.Method,
		url:        &u,
		host:       r.Host,
		proto:      fmt.Sprintf("%d.%d", r.ProtoMajor, r.ProtoMinor),
		header:     r.Header.Clone(),
		body:       body,
		remoteAddr: r.RemoteAddr,
		tls:        r.TLS != nil,
	}
}

func (r *Request) clone() *Request {
	c := *r
	return &c
}

// Context returns the request's context. Never nil.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Method returns the HTTP method.
func (r *Request) Method() string { return r.method }

// URL returns a copy of the request URL.
func (r *Request) URL() *url.URL {
	u := *r.url
	return &u
}

// Path returns the URL path. An empty path is reported as "/".
func (r *Request) Path() string {
	if r.url.Path == "" {
		return "/"
	}
	return r.url.Path
}

// Host returns the requested host.
func (r *Request) Host() string { return r.host }

// ProtocolVersion returns the HTTP protocol version, e.g. "1.1".
func (r *Request) ProtocolVersion() string { return r.proto }

// RemoteAddr returns the network address of the client.
func (r *Request) RemoteAddr() string { return r.remoteAddr }

// Body returns the body stream.
func (r *Request) Body() io.ReadCloser { return r.body }

// Header returns the first value of the named header.
// Name matching is case-insensitive.
func (r *Request) Header(name string) string {
	return r.header.Get(name)
}

// HeaderValues returns all values of the named header.
func (r *Request) HeaderValues(name string) []string {
	return append([]string(nil), r.header.Values(name)...)
}

// Headers returns a copy of all request headers.
func (r *Request) Headers() http.Header {
	return r.header.Clone()
}

// Query returns the first value of the named query parameter.
func (r *Request) Query(name string) string {
	return r.url.Query().Get(name)
}

// Scheme returns "https" for TLS or proxied-TLS requests and "http" otherwise.
func (r *Request) Scheme() string {
	if r.IsSecure() {
		return "https"
	}
	if r.url.Scheme != "" {
		return r.url.Scheme
	}
	return "http"
}

// URLString returns the absolute URL without the query string.
func (r *Request) URLString() string {
	return r.Scheme() + "://" + r.host + r.Path()
}

// FullURL returns the absolute URL including the query string.
func (r *Request) FullURL() string {
	if r.url.RawQuery == "" {
		return r.URLString()
	}
	return r.URLString() + "?" + r.url.RawQuery
}

// UserAgent returns the User-Agent header.
func (r *Request) UserAgent() string {
	return r.header.Get("User-Agent")
}

// IsAJAX reports whether the request was sent by XMLHttpRequest.
func (r *Request) IsAJAX() bool {
	return strings.EqualFold(r.header.Get("X-Requested-With"), "XMLHttpRequest")
}

// IsPJAX reports whether the request was sent by PJAX.
func (r *Request) IsPJAX() bool {
	return r.header.Get("X-PJAX") != ""
}

// IsJSON reports whether the request body is JSON.
func (r *Request) IsJSON() bool {
	ct := strings.ToLower(r.header.Get("Content-Type"))
	return strings.Contains(ct, "/json") || strings.Contains(ct, "+json")
}

// WantsJSON reports whether the client accepts JSON.
func (r *Request) WantsJSON() bool {
	accept := strings.ToLower(r.header.Get("Accept"))
	return strings.Contains(accept, "/json") || strings.Contains(accept, "+json")
}

// IsSecure reports whether the request arrived over TLS,
// directly or through a proxy that sets X-Forwarded-Proto.
func (r *Request) IsSecure() bool {
	return r.tls || strings.EqualFold(r.header.Get("X-Forwarded-Proto"), "https")
}

// IP returns the client IP, preferring proxy headers over the remote address.
// The headers are set by the client unless a trusted proxy overwrites them,
// so use RemoteIP for anything security sensitive.
func (r *Request) IP() string {
	if ip := r.header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if fwd := r.header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteIP()
}

// RemoteIP returns the host part of the peer address, ignoring proxy headers.
func (r *Request) RemoteIP() string {
	if host, _, err := net.SplitHostPort(r.remoteAddr); err == nil {
		return host
	}
	return r.remoteAddr
}

// Attribute returns the attribute stored under key, or nil.
func (r *Request) Attribute(key any) any {
	return r.attrs[key]
}

// Param returns the path parameter extracted by the router.
// Returns an empty string before routing or if the parameter doesn't exist.
func (r *Request) Param(name string) string {
	if ri, ok := r.attrs[routeKey{}].(*routeInfo); ok {
		return ri.params[name]
	}
	return ""
}

// Params returns a copy of all path parameters extracted by the router.
func (r *Request) Params() Params {
	if ri, ok := r.attrs[routeKey{}].(*routeInfo); ok {
		return maps.Clone(ri.params)
	}
	return Params{}
}

// RoutePattern returns the pattern of the matched route, or "" before routing.
func (r *Request) RoutePattern() string {
	if ri, ok := r.attrs[routeKey{}].(*routeInfo); ok {
		return ri.pattern
	}
	return ""
}

// WithContext returns a copy of r with its context replaced.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("conveyor: nil context")
	}
	c := r.clone()
	c.ctx = ctx
	return c
}

// WithMethod returns a copy of r with the method replaced.
func (r *Request) WithMethod(method string) *Request {
	c := r.clone()
	c.method = method
	return c
}

// WithURL returns a copy of r with the URL replaced.
func (r *Request) WithURL(u *url.URL) *Request {
	c := r.clone()
	cu := *u
	c.url = &cu
	return c
}

// WithPath returns a copy of r with only the URL path replaced.
func (r *Request) WithPath(path string) *Request {
	u := *r.url
	u.Path = path
	u.RawPath = ""
	return r.WithURL(&u)
}

// WithHeader returns a copy of r with the named header set to value.
func (r *Request) WithHeader(name, value string) *Request {
	c := r.clone()
	c.header = cloneHeader(r.header)
	c.header.Set(name, value)
	return c
}

// WithRemoteAddr returns a copy of r with the peer address set to addr.
func (r *Request) WithRemoteAddr(addr string) *Request {
	c := r.clone()
	c.remoteAddr = addr
	return c
}

// WithAddedHeader returns a copy of r with value appended to the named header.
func (r *Request) WithAddedHeader(name, value string) *Request {
	c := r.clone()
	c.header = cloneHeader(r.header)
	c.header.Add(name, value)
	return c
}

// WithoutHeader returns a copy of r without the named header.
func (r *Request) WithoutHeader(name string) *Request {
	c := r.clone()
	c.header = cloneHeader(r.header)
	c.header.Del(name)
	return c
}

// WithBody returns a copy of r reading its body from body.
func (r *Request) WithBody(body io.Reader) *Request {
	c := r.clone()
	switch b := body.(type) {
	case nil:
		c.body = http.NoBody
	case io.ReadCloser:
		c.body = b
	default:
		c.body = io.NopCloser(b)
	}
	return c
}

// WithAttribute returns a copy of r carrying value under key.
func (r *Request) WithAttribute(key, value any) *Request {
	c := r.clone()
	c.attrs = make(map[any]any, len(r.attrs)+1)
	maps.Copy(c.attrs, r.attrs)
	c.attrs[key] = value
	return c
}

// WithoutAttribute returns a copy of r without the attribute stored under key.
func (r *Request) WithoutAttribute(key any) *Request {
	if _, ok := r.attrs[key]; !ok {
		return r
	}
	c := r.clone()
	c.attrs = maps.Clone(r.attrs)
	delete(c.attrs, key)
	return c
}

// withRoute stores the matched route on a copy of r.
func (r *Request) withRoute(pattern string, params Params) *Request {
	return r.WithAttribute(routeKey{}, &routeInfo{pattern: pattern, params: maps.Clone(params)})
}

// HTTPRequest converts r into a server-side *http.Request carrying the same
// context, method, URL, headers and body. Attributes are not carried over.
func (r *Request) HTTPRequest() *http.Request {
	hr := (&http.Request{
		Method:     r.method,
		URL:        r.URL(),
		Host:       r.host,
		Header:     cloneHeader(r.header),
		Body:       r.body,
		RemoteAddr: r.remoteAddr,
		RequestURI: r.url.RequestURI(),
	}).WithContext(r.Context())

	hr.Proto = "HTTP/" + r.proto
	if major, minor, ok := http.ParseHTTPVersion(hr.Proto); ok {
		hr.ProtoMajor, hr.ProtoMinor = major, minor
	}
	return hr
}

// Subdomain returns the part of the host before baseDomain, e.g. "acme" for
// "acme.example.com". Returns "" when the host is not under baseDomain.
func (r *Request) Subdomain(baseDomain string) string {
	return hostrouter.Subdomain(r.host, baseDomain)
}
