package middlewares

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/conveyor/internal"
)

// ErrInvalidCredentials is returned by verifiers to reject credentials.
var ErrInvalidCredentials = errors.New("invalid credentials")

// authClaimsKey is the request attribute holding verified claims.
type authClaimsKey struct{}

// TokenVerifier validates a bearer token and returns the claims it carries.
type TokenVerifier func(ctx context.Context, token string) (any, error)

// BearerAuthConfig configures the bearer token middleware.
type BearerAuthConfig struct {
	Extractor internal.Extractor
	Realm     string
}

// BearerAuthOption configures BearerAuthConfig.
type BearerAuthOption func(*BearerAuthConfig)

// WithAuthExtractor sets where the token is read from.
// Defaults to the Authorization: Bearer header.
func WithAuthExtractor(ext internal.Extractor) BearerAuthOption {
	return func(cfg *BearerAuthConfig) {
		cfg.Extractor = ext
	}
}

// WithAuthRealm sets the realm reported in WWW-Authenticate.
func WithAuthRealm(realm string) BearerAuthOption {
	return func(cfg *BearerAuthConfig) {
		cfg.Realm = realm
	}
}

// BearerAuth returns middleware that admits requests carrying a token
// accepted by verify. Rejected requests are answered with 401 and never
// reach the rest of the chain, so nothing behind this middleware is resolved.
// The verified claims are available downstream through GetAuthClaims.
//
// Errors from verify other than ErrInvalidCredentials are faults and go to
// the error boundary.
func BearerAuth(verify TokenVerifier, opts ...BearerAuthOption) internal.Middleware {
	cfg := &BearerAuthConfig{
		Extractor: internal.NewExtractor(internal.FromBearerToken()),
		Realm:     "restricted",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	challenge := fmt.Sprintf("Bearer realm=%q", cfg.Realm)

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
		token, ok := cfg.Extractor.Extract(req)
		if !ok {
			return unauthorized(challenge), nil
		}

		claims, err := verify(req.Context(), token)
		if errors.Is(err, ErrInvalidCredentials) {
			return unauthorized(challenge), nil
		}
		if err != nil {
			return nil, err
		}

		return next.Handle(req.WithAttribute(authClaimsKey{}, claims))
	})
}

// BasicAuth returns middleware that admits requests whose Basic credentials
// are accepted by validate.
func BasicAuth(realm string, validate func(ctx context.Context, user, password string) bool) internal.Middleware {
	challenge := fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", realm)

	return internal.MiddlewareFunc(func(req *internal.Request, next internal.Handler) (*internal.Response, error) {
		user, password, ok := req.HTTPRequest().BasicAuth()
		if !ok || !validate(req.Context(), user, password) {
			return unauthorized(challenge), nil
		}
		return next.Handle(req.WithAttribute(authClaimsKey{}, user))
	})
}

// StaticBasicAuth validates against a single user and password using a
// constant-time comparison.
func StaticBasicAuth(realm, user, password string) internal.Middleware {
	return BasicAuth(realm, func(_ context.Context, u, p string) bool {
		userOK := subtle.ConstantTimeCompare([]byte(u), []byte(user)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(p), []byte(password)) == 1
		return userOK && passOK
	})
}

// GetAuthClaims returns the claims stored by BearerAuth, or the user name
// stored by BasicAuth. The zero value is returned when the request was not
// authenticated or T does not match.
func GetAuthClaims[T any](req *internal.Request) T {
	return internal.Attr[T](req, authClaimsKey{})
}

func unauthorized(challenge string) *internal.Response {
	return internal.Text(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized)).WithHeader("WWW-Authenticate", challenge)
}
