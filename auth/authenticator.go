package auth

import (
	"context"
	"net/http"
	"strings"
)

// Authenticator turns the credentials on a request into an identity.
// Failures the caller is responsible for are *AuthError values; any other
// error is internal and reported as a 500. Implementations are safe for
// concurrent use.
type Authenticator interface {
	Authenticate(ctx context.Context, req *AuthRequest) (*Identity, error)
}

// AuthenticatorFunc lets a plain function act as an Authenticator.
type AuthenticatorFunc func(ctx context.Context, req *AuthRequest) (*Identity, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, req *AuthRequest) (*Identity, error) {
	return f(ctx, req)
}

// AuthRequest is the transport-independent view of an incoming request.
type AuthRequest struct {
	Headers map[string][]string

	// Resource is the request path, kept for denial logs.
	Resource string
}

// NewAuthRequest reads the headers and path of r.
func NewAuthRequest(r *http.Request) *AuthRequest {
	return &AuthRequest{Headers: r.Header, Resource: r.URL.Path}
}

// LookupHeader returns the first value of a header and whether it was sent
// with at least one value. Keys are matched case-insensitively.
func (r *AuthRequest) LookupHeader(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	values := r.Headers[http.CanonicalHeaderKey(key)]
	if values == nil {
		for k, v := range r.Headers {
			if strings.EqualFold(k, key) {
				values = v
				break
			}
		}
	}
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// GetHeader is LookupHeader without the presence flag.
func (r *AuthRequest) GetHeader(key string) string {
	v, _ := r.LookupHeader(key)
	return v
}
