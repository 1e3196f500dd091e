// Package auth provides authentication strategies applied to outgoing
// HTTP requests, typically for private repository mirrors.
package auth

import "net/http"

// Type identifies an authentication strategy.
type Type string

// Authentication types.
const (
	// BasicAuthType represents HTTP Basic Authentication.
	BasicAuthType Type = "basic"
	// HeaderAuthType represents custom header-based authentication.
	HeaderAuthType Type = "header"
	// BearerAuthType represents Bearer token authentication.
	BearerAuthType Type = "bearer"
)

// Authenticator decorates an HTTP request with credentials.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// BasicAuth holds HTTP Basic Authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Apply adds Basic Authentication headers to the request.
func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// Type returns BasicAuthType.
func (b BasicAuth) Type() Type { return BasicAuthType }

// HeaderAuth sets arbitrary headers on the request, for services using
// custom token headers.
type HeaderAuth struct {
	Headers map[string]string
}

// Apply sets the configured headers on the request.
func (h HeaderAuth) Apply(req *http.Request) error {
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	return nil
}

// Type returns HeaderAuthType.
func (h HeaderAuth) Type() Type { return HeaderAuthType }

// BearerAuth holds a Bearer token.
type BearerAuth struct {
	Token string
}

// Apply sets the Authorization header with the Bearer token.
func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}

// Type returns BearerAuthType.
func (b BearerAuth) Type() Type { return BearerAuthType }
