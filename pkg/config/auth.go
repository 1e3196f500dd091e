package config

import "github.com/cowmonk/tinypkg/pkg/auth"

// AuthConfigContainer defines the interface for authentication configuration
// types that can be converted to an Authenticator.
type AuthConfigContainer interface {
	ToAuthenticator() auth.Authenticator
}

// AuthConfig holds various authentication configurations for a repository.
type AuthConfig struct {
	BasicAuth  *BasicAuth  `yaml:"basic,omitempty"`
	HeaderAuth *HeaderAuth `yaml:"header,omitempty"`
	BearerAuth *BearerAuth `yaml:"bearer,omitempty"`
}

// BasicAuth holds configuration for HTTP Basic Authentication.
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HeaderAuth holds configuration for custom header-based authentication.
type HeaderAuth struct {
	Headers map[string]string `yaml:"headers"`
}

// BearerAuth holds configuration for Bearer token authentication.
type BearerAuth struct {
	Token string `yaml:"token"`
}

// ToAuthenticator converts the BasicAuth configuration to an Authenticator.
func (b *BasicAuth) ToAuthenticator() auth.Authenticator {
	return &auth.BasicAuth{
		Username: b.Username,
		Password: b.Password,
	}
}

// ToAuthenticator converts the HeaderAuth configuration to an Authenticator.
func (h *HeaderAuth) ToAuthenticator() auth.Authenticator {
	return &auth.HeaderAuth{
		Headers: h.Headers,
	}
}

// ToAuthenticator converts the BearerAuth configuration to an Authenticator.
func (b *BearerAuth) ToAuthenticator() auth.Authenticator {
	return &auth.BearerAuth{
		Token: b.Token,
	}
}

// ToAuthenticator converts an AuthConfig to an Authenticator, or nil when no
// authentication method is configured.
func (a *AuthConfig) ToAuthenticator() auth.Authenticator {
	switch {
	case a == nil:
		return nil
	case a.BasicAuth != nil:
		return a.BasicAuth.ToAuthenticator()
	case a.HeaderAuth != nil:
		return a.HeaderAuth.ToAuthenticator()
	case a.BearerAuth != nil:
		return a.BearerAuth.ToAuthenticator()
	default:
		return nil
	}
}

// ToHostAuthMap maps the host part of each repository URL to its configured
// Authenticator, for use by the download client when fetching source archives
// from the same hosts. Returns nil if no authentication is configured.
func (c *Config) ToHostAuthMap() map[string]auth.Authenticator {
	results := make(map[string]auth.Authenticator, len(c.Repositories))
	for _, repo := range c.Repositories {
		authenticator := repo.Auth.ToAuthenticator()
		if authenticator == nil {
			continue
		}
		u := repo.ParsedURL()
		if u == nil || u.Host == "" {
			continue
		}
		if _, ok := results[u.Host]; !ok {
			results[u.Host] = authenticator
		}
	}

	if len(results) == 0 {
		return nil
	}
	return results
}
