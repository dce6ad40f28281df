package jwks

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/storefront/go-storefront/core"
)

// Option is how options for the CachingProvider are set up.
type Option func(*CachingProvider) error

// WithIssuerURL sets the OIDC issuer URL for JWKS discovery.
// This is a required option.
//
// The issuer URL is used to discover the JWKS endpoint via the
// .well-known/openid-configuration endpoint.
func WithIssuerURL(issuerURL *url.URL) Option {
	return func(p *CachingProvider) error {
		if issuerURL == nil {
			return errors.New("issuer URL cannot be nil")
		}
		p.issuerURL = issuerURL
		return nil
	}
}

// WithCustomJWKSURI makes the provider fetch keys from jwksURI directly,
// skipping discovery.
func WithCustomJWKSURI(jwksURI *url.URL) Option {
	return func(p *CachingProvider) error {
		if jwksURI == nil {
			return errors.New("custom JWKS URI cannot be nil")
		}
		p.jwksURI = jwksURI.String()
		return nil
	}
}

// WithCustomClient sets a custom HTTP client.
// If not specified, a default client with 30s timeout is used.
func WithCustomClient(c *http.Client) Option {
	return func(p *CachingProvider) error {
		if c == nil {
			return errors.New("HTTP client cannot be nil")
		}
		p.httpClient = c
		return nil
	}
}

// WithCacheTTL sets the lifetime of a cached key set in the default cache.
// Zero selects the default of 15 minutes.
func WithCacheTTL(ttl time.Duration) Option {
	return func(p *CachingProvider) error {
		if ttl < 0 {
			return errors.New("cache TTL cannot be negative")
		}
		if ttl == 0 {
			ttl = DefaultCacheTTL
		}
		p.cacheTTL = ttl
		return nil
	}
}

// WithCache replaces the in-memory cache, e.g. with a RedisCache.
func WithCache(cache Cache) Option {
	return func(p *CachingProvider) error {
		if cache == nil {
			return errors.New("cache cannot be nil")
		}
		p.cache = cache
		return nil
	}
}

// WithMinRefreshInterval limits how often Refresh reaches the key set
// endpoint. Tokens carrying unknown key ids can otherwise force a fetch per
// request.
//
// Default: 1 minute
func WithMinRefreshInterval(d time.Duration) Option {
	return func(p *CachingProvider) error {
		if d < 0 {
			return errors.New("refresh interval cannot be negative")
		}
		p.minRefreshInterval = d
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(p *CachingProvider) error {
		p.logger = logger
		return nil
	}
}
