package storefront

import (
	"errors"
	"net/http"
	"strings"

	"github.com/storefront/go-storefront/core"
	"github.com/storefront/go-storefront/session"
	"github.com/storefront/go-storefront/telemetry"
)

// Option is how options for the Middleware are set up.
type Option func(*Middleware) error

// WithResolver sets the session resolver.
//
// Default: session.New() (cookie "jwt", no signature verification)
func WithResolver(resolver *session.Resolver) Option {
	return func(m *Middleware) error {
		if resolver == nil {
			return errors.New("resolver cannot be nil")
		}
		m.resolver = resolver
		return nil
	}
}

// WithCredentialExtractor sets where credentials are read from.
//
// Default: CookieCredentials
func WithCredentialExtractor(extractor CredentialExtractor) Option {
	return func(m *Middleware) error {
		if extractor == nil {
			return errors.New("credential extractor cannot be nil")
		}
		m.extractor = extractor
		return nil
	}
}

// WithIdentityRequired rejects anonymous requests with ErrAnonymous.
//
// Default: false (anonymous browsing is allowed)
func WithIdentityRequired(required bool) Option {
	return func(m *Middleware) error {
		m.identityRequired = required
		return nil
	}
}

// WithErrorHandler sets the handler called when a required identity is
// missing.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return errors.New("error handler cannot be nil")
		}
		m.errorHandler = h
		return nil
	}
}

// WithExclusionUrls skips identity resolution for the listed paths. A
// trailing "*" matches any path with that prefix.
func WithExclusionUrls(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return errors.New("exclusion list cannot be empty")
		}
		m.exclusionURLHandler = func(r *http.Request) bool {
			for _, pattern := range exclusions {
				if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
					if strings.HasPrefix(r.URL.Path, prefix) {
						return true
					}
				} else if r.URL.Path == pattern {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(m *Middleware) error {
		m.logger = logger
		return nil
	}
}

// WithMetrics counts resolved and anonymous requests.
func WithMetrics(metrics telemetry.Metrics) Option {
	return func(m *Middleware) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		m.metrics = metrics
		return nil
	}
}
