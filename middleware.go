package storefront

import (
	"fmt"
	"net/http"

	"github.com/storefront/go-storefront/core"
	"github.com/storefront/go-storefront/session"
	"github.com/storefront/go-storefront/telemetry"
)

// ExclusionURLHandler reports whether a request skips identity resolution.
type ExclusionURLHandler func(r *http.Request) bool

// Middleware resolves the caller's identity for every request and stores it
// in the request context.
type Middleware struct {
	resolver            *session.Resolver
	extractor           CredentialExtractor
	errorHandler        ErrorHandler
	identityRequired    bool
	exclusionURLHandler ExclusionURLHandler
	logger              core.Logger
	metrics             telemetry.Metrics
}

// New constructs a new Middleware instance with the supplied options.
//
// Example:
//
//	middleware, err := storefront.New(
//	    storefront.WithResolver(resolver),
//	    storefront.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		extractor:    CookieCredentials,
		errorHandler: DefaultErrorHandler,
		metrics:      &telemetry.NoopMetrics{},
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.resolver == nil {
		resolver, err := session.New(session.WithLogger(m.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create resolver: %w", err)
		}
		m.resolver = resolver
	}

	return m, nil
}

// Resolve returns the identity presented with r. Malformed credentials
// resolve to core.Anonymous.
func (m *Middleware) Resolve(r *http.Request) core.Identity {
	creds, err := m.extractor(r)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("failed to extract credentials from request",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
		}
		m.count(core.Anonymous)
		return core.Anonymous
	}

	id := m.resolver.Resolve(r.Context(), creds)
	m.count(id)
	return id
}

// Excluded reports whether r skips identity resolution.
func (m *Middleware) Excluded(r *http.Request) bool {
	return m.exclusionURLHandler != nil && m.exclusionURLHandler(r)
}

// IdentityRequired reports whether anonymous requests are rejected.
func (m *Middleware) IdentityRequired() bool {
	return m.identityRequired
}

// CheckIdentity resolves the identity, stores it with core.WithIdentity and
// calls next. Anonymous requests are rejected only when the middleware was
// built WithIdentityRequired(true).
func (m *Middleware) CheckIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Excluded(r) {
			if m.logger != nil {
				m.logger.Debug("skipping identity resolution for excluded URL",
					"method", r.Method,
					"path", r.URL.Path)
			}
			next.ServeHTTP(w, r)
			return
		}

		id := m.Resolve(r)
		if id.IsAnonymous() && m.identityRequired {
			m.errorHandler(w, r, core.NewAnonymousError("identity required"))
			return
		}

		next.ServeHTTP(w, r.WithContext(core.WithIdentity(r.Context(), id)))
	})
}

func (m *Middleware) count(id core.Identity) {
	result := "identified"
	if id.IsAnonymous() {
		result = "anonymous"
	}
	m.metrics.IncCounter(telemetry.MetricIdentityLookup, map[string]string{"result": result})
}
