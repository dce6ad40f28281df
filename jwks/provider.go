package jwks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/storefront/go-storefront/core"
	"github.com/storefront/go-storefront/internal/oidc"
)

const (
	// DefaultCacheTTL is how long a key set is cached when the endpoint does
	// not advertise a longer max-age.
	DefaultCacheTTL = 15 * time.Minute

	// DefaultMinRefreshInterval is the minimum time between forced refreshes.
	DefaultMinRefreshInterval = time.Minute
)

// CachingProvider owns the key set of one issuer: it discovers the JWKS URI
// once, caches the key set with a bounded TTL and refetches it on demand
// when a token names a key it does not know.
type CachingProvider struct {
	issuerURL          *url.URL
	httpClient         *http.Client
	cacheTTL           time.Duration
	minRefreshInterval time.Duration
	cache              Cache
	logger             core.Logger
	now                func() time.Time

	jwksURIMu sync.Mutex
	jwksURI   string

	refreshMu   sync.Mutex
	lastRefresh time.Time
}

// NewCachingProvider builds and returns a new CachingProvider.
//
// Required options:
//   - WithIssuerURL: OIDC issuer URL for JWKS discovery
//
// Example:
//
//	provider, err := jwks.NewCachingProvider(
//	    jwks.WithIssuerURL(issuerURL),
//	    jwks.WithCacheTTL(5*time.Minute),
//	)
func NewCachingProvider(opts ...Option) (*CachingProvider, error) {
	p := &CachingProvider{
		httpClient:         &http.Client{Timeout: 30 * time.Second},
		cacheTTL:           DefaultCacheTTL,
		minRefreshInterval: DefaultMinRefreshInterval,
		now:                time.Now,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if p.issuerURL == nil {
		return nil, errors.New("issuer URL is required (use WithIssuerURL)")
	}

	if p.cache == nil {
		p.cache = newMemoryCache(&fetcher{client: p.httpClient}, p.cacheTTL)
	}

	return p, nil
}

// Issuer returns the issuer the provider serves keys for.
func (p *CachingProvider) Issuer() string {
	return p.issuerURL.String()
}

// getJWKSURI returns the JWKS URI, discovering it on first use. A failed
// discovery is retried on the next call.
func (p *CachingProvider) getJWKSURI(ctx context.Context) (string, error) {
	p.jwksURIMu.Lock()
	defer p.jwksURIMu.Unlock()

	if p.jwksURI != "" {
		return p.jwksURI, nil
	}

	wkEndpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, p.httpClient, *p.issuerURL)
	if err != nil {
		return "", fmt.Errorf("failed to discover JWKS URI: %w", err)
	}
	if _, err := url.Parse(wkEndpoints.JWKSURI); err != nil {
		return "", fmt.Errorf("could not parse JWKS URI from well known endpoints: %w", err)
	}

	p.jwksURI = wkEndpoints.JWKSURI
	return p.jwksURI, nil
}

// KeySet returns the cached key set, fetching it when needed.
func (p *CachingProvider) KeySet(ctx context.Context) (jwk.Set, error) {
	jwksURI, err := p.getJWKSURI(ctx)
	if err != nil {
		return nil, err
	}
	return p.cache.Get(ctx, jwksURI)
}

// Refresh refetches the key set unless a refresh happened within the
// minimum refresh interval, in which case the cached set is returned.
func (p *CachingProvider) Refresh(ctx context.Context) (jwk.Set, error) {
	jwksURI, err := p.getJWKSURI(ctx)
	if err != nil {
		return nil, err
	}

	p.refreshMu.Lock()
	now := p.now()
	throttled := !p.lastRefresh.IsZero() && now.Sub(p.lastRefresh) < p.minRefreshInterval
	if !throttled {
		p.lastRefresh = now
	}
	p.refreshMu.Unlock()

	if throttled {
		return p.cache.Get(ctx, jwksURI)
	}

	if p.logger != nil {
		p.logger.Debug("refreshing key set", "jwks_uri", jwksURI)
	}
	return p.cache.Refresh(ctx, jwksURI)
}
