package jwks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/sync/singleflight"
)

// Cache stores key sets by URI.
type Cache interface {
	// Get returns the key set at jwksURI, fetching it when not cached.
	Get(ctx context.Context, jwksURI string) (jwk.Set, error)
	// Refresh fetches the key set at jwksURI and replaces the cached copy.
	Refresh(ctx context.Context, jwksURI string) (jwk.Set, error)
}

// MemoryCache is the default in-process Cache. Entries are refreshed in the
// background once 80% of their TTL has elapsed, and concurrent fetches of one
// URI share a single request.
type MemoryCache struct {
	fetcher *fetcher
	ttl     time.Duration
	now     func() time.Time

	group   singleflight.Group
	cacheMu sync.RWMutex
	cache   map[string]*cachedJWKS
}

type cachedJWKS struct {
	set        jwk.Set
	expiresAt  time.Time
	refreshAt  time.Time
	refreshing atomic.Bool
}

func newMemoryCache(f *fetcher, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		fetcher: f,
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]*cachedJWKS),
	}
}

func (c *MemoryCache) Get(ctx context.Context, jwksURI string) (jwk.Set, error) {
	now := c.now()

	c.cacheMu.RLock()
	cached, exists := c.cache[jwksURI]
	var (
		set           jwk.Set
		shouldRefresh bool
	)
	if exists && now.Before(cached.expiresAt) {
		set = cached.set
		shouldRefresh = now.After(cached.refreshAt)
	}
	c.cacheMu.RUnlock()

	if set != nil {
		if shouldRefresh && cached.refreshing.CompareAndSwap(false, true) {
			go c.backgroundRefresh(jwksURI, cached)
		}
		return set, nil
	}

	return c.Refresh(ctx, jwksURI)
}

func (c *MemoryCache) Refresh(ctx context.Context, jwksURI string) (jwk.Set, error) {
	v, err, _ := c.group.Do(jwksURI, func() (any, error) {
		set, ttl, err := c.fetcher.fetchSet(ctx, jwksURI)
		if err != nil {
			return nil, fmt.Errorf("could not fetch JWKS: %w", err)
		}
		c.store(jwksURI, set, ttl)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}

func (c *MemoryCache) store(jwksURI string, set jwk.Set, advertised time.Duration) {
	ttl := effectiveTTL(c.ttl, advertised)
	now := c.now()

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	cached, ok := c.cache[jwksURI]
	if !ok {
		cached = &cachedJWKS{}
		c.cache[jwksURI] = cached
	}
	cached.set = set
	cached.expiresAt = now.Add(ttl)
	cached.refreshAt = now.Add(ttl * 4 / 5)
}

func (c *MemoryCache) backgroundRefresh(jwksURI string, cached *cachedJWKS) {
	defer cached.refreshing.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// A failed refresh keeps serving the cached set until it expires.
	_, _ = c.Refresh(ctx, jwksURI)
}
