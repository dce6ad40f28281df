package jwks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DefaultRedisKeyPrefix namespaces the key sets stored in Redis.
const DefaultRedisKeyPrefix = "storefront:jwks:"

// RedisCache shares fetched key sets between instances through Redis.
// Entries expire after the cache TTL, extended by a longer Cache-Control
// max-age from the key set endpoint.
type RedisCache struct {
	client    redis.UniversalClient
	fetcher   *fetcher
	ttl       time.Duration
	keyPrefix string
	group     singleflight.Group
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache) error

// WithRedisKeyPrefix sets the prefix of the Redis keys.
//
// Default: "storefront:jwks:"
func WithRedisKeyPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) error {
		if prefix == "" {
			return errors.New("key prefix cannot be empty")
		}
		c.keyPrefix = prefix
		return nil
	}
}

// WithRedisTTL sets how long a fetched key set is kept.
//
// Default: 15 minutes
func WithRedisTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) error {
		if ttl <= 0 {
			return errors.New("cache TTL must be positive")
		}
		c.ttl = ttl
		return nil
	}
}

// WithRedisHTTPClient sets the client used to fetch key sets.
func WithRedisHTTPClient(client *http.Client) RedisCacheOption {
	return func(c *RedisCache) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.fetcher = &fetcher{client: client}
		return nil
	}
}

// NewRedisCache returns a Cache backed by client.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	cache, err := jwks.NewRedisCache(rdb)
//	provider, err := jwks.NewCachingProvider(
//	    jwks.WithIssuerURL(issuerURL),
//	    jwks.WithCache(cache),
//	)
func NewRedisCache(client redis.UniversalClient, opts ...RedisCacheOption) (*RedisCache, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}

	c := &RedisCache{
		client:    client,
		fetcher:   &fetcher{client: &http.Client{Timeout: 30 * time.Second}},
		ttl:       DefaultCacheTTL,
		keyPrefix: DefaultRedisKeyPrefix,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return c, nil
}

func (c *RedisCache) Get(ctx context.Context, jwksURI string) (jwk.Set, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+jwksURI).Bytes()
	switch {
	case err == nil:
		set, err := jwk.Parse(raw)
		if err == nil {
			return set, nil
		}
		// A corrupt entry is replaced by a fresh fetch.
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("could not read JWKS from redis: %w", err)
	}

	return c.Refresh(ctx, jwksURI)
}

func (c *RedisCache) Refresh(ctx context.Context, jwksURI string) (jwk.Set, error) {
	v, err, _ := c.group.Do(jwksURI, func() (any, error) {
		raw, advertised, err := c.fetcher.fetch(ctx, jwksURI)
		if err != nil {
			return nil, fmt.Errorf("could not fetch JWKS: %w", err)
		}
		set, err := jwk.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JWKS: %w", err)
		}

		ttl := effectiveTTL(c.ttl, advertised)
		if err := c.client.Set(ctx, c.keyPrefix+jwksURI, raw, ttl).Err(); err != nil {
			return nil, fmt.Errorf("could not store JWKS in redis: %w", err)
		}
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}
