/*
Package jwks provides the key set used to verify identity tokens.

# CachingProvider

CachingProvider discovers the JWKS URI of an issuer through OIDC discovery
(or takes it from WithCustomJWKSURI) and caches the key set:

	provider, err := jwks.NewCachingProvider(
	    jwks.WithIssuerURL(issuerURL),
	    jwks.WithCacheTTL(15*time.Minute),
	)

	set, err := provider.KeySet(ctx)

A Cache-Control max-age between one second and seven days sent by the key
set endpoint extends the configured TTL. Cached sets are refreshed in the
background once 80% of their lifetime has passed.

# Refresh on miss

When a token is signed with a key id that the cached set does not contain,
the validator calls Refresh. Refreshes are throttled by
WithMinRefreshInterval and concurrent fetches of the same URI are coalesced,
so a burst of tokens with unknown key ids results in one request.

# Redis

RedisCache stores the raw key set in Redis so several instances share one
copy:

	cache, err := jwks.NewRedisCache(redis.NewClient(&redis.Options{Addr: addr}))
	provider, err := jwks.NewCachingProvider(
	    jwks.WithIssuerURL(issuerURL),
	    jwks.WithCache(cache),
	)
*/
package jwks
