package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// maxBodySize bounds a key set response. Key sets are typically under 10KB.
const maxBodySize = 1 << 20

// fetcher downloads key sets over HTTP.
type fetcher struct {
	client *http.Client
}

// fetch returns the raw key set at jwksURI and the TTL advertised by its
// Cache-Control header, or 0 when none is usable.
func (f *fetcher) fetch(ctx context.Context, jwksURI string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("request returned status %d, expected 200", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read JWKS: %w", err)
	}

	return body, parseCacheControl(resp.Header.Get("Cache-Control")), nil
}

// fetchSet fetches and parses a key set.
func (f *fetcher) fetchSet(ctx context.Context, jwksURI string) (jwk.Set, time.Duration, error) {
	body, ttl, err := f.fetch(ctx, jwksURI)
	if err != nil {
		return nil, 0, err
	}
	set, err := jwk.Parse(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return set, ttl, nil
}

// parseCacheControl extracts max-age from a Cache-Control header.
// Returns 0 if max-age is absent, invalid, or outside [1s, 7d].
func parseCacheControl(cacheControl string) time.Duration {
	const (
		maxAgePrefix = "max-age="
		minTTL       = 1 * time.Second
		maxTTL       = 7 * 24 * time.Hour
	)

	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, maxAgePrefix) {
			continue
		}

		seconds, err := strconv.ParseInt(strings.TrimPrefix(directive, maxAgePrefix), 10, 64)
		if err != nil || seconds <= 0 {
			continue
		}

		ttl := time.Duration(seconds) * time.Second
		if ttl < minTTL || ttl > maxTTL {
			return 0
		}
		return ttl
	}

	return 0
}

// effectiveTTL lets a longer Cache-Control max-age extend the configured TTL.
func effectiveTTL(configured, advertised time.Duration) time.Duration {
	if advertised > configured {
		return advertised
	}
	return configured
}
