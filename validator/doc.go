/*
Package validator verifies identity tokens using the lestrrat-go/jwx v3
library before their email claim is trusted.

A token passes when:

  - it is a compact JWS signed with the configured algorithm
  - its key id is found in the key set (after at most one refresh)
  - the signature verifies
  - iss matches and aud contains one of the expected audiences
  - exp, nbf and iat hold within the allowed clock skew

# Usage

	provider, err := jwks.NewCachingProvider(jwks.WithIssuerURL(issuerURL))
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeySource(provider),
	    validator.WithAlgorithm(validator.RS256),
	    validator.WithIssuer(issuerURL.String()),
	    validator.WithAudience("storefront"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	resolver, err := session.New(session.WithVerifier(v))

# Key rotation

When a token names a key id missing from the cached set, the validator asks
the KeySource to Refresh once. jwks.CachingProvider throttles these refreshes
so unknown key ids cannot force a fetch per request.
*/
package validator
