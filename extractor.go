package storefront

import (
	"errors"
	"net/http"
	"strings"

	"github.com/storefront/go-storefront/session"
)

// CredentialExtractor collects the credentials presented with a request.
// An error means a credential was present but malformed; a missing
// credential is not an error.
type CredentialExtractor func(r *http.Request) (session.Credentials, error)

// CookieCredentials presents every request cookie, in header order.
func CookieCredentials(r *http.Request) (session.Credentials, error) {
	return session.FromCookies(r), nil
}

// AuthHeaderCredentials builds a CredentialExtractor that presents a bearer
// token from the Authorization header under name.
func AuthHeaderCredentials(name string) CredentialExtractor {
	return func(r *http.Request) (session.Credentials, error) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			return nil, nil
		}

		authHeaderParts := strings.Fields(authHeader)
		if len(authHeaderParts) != 2 || !strings.EqualFold(authHeaderParts[0], "bearer") {
			return nil, errors.New("Authorization header format must be Bearer {token}")
		}

		return session.Credentials{{Name: name, Value: authHeaderParts[1]}}, nil
	}
}

// MultiCredentialExtractor concatenates the credentials of extractors in
// order, so a credential found by an earlier extractor takes precedence.
// The first extractor error is returned immediately.
func MultiCredentialExtractor(extractors ...CredentialExtractor) CredentialExtractor {
	return func(r *http.Request) (session.Credentials, error) {
		var all session.Credentials
		for _, ex := range extractors {
			creds, err := ex(r)
			if err != nil {
				return nil, err
			}
			all = append(all, creds...)
		}
		return all, nil
	}
}
