package grpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/storefront/go-storefront/session"
)

// CredentialExtractor collects the credentials presented in the incoming
// metadata. A missing credential is not an error.
type CredentialExtractor func(ctx context.Context) (session.Credentials, error)

// Extractor errors
var (
	// ErrMultipleAuthHeaders indicates multiple authorization metadata entries were provided.
	ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

	// ErrInvalidAuthFormat indicates the authorization metadata format is invalid.
	ErrInvalidAuthFormat = errors.New("invalid authorization metadata format, expected: Bearer <token>")

	// ErrUnsupportedScheme indicates an unsupported authorization scheme was used.
	ErrUnsupportedScheme = errors.New("unsupported authorization scheme, expected: Bearer")
)

// BearerCredentials presents the token of the "authorization" metadata
// entry under name.
//
// gRPC normalizes incoming metadata keys to lowercase, so only the
// lowercase key is checked.
func BearerCredentials(name string) CredentialExtractor {
	return func(ctx context.Context) (session.Credentials, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, nil
		}

		authHeaders := md.Get("authorization")
		switch len(authHeaders) {
		case 0:
			return nil, nil
		case 1:
		default:
			return nil, ErrMultipleAuthHeaders
		}

		parts := strings.Fields(authHeaders[0])
		if len(parts) != 2 {
			return nil, ErrInvalidAuthFormat
		}
		if !strings.EqualFold(parts[0], "bearer") {
			return nil, ErrUnsupportedScheme
		}

		return session.Credentials{{Name: name, Value: parts[1]}}, nil
	}
}

// CookieCredentials presents every cookie of the "cookie" metadata entries,
// in order. Unparsable entries are skipped.
func CookieCredentials(ctx context.Context) (session.Credentials, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, nil
	}

	var creds session.Credentials
	for _, line := range md.Get("cookie") {
		cookies, err := http.ParseCookie(line)
		if err != nil {
			continue
		}
		for _, c := range cookies {
			creds = append(creds, session.Credential{Name: c.Name, Value: c.Value})
		}
	}
	return creds, nil
}

// MultiCredentialExtractor concatenates the credentials of extractors in
// order. The first extractor error is returned immediately.
func MultiCredentialExtractor(extractors ...CredentialExtractor) CredentialExtractor {
	return func(ctx context.Context) (session.Credentials, error) {
		var all session.Credentials
		for _, ex := range extractors {
			creds, err := ex(ctx)
			if err != nil {
				return nil, err
			}
			all = append(all, creds...)
		}
		return all, nil
	}
}

// MetadataCredentials is the default extractor: a bearer token under the
// default credential name, followed by the cookies.
var MetadataCredentials = MultiCredentialExtractor(
	BearerCredentials(session.DefaultCredentialName),
	CookieCredentials,
)
