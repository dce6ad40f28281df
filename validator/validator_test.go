package validator

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	issuer   = "https://auth.storefront.example/"
	audience = "storefront"
)

type signingKey struct {
	private jwk.Key
	public  jwk.Key
}

func newSigningKey(t *testing.T, kid string) signingKey {
	t.Helper()

	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	private, err := jwk.Import(raw)
	require.NoError(t, err)
	require.NoError(t, private.Set(jwk.KeyIDKey, kid))

	public, err := jwk.PublicKeyOf(private)
	require.NoError(t, err)

	return signingKey{private: private, public: public}
}

func keySet(t *testing.T, keys ...signingKey) jwk.Set {
	t.Helper()
	set := jwk.NewSet()
	for _, k := range keys {
		require.NoError(t, set.AddKey(k.public))
	}
	return set
}

func sign(t *testing.T, key signingKey, claims map[string]any) string {
	t.Helper()

	token := jwt.New()
	for k, v := range claims {
		require.NoError(t, token.Set(k, v))
	}

	headers := jws.NewHeaders()
	if kid, ok := key.private.KeyID(); ok {
		require.NoError(t, headers.Set(jws.KeyIDKey, kid))
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), key.private, jws.WithProtectedHeaders(headers)))
	require.NoError(t, err)
	return string(signed)
}

func validClaims(now time.Time) map[string]any {
	return map[string]any{
		jwt.IssuerKey:     issuer,
		jwt.SubjectKey:    "user-1",
		jwt.AudienceKey:   []string{audience},
		jwt.ExpirationKey: now.Add(time.Hour),
		jwt.IssuedAtKey:   now.Add(-time.Minute),
		jwt.JwtIDKey:      "jti-1",
		"email":           "a@b.ch",
	}
}

func with(claims map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	if value == nil {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}

// countingKeySource serves current and, after Refresh, next.
type countingKeySource struct {
	current   jwk.Set
	next      jwk.Set
	refreshes int
	err       error
}

func (s *countingKeySource) KeySet(context.Context) (jwk.Set, error) {
	return s.current, s.err
}

func (s *countingKeySource) Refresh(context.Context) (jwk.Set, error) {
	s.refreshes++
	if s.next != nil {
		s.current = s.next
	}
	return s.current, s.err
}

func newValidator(t *testing.T, keys KeySource, opts ...Option) *Validator {
	t.Helper()
	v, err := New(append([]Option{
		WithKeySource(keys),
		WithAlgorithm(ES256),
		WithIssuer(issuer),
		WithAudience(audience),
	}, opts...)...)
	require.NoError(t, err)
	return v
}

func TestNew(t *testing.T) {
	keys := StaticKeySet{Set: jwk.NewSet()}

	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{name: "missing key source", opts: []Option{WithIssuer(issuer), WithAudience(audience)}, wantErr: "key source is required"},
		{name: "missing issuer", opts: []Option{WithKeySource(keys), WithAudience(audience)}, wantErr: "issuer is required"},
		{name: "missing audience", opts: []Option{WithKeySource(keys), WithIssuer(issuer)}, wantErr: "audience is required"},
		{name: "nil key source", opts: []Option{WithKeySource(nil)}, wantErr: "invalid option"},
		{name: "unsupported algorithm", opts: []Option{WithAlgorithm("none")}, wantErr: "unsupported signature algorithm"},
		{name: "empty issuer", opts: []Option{WithIssuer("")}, wantErr: "issuer cannot be empty"},
		{name: "empty audiences", opts: []Option{WithAudiences(nil)}, wantErr: "audiences cannot be empty"},
		{name: "blank audience", opts: []Option{WithAudiences([]string{"a", ""})}, wantErr: "index 1"},
		{name: "negative skew", opts: []Option{WithAllowedClockSkew(-time.Second)}, wantErr: "clock skew cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("defaults to RS256", func(t *testing.T) {
		v, err := New(WithKeySource(keys), WithIssuer(issuer), WithAudiences([]string{"x", audience}))
		require.NoError(t, err)
		assert.Equal(t, RS256, v.signatureAlgorithm)
	})
}

func TestValidator_ValidateToken(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)
	key := newSigningKey(t, "kid-1")
	other := newSigningKey(t, "kid-1")

	tests := []struct {
		name    string
		token   func() string
		skew    time.Duration
		wantErr error
		errText string
	}{
		{
			name:  "valid token",
			token: func() string { return sign(t, key, validClaims(now)) },
		},
		{
			name:    "wrong issuer",
			token:   func() string { return sign(t, key, with(validClaims(now), jwt.IssuerKey, "https://evil.example/")) },
			wantErr: ErrInvalidIssuer,
		},
		{
			name:    "wrong audience",
			token:   func() string { return sign(t, key, with(validClaims(now), jwt.AudienceKey, []string{"other"})) },
			wantErr: ErrInvalidAudience,
		},
		{
			name:    "expired",
			token:   func() string { return sign(t, key, with(validClaims(now), jwt.ExpirationKey, now.Add(-time.Minute))) },
			wantErr: ErrExpired,
		},
		{
			name:  "expired within skew",
			token: func() string { return sign(t, key, with(validClaims(now), jwt.ExpirationKey, now.Add(-time.Minute))) },
			skew:  2 * time.Minute,
		},
		{
			name:    "not valid yet",
			token:   func() string { return sign(t, key, with(validClaims(now), jwt.NotBeforeKey, now.Add(time.Hour))) },
			wantErr: ErrNotValidYet,
		},
		{
			name:    "issued in the future",
			token:   func() string { return sign(t, key, with(validClaims(now), jwt.IssuedAtKey, now.Add(time.Hour))) },
			wantErr: ErrIssuedInFuture,
		},
		{
			name:    "signed by a different key with the same kid",
			token:   func() string { return sign(t, other, validClaims(now)) },
			errText: "could not verify the token",
		},
		{
			name:    "not a JWS",
			token:   func() string { return "a.b" },
			wantErr: ErrMalformedToken,
		},
		{
			name:    "header is not JSON",
			token:   func() string { return "bm90LWpzb24.e30.c2ln" },
			wantErr: ErrMalformedToken,
		},
		{
			name:    "too large",
			token:   func() string { return strings.Repeat("a", maxTokenSize+1) },
			wantErr: ErrTokenTooLarge,
		},
		{
			name: "wrong algorithm",
			token: func() string {
				// {"alg":"HS256","kid":"kid-1"}
				return "eyJhbGciOiJIUzI1NiIsImtpZCI6ImtpZC0xIn0.e30.c2ln"
			},
			wantErr: ErrAlgorithmMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newValidator(t, StaticKeySet{Set: keySet(t, key)}, WithAllowedClockSkew(tt.skew))
			v.now = func() time.Time { return now }

			claims, err := v.ValidateToken(ctx, tt.token())
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
			default:
				require.NoError(t, err)
				assert.Equal(t, "a@b.ch", claims.Email)
				assert.Equal(t, issuer, claims.RegisteredClaims.Issuer)
				assert.Equal(t, "user-1", claims.RegisteredClaims.Subject)
				assert.Equal(t, []string{audience}, claims.RegisteredClaims.Audience)
				assert.Equal(t, "jti-1", claims.RegisteredClaims.ID)
				assert.NotZero(t, claims.RegisteredClaims.Expiry)
				assert.NoError(t, v.VerifyToken(ctx, tt.token()))
			}
		})
	}
}

func TestValidator_TokenWithoutEmail(t *testing.T) {
	key := newSigningKey(t, "kid-1")
	v := newValidator(t, StaticKeySet{Set: keySet(t, key)})

	claims, err := v.ValidateToken(context.Background(), sign(t, key, with(validClaims(time.Now()), "email", nil)))
	require.NoError(t, err)
	assert.Empty(t, claims.Email)
}

func TestValidator_RefreshOnUnknownKey(t *testing.T) {
	ctx := context.Background()
	oldKey := newSigningKey(t, "kid-old")
	newKey := newSigningKey(t, "kid-new")

	t.Run("rotated key is picked up after one refresh", func(t *testing.T) {
		keys := &countingKeySource{current: keySet(t, oldKey), next: keySet(t, oldKey, newKey)}
		v := newValidator(t, keys)

		_, err := v.ValidateToken(ctx, sign(t, newKey, validClaims(time.Now())))
		require.NoError(t, err)
		assert.Equal(t, 1, keys.refreshes)

		_, err = v.ValidateToken(ctx, sign(t, newKey, validClaims(time.Now())))
		require.NoError(t, err)
		assert.Equal(t, 1, keys.refreshes, "known key must not refresh")
	})

	t.Run("unknown key after refresh", func(t *testing.T) {
		keys := &countingKeySource{current: keySet(t, oldKey)}
		v := newValidator(t, keys)

		_, err := v.ValidateToken(ctx, sign(t, newKey, validClaims(time.Now())))
		assert.ErrorIs(t, err, ErrUnknownKey)
		assert.Equal(t, 1, keys.refreshes)
	})

	t.Run("key source failure", func(t *testing.T) {
		boom := errors.New("jwks down")
		keys := &countingKeySource{current: keySet(t, oldKey), err: boom}
		v := newValidator(t, keys)

		_, err := v.ValidateToken(ctx, sign(t, oldKey, validClaims(time.Now())))
		assert.ErrorIs(t, err, boom)
	})
}

func TestLookupKey(t *testing.T) {
	a := newSigningKey(t, "a")
	b := newSigningKey(t, "b")

	_, ok := lookupKey(nil, "a")
	assert.False(t, ok)

	_, ok = lookupKey(keySet(t, a), "")
	assert.True(t, ok, "single key matches a token without kid")

	_, ok = lookupKey(keySet(t, a, b), "")
	assert.False(t, ok, "kid is required to choose between keys")

	key, ok := lookupKey(keySet(t, a, b), "b")
	require.True(t, ok)
	kid, _ := key.KeyID()
	assert.Equal(t, "b", kid)
}
