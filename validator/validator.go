package validator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/storefront/go-storefront/core"
	"github.com/storefront/go-storefront/identity"
)

// Signature algorithms
const (
	EdDSA = SignatureAlgorithm("EdDSA")
	HS256 = SignatureAlgorithm("HS256") // HMAC using SHA-256
	HS384 = SignatureAlgorithm("HS384") // HMAC using SHA-384
	HS512 = SignatureAlgorithm("HS512") // HMAC using SHA-512
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

var allowedSigningAlgorithms = map[SignatureAlgorithm]func() jwa.SignatureAlgorithm{
	EdDSA: jwa.EdDSA,
	HS256: jwa.HS256,
	HS384: jwa.HS384,
	HS512: jwa.HS512,
	RS256: jwa.RS256,
	RS384: jwa.RS384,
	RS512: jwa.RS512,
	ES256: jwa.ES256,
	ES384: jwa.ES384,
	ES512: jwa.ES512,
	PS256: jwa.PS256,
	PS384: jwa.PS384,
	PS512: jwa.PS512,
}

// Validation errors.
var (
	ErrAlgorithmMismatch = errors.New("token signed with an unexpected algorithm")
	ErrUnknownKey        = errors.New("token signed with an unknown key")
	ErrInvalidIssuer     = errors.New("invalid issuer claim (iss)")
	ErrInvalidAudience   = errors.New("invalid audience claim (aud)")
	ErrExpired           = errors.New("token is expired (exp)")
	ErrNotValidYet       = errors.New("token not valid yet (nbf)")
	ErrIssuedInFuture    = errors.New("token issued in the future (iat)")
)

// KeySource supplies verification keys. Refresh is called once when a token
// names a key id the current set does not contain.
type KeySource interface {
	KeySet(ctx context.Context) (jwk.Set, error)
	Refresh(ctx context.Context) (jwk.Set, error)
}

// StaticKeySet is a KeySource over a fixed key set.
type StaticKeySet struct {
	Set jwk.Set
}

func (s StaticKeySet) KeySet(context.Context) (jwk.Set, error)  { return s.Set, nil }
func (s StaticKeySet) Refresh(context.Context) (jwk.Set, error) { return s.Set, nil }

// Validator verifies identity tokens: signature, algorithm, issuer,
// audience and the time claims.
type Validator struct {
	keys               KeySource
	signatureAlgorithm SignatureAlgorithm
	issuer             string
	audiences          []string
	allowedClockSkew   time.Duration
	logger             core.Logger
	now                func() time.Time
}

// New sets up a new Validator.
//
// Required options:
//   - WithKeySource
//   - WithIssuer
//   - WithAudience or WithAudiences
//
// Example:
//
//	v, err := validator.New(
//	    validator.WithKeySource(provider),
//	    validator.WithAlgorithm(validator.RS256),
//	    validator.WithIssuer("https://issuer.example.com/"),
//	    validator.WithAudience("storefront"),
//	)
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		signatureAlgorithm: RS256,
		now:                time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.keys == nil {
		return nil, errors.New("key source is required (use WithKeySource)")
	}
	if v.issuer == "" {
		return nil, errors.New("issuer is required (use WithIssuer)")
	}
	if len(v.audiences) == 0 {
		return nil, errors.New("audience is required (use WithAudience or WithAudiences)")
	}

	return v, nil
}

// ValidateToken verifies tokenString and returns its claims.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*ValidatedClaims, error) {
	header, err := parseHeader(tokenString)
	if err != nil {
		return nil, fmt.Errorf("could not parse the token: %w", err)
	}

	if header.Alg != string(v.signatureAlgorithm) {
		return nil, fmt.Errorf("%w: expected %q but token specified %q", ErrAlgorithmMismatch, v.signatureAlgorithm, header.Alg)
	}

	key, err := v.verificationKey(ctx, header.Kid)
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseString(tokenString,
		jwt.WithKey(allowedSigningAlgorithms[v.signatureAlgorithm](), key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("could not verify the token: %w", err)
	}

	registered := registeredClaims(token)
	if err := v.validateClaims(registered); err != nil {
		return nil, fmt.Errorf("expected claims not validated: %w", err)
	}

	// The payload was verified above; a missing email is left to the caller.
	email, _ := identity.Decode(tokenString)

	return &ValidatedClaims{RegisteredClaims: registered, Email: email}, nil
}

// VerifyToken reports whether tokenString is valid. It lets the Validator
// guard a session.Resolver.
func (v *Validator) VerifyToken(ctx context.Context, tokenString string) error {
	_, err := v.ValidateToken(ctx, tokenString)
	return err
}

// verificationKey finds kid in the key set, refreshing the set once when the
// key is unknown.
func (v *Validator) verificationKey(ctx context.Context, kid string) (jwk.Key, error) {
	set, err := v.keys.KeySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting the keys from the key source: %w", err)
	}
	if key, ok := lookupKey(set, kid); ok {
		return key, nil
	}

	if v.logger != nil {
		v.logger.Debug("key id not in cached key set, refreshing", "kid", kid)
	}
	set, err = v.keys.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("error refreshing the keys: %w", err)
	}
	if key, ok := lookupKey(set, kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrUnknownKey, kid)
}

// lookupKey returns the key named kid. A token without kid matches a set
// holding exactly one key.
func lookupKey(set jwk.Set, kid string) (jwk.Key, bool) {
	if set == nil {
		return nil, false
	}
	if kid == "" {
		if set.Len() != 1 {
			return nil, false
		}
		return set.Key(0)
	}
	return set.LookupKeyID(kid)
}

func (v *Validator) validateClaims(claims RegisteredClaims) error {
	now := v.now()
	leeway := v.allowedClockSkew

	if claims.Issuer != v.issuer {
		return ErrInvalidIssuer
	}

	if !slices.ContainsFunc(v.audiences, func(aud string) bool { return slices.Contains(claims.Audience, aud) }) {
		return ErrInvalidAudience
	}

	if claims.NotBefore != 0 && now.Add(leeway).Before(time.Unix(claims.NotBefore, 0)) {
		return ErrNotValidYet
	}

	if claims.Expiry != 0 && now.Add(-leeway).After(time.Unix(claims.Expiry, 0)) {
		return ErrExpired
	}

	if claims.IssuedAt != 0 && now.Add(leeway).Before(time.Unix(claims.IssuedAt, 0)) {
		return ErrIssuedInFuture
	}

	return nil
}

func registeredClaims(token jwt.Token) RegisteredClaims {
	var rc RegisteredClaims
	rc.Issuer, _ = token.Issuer()
	rc.Subject, _ = token.Subject()
	rc.Audience, _ = token.Audience()
	rc.ID, _ = token.JwtID()
	rc.Expiry = unixTime(token.Expiration())
	rc.NotBefore = unixTime(token.NotBefore())
	rc.IssuedAt = unixTime(token.IssuedAt())
	return rc
}

func unixTime(t time.Time, ok bool) int64 {
	if !ok || t.IsZero() {
		return 0
	}
	return t.Unix()
}
