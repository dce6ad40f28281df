// Package session resolves the caller's identity from the credentials
// presented with a request.
//
// Resolution never fails: a missing, malformed or unverifiable token yields
// core.Anonymous, because browsing the catalog without logging in is a
// valid path.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/storefront/go-storefront/core"
	"github.com/storefront/go-storefront/identity"
)

// DefaultCredentialName is the cookie that carries the identity token.
const DefaultCredentialName = "jwt"

// Decoder extracts the email from an identity token.
type Decoder func(token string) (string, error)

// Verifier checks a token's signature, issuer, audience and expiry before it
// is decoded. *validator.Validator satisfies it.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) error
}

// Resolver turns presented credentials into a core.Identity.
// It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	credentialName string
	decode         Decoder
	verifier       Verifier
	logger         core.Logger
}

// Option configures the Resolver.
type Option func(*Resolver) error

// WithCredentialName sets the name of the credential holding the token.
//
// Default: "jwt"
func WithCredentialName(name string) Option {
	return func(r *Resolver) error {
		if name == "" {
			return errors.New("credential name cannot be empty")
		}
		r.credentialName = name
		return nil
	}
}

// WithDecoder replaces identity.Decode.
func WithDecoder(d Decoder) Option {
	return func(r *Resolver) error {
		if d == nil {
			return errors.New("decoder cannot be nil")
		}
		r.decode = d
		return nil
	}
}

// WithVerifier makes every token pass v before it is decoded.
func WithVerifier(v Verifier) Option {
	return func(r *Resolver) error {
		if v == nil {
			return errors.New("verifier cannot be nil")
		}
		r.verifier = v
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(l core.Logger) Option {
	return func(r *Resolver) error {
		r.logger = l
		return nil
	}
}

// New constructs a Resolver.
//
// Example:
//
//	resolver, err := session.New(
//	    session.WithVerifier(v),
//	    session.WithLogger(logger),
//	)
func New(opts ...Option) (*Resolver, error) {
	r := &Resolver{
		credentialName: DefaultCredentialName,
		decode:         identity.Decode,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return r, nil
}

// Resolve returns the identity carried by creds, or core.Anonymous.
// The decoder is not called when no matching credential is present.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) core.Identity {
	if len(creds) == 0 {
		return core.Anonymous
	}

	token, ok := creds.Lookup(r.credentialName)
	if !ok || token == "" {
		return core.Anonymous
	}

	if r.verifier != nil {
		if err := r.verifier.VerifyToken(ctx, token); err != nil {
			if r.logger != nil {
				r.logger.Debug("identity token rejected by verifier", "error", err)
			}
			return core.Anonymous
		}
	}

	email, err := r.decode(token)
	if err != nil || email == "" {
		if r.logger != nil {
			r.logger.Debug("identity token could not be decoded", "error", err)
		}
		return core.Anonymous
	}

	return core.Identity{Email: email}
}

// ResolveRequest resolves the identity from the request cookies.
func (r *Resolver) ResolveRequest(req *http.Request) core.Identity {
	if req == nil {
		return core.Anonymous
	}
	return r.Resolve(req.Context(), FromCookies(req))
}
