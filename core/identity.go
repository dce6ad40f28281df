package core

import "context"

// Identity is the caller resolved for a single request. The zero value is
// Anonymous.
type Identity struct {
	Email string
}

// Anonymous is the identity of a caller without a usable credential.
var Anonymous = Identity{}

// IsAnonymous reports whether no email could be resolved.
func (i Identity) IsAnonymous() bool {
	return i.Email == ""
}

// String returns the email, or "anonymous".
func (i Identity) String() string {
	if i.IsAnonymous() {
		return "anonymous"
	}
	return i.Email
}

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	identityKey contextKey = iota
)

// WithIdentity stores the identity in the context.
// This is a helper function for adapters to set the identity after resolution.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom retrieves the identity from the context. It returns Anonymous
// when no identity was stored.
func IdentityFrom(ctx context.Context) Identity {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Anonymous
	}
	return id
}

// HasIdentity checks if a non-anonymous identity exists in the context.
func HasIdentity(ctx context.Context) bool {
	return !IdentityFrom(ctx).IsAnonymous()
}
