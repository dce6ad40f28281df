package grpc

import (
	"context"

	"github.com/storefront/go-storefront/core"
)

// GetIdentity returns the identity stored by the interceptor, or
// core.Anonymous.
func GetIdentity(ctx context.Context) core.Identity {
	return core.IdentityFrom(ctx)
}

// HasIdentity reports whether the call carries a non-anonymous identity.
func HasIdentity(ctx context.Context) bool {
	return core.HasIdentity(ctx)
}
