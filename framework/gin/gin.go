// Package storefrontgin adapts the storefront identity middleware to gin.
package storefrontgin

import (
	"github.com/gin-gonic/gin"

	storefront "github.com/storefront/go-storefront"
	"github.com/storefront/go-storefront/core"
)

// DefaultIdentityKey is the gin context key holding the core.Identity.
const DefaultIdentityKey = "identity"

type ginMiddlewareConfig struct {
	errorHandler func(*gin.Context, error)
	contextKey   string
}

// NewMiddleware returns a gin handler that resolves the caller's identity
// with m, stores it in the request context and under the identity key, and
// continues the chain. Anonymous requests are aborted only when m requires
// an identity.
func NewMiddleware(m *storefront.Middleware, opts ...Option) gin.HandlerFunc {
	config := &ginMiddlewareConfig{
		errorHandler: AbortWithError,
		contextKey:   DefaultIdentityKey,
	}
	for _, opt := range opts {
		opt(config)
	}

	return func(c *gin.Context) {
		if m.Excluded(c.Request) {
			c.Next()
			return
		}

		id := m.Resolve(c.Request)
		if id.IsAnonymous() && m.IdentityRequired() {
			config.errorHandler(c, core.NewAnonymousError("identity required"))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(core.WithIdentity(c.Request.Context(), id))
		c.Set(config.contextKey, id)
		c.Next()
	}
}

// AbortWithError aborts the request with the status and body of
// storefront.DefaultErrorHandler.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(storefront.StatusCode(err), storefront.Response(err))
}

// GetIdentity returns the identity stored by the middleware, or
// core.Anonymous.
func GetIdentity(c *gin.Context) core.Identity {
	if v, ok := c.Get(DefaultIdentityKey); ok {
		if id, ok := v.(core.Identity); ok {
			return id
		}
	}
	return core.IdentityFrom(c.Request.Context())
}
