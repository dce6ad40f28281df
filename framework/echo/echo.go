// Package storefrontecho adapts the storefront identity middleware to echo.
package storefrontecho

import (
	"github.com/labstack/echo/v4"

	storefront "github.com/storefront/go-storefront"
	"github.com/storefront/go-storefront/core"
)

// DefaultIdentityKey is the echo context key holding the core.Identity.
const DefaultIdentityKey = "identity"

type echoMiddlewareConfig struct {
	errorHandler func(echo.Context, error)
	contextKey   string
}

// NewMiddleware returns an echo middleware that resolves the caller's
// identity with m and stores it in the request context and under the
// identity key.
func NewMiddleware(m *storefront.Middleware, opts ...Option) echo.MiddlewareFunc {
	config := &echoMiddlewareConfig{
		errorHandler: WriteError,
		contextKey:   DefaultIdentityKey,
	}
	for _, opt := range opts {
		opt(config)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if m.Excluded(r) {
				return next(c)
			}

			id := m.Resolve(r)
			if id.IsAnonymous() && m.IdentityRequired() {
				config.errorHandler(c, core.NewAnonymousError("identity required"))
				return nil
			}

			c.SetRequest(r.WithContext(core.WithIdentity(r.Context(), id)))
			c.Set(config.contextKey, id)
			return next(c)
		}
	}
}

// WriteError writes the status and body of storefront.DefaultErrorHandler.
func WriteError(c echo.Context, err error) {
	_ = c.JSON(storefront.StatusCode(err), storefront.Response(err))
}

// GetIdentity returns the identity stored by the middleware, or
// core.Anonymous.
func GetIdentity(c echo.Context) core.Identity {
	if id, ok := c.Get(DefaultIdentityKey).(core.Identity); ok {
		return id
	}
	return core.IdentityFrom(c.Request().Context())
}
