package storefrontgin

import (
	"github.com/gin-gonic/gin"
)

// Option defines a functional option for configuring the middleware
type Option func(*ginMiddlewareConfig)

// WithErrorHandler sets a custom error handler for the middleware
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(config *ginMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets the gin context key the identity is stored under.
func WithContextKey(key string) Option {
	return func(config *ginMiddlewareConfig) {
		if key != "" {
			config.contextKey = key
		}
	}
}
