package storefrontecho

import (
	"github.com/labstack/echo/v4"
)

// Option is a function that configures the middleware
type Option func(*echoMiddlewareConfig)

// WithErrorHandler sets a custom error handler
func WithErrorHandler(handler func(echo.Context, error)) Option {
	return func(config *echoMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets a custom context key to store the identity
func WithContextKey(key string) Option {
	return func(config *echoMiddlewareConfig) {
		if key != "" {
			config.contextKey = key
		}
	}
}
