package grpc

import (
	"errors"

	"github.com/storefront/go-storefront/core"
	"github.com/storefront/go-storefront/session"
)

// Option configures the identity interceptor.
type Option func(*IdentityInterceptor) error

// WithResolver sets the resolver turning credentials into an identity.
// Pass a resolver built with session.WithVerifier to reject unsigned or
// expired tokens.
//
// Example:
//
//	interceptor, _ := grpc.New(
//	    grpc.WithResolver(resolver),
//	    grpc.WithLogger(logger),
//	)
func WithResolver(r *session.Resolver) Option {
	return func(i *IdentityInterceptor) error {
		if r == nil {
			return errors.New("resolver cannot be nil")
		}
		i.resolver = r
		return nil
	}
}

// WithIdentityRequired rejects anonymous calls with codes.Unauthenticated.
//
// Default: false
func WithIdentityRequired(required bool) Option {
	return func(i *IdentityInterceptor) error {
		i.identityRequired = required
		return nil
	}
}

// WithLogger sets an optional logger for the interceptor.
func WithLogger(logger core.Logger) Option {
	return func(i *IdentityInterceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithCredentialExtractor sets a custom credential extractor.
// Default is MetadataCredentials.
func WithCredentialExtractor(extractor CredentialExtractor) Option {
	return func(i *IdentityInterceptor) error {
		if extractor == nil {
			return errors.New("credential extractor cannot be nil")
		}
		i.extractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler which maps errors to gRPC status codes.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *IdentityInterceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods excludes specific gRPC methods from identity
// resolution. Methods are given as "/package.Service/Method".
func WithExcludedMethods(methods ...string) Option {
	return func(i *IdentityInterceptor) error {
		if i.excludedMethods == nil {
			i.excludedMethods = make(map[string]bool)
		}
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
