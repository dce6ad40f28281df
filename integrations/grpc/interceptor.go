package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/storefront/go-storefront/core"
	"github.com/storefront/go-storefront/session"
)

// IdentityInterceptor resolves the storefront identity for gRPC servers.
type IdentityInterceptor struct {
	resolver         *session.Resolver
	extractor        CredentialExtractor
	errorHandler     ErrorHandler
	identityRequired bool
	excludedMethods  map[string]bool
	logger           core.Logger
}

// New creates a new gRPC identity interceptor with the provided options.
// Without WithResolver, tokens are decoded but not verified.
func New(opts ...Option) (*IdentityInterceptor, error) {
	interceptor := &IdentityInterceptor{
		extractor:       MetadataCredentials,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	if interceptor.resolver == nil {
		resolver, err := session.New(session.WithLogger(interceptor.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create resolver: %w", err)
		}
		interceptor.resolver = resolver
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that makes
// the caller's identity available in the request context.
func (i *IdentityInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excludedMethods[info.FullMethod] {
			if i.logger != nil {
				i.logger.Debug("skipping identity resolution for excluded method",
					"method", info.FullMethod)
			}
			return handler(ctx, req)
		}

		resolvedCtx, err := i.resolve(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(resolvedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that makes
// the caller's identity available in the stream context.
func (i *IdentityInterceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			if i.logger != nil {
				i.logger.Debug("skipping identity resolution for excluded method",
					"method", info.FullMethod)
			}
			return handler(srv, ss)
		}

		resolvedCtx, err := i.resolve(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: resolvedCtx})
	}
}

func (i *IdentityInterceptor) resolve(ctx context.Context, method string) (context.Context, error) {
	id := core.Anonymous

	creds, err := i.extractor(ctx)
	if err != nil {
		if i.logger != nil {
			i.logger.Warn("failed to extract credentials from gRPC metadata",
				"error", err,
				"method", method)
		}
	} else {
		id = i.resolver.Resolve(ctx, creds)
	}

	if id.IsAnonymous() && i.identityRequired {
		return ctx, i.errorHandler(core.NewAnonymousError("identity required"))
	}

	return core.WithIdentity(ctx, id), nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context carrying the identity.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
