// Package grpc provides gRPC server interceptors that resolve the caller's
// storefront identity from request metadata.
//
// Identity resolution behaves like the HTTP middleware: a bearer token or
// a "jwt" cookie in the metadata resolves to an identity, and anything
// else resolves to core.Anonymous. Anonymous calls reach the handler
// unless the interceptor was built WithIdentityRequired(true).
//
// # Basic Usage
//
//	resolver, err := session.New(session.WithVerifier(jwtValidator))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	interceptor, err := storefrontgrpc.New(
//	    storefrontgrpc.WithResolver(resolver),
//	    storefrontgrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// # Identity Retrieval
//
//	func (s *server) Cart(ctx context.Context, req *pb.CartRequest) (*pb.Cart, error) {
//	    contents, err := s.carts.Summary(ctx, storefrontgrpc.GetIdentity(ctx))
//	    if err != nil {
//	        return nil, storefrontgrpc.DefaultErrorHandler(err)
//	    }
//	    ...
//	}
//
// DefaultErrorHandler also maps cart and catalog errors onto status codes,
// so handlers can return it directly.
package grpc
