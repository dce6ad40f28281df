/*
Package storefront is the HTTP entry point of the storefront core.

The Middleware resolves the caller's identity from the "jwt" cookie on
every request and stores it in the request context. Anonymous callers are
let through: the catalog can be browsed without signing in, and the cart
operations reject anonymous callers themselves.

# Usage

	provider, _ := jwks.NewCachingProvider(jwks.WithIssuerURL(issuerURL))
	v, _ := validator.New(
	    validator.WithKeySource(provider),
	    validator.WithIssuer(issuerURL.String()),
	    validator.WithAudience("storefront"),
	)
	resolver, _ := session.New(session.WithVerifier(v))

	middleware, err := storefront.New(
	    storefront.WithResolver(resolver),
	    storefront.WithLogger(storefront.NewLogrusLogger(logrus.StandardLogger())),
	)
	if err != nil {
	    log.Fatal(err)
	}

	http.ListenAndServe(":8080", middleware.CheckIdentity(handler))

Handlers read the identity with core.IdentityFrom:

	id := core.IdentityFrom(r.Context())
	if id.IsAnonymous() {
	    // browsing without a cart
	}

# Errors

DefaultErrorHandler maps the core error taxonomy onto HTTP:

  - core.ErrInvalidQuantity: 400
  - core.ErrAnonymous: 401
  - core.ErrNotFound: 404
  - anything else: 500, without details

# Logging

Every component accepts a core.Logger. Adapters are provided for logrus
(NewLogrusLogger), zap (NewZapLogger) and zerolog (NewZerologLogger).

# Frameworks

Adapters for gin and echo live in framework/gin and framework/echo; gRPC
interceptors live in integrations/grpc.
*/
package storefront
