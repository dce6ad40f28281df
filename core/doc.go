/*
Package core holds the framework-agnostic storefront types shared by every
other package: the caller identity, the catalog and cart data model, the
consolidated repository capability and the error taxonomy.

Nothing in this package performs I/O. Transport adapters (net/http, gin,
echo, gRPC) resolve an Identity and store it in the request context with
WithIdentity; the cart, catalog and pricing packages consume the model types
and the Repository/Store interfaces implemented by the store packages.

	┌─────────────────────────────────────────────┐
	│         Transport Adapters                  │
	│  (net/http, Gin, Echo, gRPC)                │
	└────────────────┬────────────────────────────┘
	                 │ Identity in context
	                 ▼
	┌─────────────────────────────────────────────┐
	│   session · catalog · cart · pricing        │
	└────────────────┬────────────────────────────┘
	                 │ Repository / Store
	                 ▼
	┌─────────────────────────────────────────────┐
	│   store/sqlstore · store/memstore           │
	└─────────────────────────────────────────────┘

# Errors

Three sentinels make up the taxonomy:

  - ErrInvalidToken: malformed credential. Never surfaced; the session
    resolver collapses it to Anonymous.
  - ErrInvalidQuantity: negative requested amount, surfaced to the caller.
  - ErrNotFound: unknown sku or cart line, surfaced and not retried.

ErrAnonymous is returned by cart operations attempted without an identity.
Detailed failures are reported as *Error values that match their sentinel
with errors.Is:

	if errors.Is(err, core.ErrNotFound) {
	    // 404
	}
*/
package core
