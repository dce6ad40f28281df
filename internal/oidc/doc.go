/*
Package oidc discovers the key set location of an OpenID Connect issuer.

The discovery document is fetched from

	{issuer}/.well-known/openid-configuration

and its jwks_uri is handed to the jwks package. A document that advertises a
different issuer than the one it was fetched from is rejected.
*/
package oidc
