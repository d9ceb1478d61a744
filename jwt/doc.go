// Package jwt mints and validates the credcore token pair: a short-lived
// signed access token plus an opaque long-lived refresh token.
//
// The access token is self-contained and stateless. The refresh token is
// deliberately not: it is random bytes from the token generator, meaningless
// without a matching stored, hashed session record — which is what makes
// server-side revocation possible.
//
// Supported signing methods are Ed25519 (default) and HS256. Keys may be
// supplied raw or PEM-encoded.
package jwt
