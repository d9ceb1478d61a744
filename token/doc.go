// Package token generates cryptographically secure random tokens.
//
// Tokens are read from crypto/rand and encoded as standard or URL-safe
// base64. The URL-safe form carries no padding and no '+' or '/' bytes,
// so it can be embedded in links and cookies without escaping.
package token
