// Package middleware exposes HTTP middleware adapters for bearer-token
// enforcement and request tagging built on top of credcore.Engine.
//
// # Guards
//
//   - [Guard] — verifies the Authorization bearer token and injects claims.
//   - [RequireRole] — Guard plus a role check against the token's roles claim.
//   - [RequireVerifiedEmail] — Guard plus the email-verified claim check.
//   - [TagRequest] — copies client IP, user agent, and device name into the
//     request context so engine operations record them.
//
// Each guard reads the Authorization header, calls Engine.ParseAccessToken,
// and injects validated claims into the request context for
// [ClaimsFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — token verification is delegated to
// Engine.ParseAccessToken.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the session or token stores (Engine handles I/O).
//   - Make authorization decisions beyond what the validated claims carry.
package middleware
