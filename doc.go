// Package credcore provides a storage-agnostic credential security engine
// with versioned password hashing, JWT access tokens, rotating opaque
// refresh tokens, two-tier login lockout, and single-use purpose tokens for
// email verification and password reset.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// credcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, AuditEvent, MetricsSnapshot, etc.).
// Persistence is delegated to host-supplied [UserStore], [SessionStore], and
// [TokenStore] implementations; flow orchestration and the lockout policy
// live under internal/ and are never exported. Audit dispatch runs on an
// unexported worker inside this package.
//
// # What this package must NOT do
//
//   - Expose store clients, hash internals, or encoding details in its
//     public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports credcore (no import cycles).
//
// # Performance contract
//
// ParseAccessToken is the hot path. It must not touch any store and must
// not allocate beyond the returned claims struct. Login, Refresh, and
// account operations are allowed the store round-trips their flow requires.
package credcore
