// Package password implements versioned password hashing and verification
// with PBKDF2-SHA256 defaults.
//
// # Output format
//
// Hashes are encoded as a base64 binary envelope:
//
//	version(1B) | salt(saltSize(version)) | key(keySize(version))
//
// The leading version byte selects a parameter set from the version
// registry, so the envelope length is fully determined by its version.
// Old hashes keep verifying forever; a match against a non-current version
// reports [StatusSuccessRehashNeeded] so the caller can re-hash on the next
// successful login and migrate lazily.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// reuse history) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive envelopes.
//   - Import any other credcore package.
//   - Log plaintext passwords or derived keys at runtime.
package password
