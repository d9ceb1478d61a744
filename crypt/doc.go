// Package crypt implements authenticated symmetric encryption for values
// that must be recoverable rather than merely verifiable.
//
// # Output format
//
// Envelopes are encoded as base64 over a fixed binary layout:
//
//	typeID(1B) | nonce(12B) | tag(16B) | ciphertext(N)
//
// The type byte lets multiple ciphers coexist: a [Cipher] decrypts only its
// own envelopes and reports nil for foreign ones. A fresh random nonce is
// generated for every call; reusing a (key, nonce) pair breaks AES-GCM,
// so envelopes are never rebuilt from previous output.
//
// # What this package must NOT do
//
//   - Derive or persist keys — callers supply a 32-byte key.
//   - Swallow tag failures: tampering surfaces as [ErrAuthenticationFailed],
//     never as a nil result.
package crypt
