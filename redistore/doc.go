// Package redistore provides Redis-backed implementations of the credcore
// SessionStore and TokenStore interfaces.
//
// # Binary encoding
//
// Records are stored as a compact binary format with a leading schema
// version byte. The encoder is append-only: new versions add fields but
// never reinterpret old ones. Redis key TTLs mirror record expiry, so
// expired records vanish without a sweeper.
//
// # Key layout
//
//	{prefix}sess:{ownerID}:{sessionID}   encoded session record
//	{prefix}sessidx:{ownerID}            set of live session IDs
//	{prefix}sesshash:{ownerID}           hash of refreshHash -> sessionID
//	{prefix}tok:{purpose}:{tokenHash}    encoded purpose token record
//	{prefix}tokidx:{ownerID}:{purpose}   set of live token hashes
//
// # What this package must NOT do
//
//   - Store plaintext refresh tokens or purpose tokens — only their hashes.
//   - Make policy decisions; expiry semantics belong to the engine flows.
package redistore
