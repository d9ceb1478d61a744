// Package internal contains packages that are intentionally private to
// credcore.
//
// # Sub-packages
//
//   - flows — pure-function flow orchestrators for every Engine operation
//   - lockout — two-tier failed-attempt lockout policy
//
// # What this package must NOT do
//
//   - Export types that appear in the public credcore API.
//   - Be imported by any package outside the credcore module.
package internal
