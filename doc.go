// Package authgate provides the security core of a multi-step login flow:
// failed-attempt throttling with automatic lockout, CAPTCHA issuance and
// verification, single-use expiring verification codes (email 2FA), edge
// request rate limiting, and append-only security-event auditing.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. All shared counters and records live in Redis so multiple
// processes can share one throttling and rate-limiting view.
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, Decision, SecurityEvent, etc.). Internal
// coordination — attempt windows, rate counters, audit dispatch — lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Render UI, route HTTP, or issue session/identity tokens. The caller
//     decides what a successful authentication unlocks.
//   - See or log raw secrets beyond passing them to the credential
//     collaborator.
//   - Block a user-facing call on out-of-band delivery; code delivery is
//     dispatched asynchronously with its own timeout.
package authgate
