// Package internal contains helper utilities that are intentionally private
// to authgate, including secure random generation and keyed locking.
//
// # Sub-packages
//
//   - audit — async security-event recording (Dispatcher + Sink implementations)
//   - limiters — identity-aware throttling (attempt windows, cooldowns)
//   - metrics — lock-free counters
//   - rate — Redis-backed edge request limiter
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
//   - Be imported by any package outside the authgate module.
package internal
