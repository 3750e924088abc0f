// Package rate provides the Redis-backed fixed-window request limiter applied
// at the network edge, before any identity-aware component runs.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefix:
//   - arl: — requests per client key (typically a network address)
//
// The counter keeps incrementing past the ceiling so operators can see the
// true request volume; only the admit decision is capped.
//
// # What this package must NOT do
//
//   - Implement identity-aware throttling (that lives in internal/limiters).
//   - Be imported outside the authgate module.
package rate
