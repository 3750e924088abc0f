// Package limiters provides the identity-aware throttling policies built on
// Redis primitives.
//
// # Limiters
//
//   - [ThrottleGuard] — sliding-window failed-login counter with lockout decision.
//   - [CooldownLimiter] — single-flight cooldown gate (verification code resends).
//
// All limiters are nil-safe: calling any method on a nil receiver is a no-op.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace and error values. Policy
// thresholds come from Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import authgate or any sibling internal package except internal/rate.
//   - Make policy decisions beyond counting — the Engine decides consequences.
package limiters
