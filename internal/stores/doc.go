// Package stores contains the Redis-backed record stores used by the engine.
//
// Records are encoded in a compact versioned binary layout and consumed
// atomically through server-side Lua so concurrent verification attempts can
// never double-spend a code.
package stores
