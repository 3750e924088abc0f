// Package middleware provides optional net/http adapters for the authgate
// Engine: per-client rate limiting with standard X-RateLimit headers and a
// baseline security-header wrapper.
//
// The middleware is a convenience layer only; the Engine is fully usable
// without it.
package middleware
