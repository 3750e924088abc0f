package rate

import "errors"

var (
	// ErrRedisUnavailable indicates the rate-limit backend is unreachable.
	ErrRedisUnavailable = errors.New("rate limit backend unavailable")
)
