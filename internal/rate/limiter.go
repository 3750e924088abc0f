package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds request limiter tuning parameters.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Decision is the outcome of a single admit call. Remaining is reported even
// on deny (as zero) so edge handlers can always expose limit metadata.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
}

// Limiter enforces a per-client-key fixed-window request ceiling using
// Redis counters shared across all processes.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a request [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func requestKey(clientKey string) string {
	return "arl:" + clientKey
}

// Admit counts one request for clientKey and decides whether it is within the
// window budget. The window resets implicitly when the counter key expires.
func (l *Limiter) Admit(ctx context.Context, clientKey string) (Decision, error) {
	count, err := l.incrementWithTTL(ctx, requestKey(clientKey), l.config.Window)
	if err != nil {
		return Decision{Limit: l.config.MaxRequests}, err
	}

	remaining := int64(l.config.MaxRequests) - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(l.config.MaxRequests),
		Limit:     l.config.MaxRequests,
		Remaining: int(remaining),
	}, nil
}

// Peek returns the current request count for a client key without counting.
// Missing keys return zero.
func (l *Limiter) Peek(ctx context.Context, clientKey string) (int, error) {
	count, err := l.redis.Get(ctx, requestKey(clientKey)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
