package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCooldownUnavailable indicates the cooldown backend is unreachable.
	ErrCooldownUnavailable = errors.New("cooldown backend unavailable")
)

// CooldownLimiter gates an action behind a per-key cooldown interval using a
// single SETNX+TTL key. Begin either claims the cooldown or reports how long
// the caller must still wait.
type CooldownLimiter struct {
	redis  redis.UniversalClient
	prefix string
}

// NewCooldownLimiter creates a cooldown limiter owning the given key prefix.
func NewCooldownLimiter(redisClient redis.UniversalClient, prefix string) *CooldownLimiter {
	return &CooldownLimiter{redis: redisClient, prefix: prefix}
}

func (l *CooldownLimiter) key(id string) string {
	return l.prefix + ":" + id
}

// Begin claims the cooldown for id. When the cooldown is already active it
// returns ok=false and the remaining wait.
func (l *CooldownLimiter) Begin(ctx context.Context, id string, ttl time.Duration) (bool, time.Duration, error) {
	if l == nil || id == "" || ttl <= 0 {
		return true, 0, nil
	}

	ok, err := l.redis.SetNX(ctx, l.key(id), 1, ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrCooldownUnavailable, err)
	}
	if ok {
		return true, 0, nil
	}

	remaining, err := l.redis.PTTL(ctx, l.key(id)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrCooldownUnavailable, err)
	}
	if remaining < 0 {
		remaining = 0
	}
	return false, remaining, nil
}

// Clear removes an active cooldown (e.g., after a successful verification so
// the next login can request a fresh code immediately).
func (l *CooldownLimiter) Clear(ctx context.Context, id string) error {
	if l == nil || id == "" {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCooldownUnavailable, err)
	}
	return nil
}
