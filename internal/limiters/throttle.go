package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ThrottleConfig holds configuration for the failed-login throttle guard.
type ThrottleConfig struct {
	MaxFailures int
	Window      time.Duration
}

var (
	// ErrThrottleUnavailable indicates the throttle backend is unreachable.
	ErrThrottleUnavailable = errors.New("throttle backend unavailable")
)

// ThrottleGuard tracks login attempts per identity in a Redis sorted set
// scored by timestamp and decides lockout from the count of failures inside
// the trailing window. Past records are never mutated; lockout expires as
// records age out of the window.
type ThrottleGuard struct {
	redis  redis.UniversalClient
	config ThrottleConfig
}

// NewThrottleGuard creates a throttle guard.
func NewThrottleGuard(redisClient redis.UniversalClient, cfg ThrottleConfig) *ThrottleGuard {
	return &ThrottleGuard{redis: redisClient, config: cfg}
}

func (g *ThrottleGuard) failureKey(identity string) string {
	return "atg:f:" + identity
}

func (g *ThrottleGuard) successKey(identity string) string {
	return "atg:s:" + identity
}

// RecordAttempt appends an immutable login-attempt record for identity.
// It never enforces the lock itself; callers check IsLocked first.
func (g *ThrottleGuard) RecordAttempt(ctx context.Context, identity string, success bool) error {
	if g == nil || identity == "" {
		return nil
	}

	key := g.failureKey(identity)
	if success {
		key = g.successKey(identity)
	}

	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	pipe := g.redis.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	// Records must survive at least one full window; 2x leaves slack for
	// clock drift between processes before lazy trimming reclaims them.
	pipe.Expire(ctx, key, 2*g.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
	}
	return nil
}

// IsLocked reports whether identity has reached the failure ceiling within
// the trailing window. Expired records are trimmed lazily on each check.
func (g *ThrottleGuard) IsLocked(ctx context.Context, identity string) (bool, error) {
	count, err := g.FailureCount(ctx, identity)
	if err != nil {
		return false, err
	}
	return count >= g.config.MaxFailures, nil
}

// FailureCount returns the number of failure records for identity inside the
// trailing window.
func (g *ThrottleGuard) FailureCount(ctx context.Context, identity string) (int, error) {
	if g == nil || identity == "" {
		return 0, nil
	}

	key := g.failureKey(identity)
	windowStart := time.Now().Add(-g.config.Window).UnixNano()

	pipe := g.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart-1, 10))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
	}

	return int(card.Val()), nil
}
