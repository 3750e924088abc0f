package authgate

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/tsellem/authgate/internal"
	internalaudit "github.com/tsellem/authgate/internal/audit"
	"github.com/tsellem/authgate/internal/limiters"
	"github.com/tsellem/authgate/internal/rate"
	"github.com/tsellem/authgate/internal/stores"
	"github.com/tsellem/authgate/password"
)

// Engine is the authentication security core. It owns login throttling,
// CAPTCHA challenges, second-factor codes, the edge rate limiter, and the
// security audit trail. Construct it with [Builder.Build].
//
// Engine instances are intended to be configured during initialization and
// then treated as immutable. All methods are safe for concurrent use.
type Engine struct {
	config Config
	redis  redis.UniversalClient

	verifier CredentialVerifier
	accounts AccountStore
	notifier Notifier

	throttle    *limiters.ThrottleGuard
	resend      *limiters.CooldownLimiter
	rateLimiter *rate.Limiter
	captcha     *captchaManager
	captchaUsed *captchaStore
	codes       *stores.VerificationCodeStore
	hasher      *password.Argon2

	audit   *internalaudit.Dispatcher
	stream  *internalaudit.RedisStreamSink
	metrics *Metrics
	logger  *log.Logger

	// loginMu serializes the check-then-record section of Login per identity
	// so concurrent attempts observe a consistent failure count.
	loginMu *internal.KeyedMutex
}

// Close flushes and stops the audit dispatcher. The Engine must not be used
// after Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of security events dropped because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warnf(format string, args ...interface{}) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Printf("authgate: "+format, args...)
}

// Admit counts one request against clientKey's window budget and returns the
// decision. An empty clientKey falls back to the client IP from ctx. The
// request is denied with [ErrRateLimited] when the ceiling is exceeded; a
// limiter backend failure is reported as [ErrStoreUnavailable] and the caller
// decides whether to fail open.
func (e *Engine) Admit(ctx context.Context, clientKey string) (Decision, error) {
	if e == nil || e.rateLimiter == nil {
		return Decision{}, ErrEngineNotReady
	}

	if clientKey == "" {
		clientKey = clientIPFromContext(ctx)
	}
	if clientKey == "" {
		clientKey = "unknown"
	}

	decision, err := e.rateLimiter.Admit(ctx, clientKey)
	if err != nil {
		e.warnf("rate limiter degraded for %s: %v", clientKey, err)
		return decision, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !decision.Allowed {
		e.metricInc(MetricRateLimitHit)
		e.emitAudit(ctx, eventRateLimitExceeded, false, "", ErrRateLimited, func() map[string]string {
			return map[string]string{
				"client_key": clientKey,
				"limit":      fmt.Sprintf("%d", decision.Limit),
			}
		})
		return decision, ErrRateLimited
	}

	return decision, nil
}

// RecentEvents returns up to n most recent security events from the persisted
// audit stream, newest first. It returns nil when a custom audit sink replaced
// the built-in stream.
func (e *Engine) RecentEvents(ctx context.Context, n int64) ([]SecurityEvent, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.stream == nil {
		return nil, nil
	}
	events, err := e.stream.Tail(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return events, nil
}
