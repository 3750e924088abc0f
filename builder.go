package authgate

import (
	"errors"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/tsellem/authgate/internal"
	internalaudit "github.com/tsellem/authgate/internal/audit"
	"github.com/tsellem/authgate/internal/limiters"
	internalmetrics "github.com/tsellem/authgate/internal/metrics"
	"github.com/tsellem/authgate/internal/rate"
	"github.com/tsellem/authgate/internal/stores"
	"github.com/tsellem/authgate/password"
)

const resendCooldownPrefix = "arc"

// Builder assembles an [Engine]. A Builder is single-use: Build returns an
// error when called twice.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	verifier  CredentialVerifier
	accounts  AccountStore
	notifier  Notifier
	auditSink AuditSink
	logger    *log.Logger

	built bool
}

// New creates a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing all engine state.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialVerifier sets the mandatory credential check collaborator.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithAccountStore enables [Engine.Register] against the given store.
func (b *Builder) WithAccountStore(s AccountStore) *Builder {
	b.accounts = s
	return b
}

// WithNotifier sets the mandatory out-of-band delivery collaborator.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink replaces the default Redis-stream audit sink. When a custom
// sink is installed, [Engine.RecentEvents] has no stream to read and returns
// nil.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLogger sets the logger used for best-effort warnings (failed delivery,
// audit fallbacks). Defaults to the standard logger.
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.verifier == nil {
		return nil, errors.New("credential verifier required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}

	engine := &Engine{
		config:   cfg,
		redis:    b.redis,
		verifier: b.verifier,
		accounts: b.accounts,
		notifier: b.notifier,
		hasher:   hasher,
		logger:   logger,
		loginMu:  internal.NewKeyedMutex(),
	}

	engine.throttle = limiters.NewThrottleGuard(b.redis, limiters.ThrottleConfig{
		MaxFailures: cfg.Throttle.MaxFailures,
		Window:      cfg.Throttle.Window,
	})
	engine.resend = limiters.NewCooldownLimiter(b.redis, resendCooldownPrefix)
	engine.rateLimiter = rate.New(b.redis, rate.Config{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
	})
	engine.captcha = newCaptchaManager(cfg.Captcha)
	engine.captchaUsed = newCaptchaStore(b.redis)
	engine.codes = stores.NewVerificationCodeStore(b.redis, "")
	engine.metrics = internalmetrics.New(internalmetrics.Config{Enabled: cfg.Metrics.Enabled})

	sink := b.auditSink
	if sink == nil {
		// Default persistence: capped Redis stream with stderr fallback so a
		// Redis outage degrades to line-JSON instead of losing events.
		stream := internalaudit.NewRedisStreamSink(
			b.redis,
			cfg.Audit.Stream,
			cfg.Audit.StreamMax,
			internalaudit.NewJSONWriterSink(os.Stderr),
		)
		engine.stream = stream
		sink = stream
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	b.built = true
	return engine, nil
}
