package authgate

import (
	"errors"
	"time"
)

// Config is the full engine configuration tree.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Throttle     ThrottleConfig
	Captcha      CaptchaConfig
	Verification VerificationConfig
	RateLimit    RateLimitConfig
	Audit        AuditConfig
	Password     PasswordConfig
	Metrics      MetricsConfig
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig tunes the per-identity failed-login guard. An identity with
// MaxFailures failures inside the trailing Window is locked; the lock expires
// naturally as failure records age out.
type ThrottleConfig struct {
	MaxFailures int
	Window      time.Duration
}

/*
====================================
CAPTCHA CONFIG
====================================
*/

// CaptchaConfig tunes challenge generation. SigningKey seals the challenge
// token; without it client-held challenge state would be forgeable.
type CaptchaConfig struct {
	SigningKey []byte
	TTL        time.Duration
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig tunes the single-use 2FA code lifecycle.
type VerificationConfig struct {
	CodeDigits      int
	CodeTTL         time.Duration
	ResendCooldown  time.Duration
	DeliveryTimeout time.Duration
	Channel         string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the edge request ceiling per client key.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig tunes async event dispatch and the Redis stream sink.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Stream     string
	StreamMax  int64
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries Argon2id parameters for the registration flow and
// the bundled credential-verifier adapter.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 5 failures / 15 min lockout,
// 6-digit codes valid 15 min with a 30 s resend cooldown, 100 requests / 60 s
// at the edge, 2 min captcha validity.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Throttle: ThrottleConfig{
			MaxFailures: 5,
			Window:      15 * time.Minute,
		},
		Captcha: CaptchaConfig{
			TTL: 2 * time.Minute,
		},
		Verification: VerificationConfig{
			CodeDigits:      6,
			CodeTTL:         15 * time.Minute,
			ResendCooldown:  30 * time.Second,
			DeliveryTimeout: 5 * time.Second,
			Channel:         "email",
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 100,
			Window:      time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Captcha.SigningKey = cloneBytes(cfg.Captcha.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for values the engine cannot operate
// with. It is called by [Builder.Build].
func (c Config) Validate() error {
	if c.Throttle.MaxFailures <= 0 {
		return errors.New("throttle MaxFailures must be > 0")
	}
	if c.Throttle.Window <= 0 {
		return errors.New("throttle Window must be > 0")
	}
	if len(c.Captcha.SigningKey) < 16 {
		return errors.New("captcha SigningKey must be at least 16 bytes")
	}
	if c.Captcha.TTL <= 0 {
		return errors.New("captcha TTL must be > 0")
	}
	if c.Verification.CodeDigits < 6 || c.Verification.CodeDigits > 10 {
		return errors.New("verification CodeDigits must be in [6, 10]")
	}
	if c.Verification.CodeTTL <= 0 {
		return errors.New("verification CodeTTL must be > 0")
	}
	if c.Verification.ResendCooldown < 0 {
		return errors.New("verification ResendCooldown must be >= 0")
	}
	if c.Verification.DeliveryTimeout <= 0 {
		return errors.New("verification DeliveryTimeout must be > 0")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("rate limit MaxRequests must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit Window must be > 0")
	}
	return nil
}
