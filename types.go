package authgate

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/tsellem/authgate/internal/audit"
	internalmetrics "github.com/tsellem/authgate/internal/metrics"
	"github.com/tsellem/authgate/internal/rate"
)

// CredentialVerifier is the opaque one-way credential check collaborator.
// The engine never inspects, stores, or logs the raw secret beyond passing
// it to this call.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, identity, secret string) (bool, error)
}

// CredentialVerifierFunc adapts a function to [CredentialVerifier].
type CredentialVerifierFunc func(ctx context.Context, identity, secret string) (bool, error)

func (f CredentialVerifierFunc) VerifyCredential(ctx context.Context, identity, secret string) (bool, error) {
	return f(ctx, identity, secret)
}

// AccountStore is the optional collaborator behind [Engine.Register]. The
// engine hands it an already-hashed secret; plaintext never reaches storage.
type AccountStore interface {
	IdentityExists(ctx context.Context, identity string) (bool, error)
	CreateAccount(ctx context.Context, identity, name, secretHash string) error
}

// Notifier is the out-of-band delivery collaborator used for verification
// codes and security alerts. Failures are logged and audited, not retried
// indefinitely.
type Notifier interface {
	Deliver(ctx context.Context, identity, channel, payload string) error
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, identity, channel, payload string) error

func (f NotifierFunc) Deliver(ctx context.Context, identity, channel, payload string) error {
	return f(ctx, identity, channel, payload)
}

// Challenge is a freshly generated CAPTCHA puzzle. Token is opaque to the
// client and cryptographically bound to the expected answer; the server keeps
// no per-challenge state until verification consumes it.
type Challenge struct {
	Question string
	Token    string
	IssuedAt time.Time
}

// LoginRequest carries one credential attempt. CaptchaToken/CaptchaAnswer
// must come from a [Challenge] issued by this engine; every attempt consumes
// its challenge regardless of outcome.
type LoginRequest struct {
	Identity      string
	Secret        string
	CaptchaToken  string
	CaptchaAnswer string
}

// LoginResult is returned by [Engine.Login]. A successful credential check
// never authenticates by itself: SecondFactorRequired is always true and the
// caller must complete [Engine.ConfirmLogin].
type LoginResult struct {
	Identity             string
	SecondFactorRequired bool

	// CodeIssued reports success of issuance; delivery happens asynchronously
	// and its outcome is visible only in the audit log.
	CodeIssued    bool
	CodeExpiresAt time.Time
}

// VerifyResult is returned by [Engine.ConfirmLogin] on success.
type VerifyResult struct {
	Identity      string
	Authenticated bool
	VerifiedAt    time.Time
}

// ResendResult is returned by [Engine.ResendCode]. When the cooldown is still
// active, Issued is false and RetryAfter carries the remaining wait.
type ResendResult struct {
	Issued     bool
	RetryAfter time.Duration
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Identity string
	Name     string
	Secret   string
}

// Decision is the edge rate-limit outcome for one request. Remaining is
// reported even on deny (as zero) so handlers can always set limit headers.
type Decision = rate.Decision

// SecurityEvent is a structured security record emitted by the engine.
// Events are append-only; the core never mutates or deletes them.
type SecurityEvent = internalaudit.Event

// AuditSink receives [SecurityEvent] values from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess        = internalmetrics.MetricLoginSuccess
	MetricLoginFailure        = internalmetrics.MetricLoginFailure
	MetricLoginLocked         = internalmetrics.MetricLoginLocked
	MetricCaptchaIssued       = internalmetrics.MetricCaptchaIssued
	MetricCaptchaFailure      = internalmetrics.MetricCaptchaFailure
	MetricCaptchaReplay       = internalmetrics.MetricCaptchaReplay
	MetricCodeIssued          = internalmetrics.MetricCodeIssued
	MetricCodeVerified        = internalmetrics.MetricCodeVerified
	MetricCodeInvalid         = internalmetrics.MetricCodeInvalid
	MetricCodeExpired         = internalmetrics.MetricCodeExpired
	MetricCodeNotFound        = internalmetrics.MetricCodeNotFound
	MetricResendBlocked       = internalmetrics.MetricResendBlocked
	MetricRateLimitHit        = internalmetrics.MetricRateLimitHit
	MetricBruteForceDetected  = internalmetrics.MetricBruteForceDetected
	MetricDeliveryFailure     = internalmetrics.MetricDeliveryFailure
	MetricAlertSent           = internalmetrics.MetricAlertSent
	MetricRegistrationSuccess = internalmetrics.MetricRegistrationSuccess
	MetricRegistrationFailure = internalmetrics.MetricRegistrationFailure
)

// Metrics holds atomic counters for engine operations.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled: cfg.Enabled,
	})
}
