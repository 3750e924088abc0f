package authgate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tsellem/authgate/internal"
	"github.com/tsellem/authgate/internal/stores"
)

// Login runs one credential attempt through the full security pipeline:
// lockout check, CAPTCHA consumption, credential verification, attempt
// recording, and second-factor issuance. A nil error never means the caller
// is authenticated; it means a verification code is on its way and
// [Engine.ConfirmLogin] must complete the login.
//
// While an identity is locked out, attempts are rejected without being
// recorded: a lockout must not extend itself.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || e.verifier == nil {
		return nil, ErrEngineNotReady
	}

	identity := normalizeIdentity(req.Identity)
	if err := validateIdentity(identity); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, eventFailedLogin, false, identity, err, nil)
		return nil, ErrInvalidCredentials
	}

	// Serialize check-then-record per identity so concurrent attempts cannot
	// slip past the failure ceiling together.
	e.loginMu.Lock(identity)
	defer e.loginMu.Unlock(identity)

	locked, err := e.throttle.IsLocked(ctx, identity)
	if err != nil {
		e.warnf("lockout check for %s: %v", identity, err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if locked {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, eventRateLimitExceeded, false, identity, ErrLoginLocked, func() map[string]string {
			return map[string]string{"scope": "login_lockout"}
		})
		return nil, ErrLoginLocked
	}

	if err := e.consumeChallenge(ctx, req.CaptchaToken, req.CaptchaAnswer); err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			// Tombstone backend failure is not a user failure: no attempt is
			// recorded and the answer outcome stays undecided.
			e.warnf("captcha consumption for %s: %v", identity, err)
			e.emitAudit(ctx, eventFailedLogin, false, identity, err, func() map[string]string {
				return map[string]string{"stage": "captcha_backend"}
			})
			return nil, err
		}
		e.metricInc(MetricCaptchaFailure)
		e.recordFailure(ctx, identity)
		e.emitAudit(ctx, eventCaptchaFailed, false, identity, err, nil)
		e.emitAudit(ctx, eventFailedLogin, false, identity, err, func() map[string]string {
			return map[string]string{"stage": "captcha"}
		})
		return nil, err
	}

	ok, err := e.verifier.VerifyCredential(ctx, identity, req.Secret)
	if err != nil {
		// Collaborator failure is not a user failure: no attempt is recorded.
		e.emitAudit(ctx, eventFailedLogin, false, identity, fmt.Errorf("%w: %v", ErrStoreUnavailable, err), func() map[string]string {
			return map[string]string{"stage": "credential_backend"}
		})
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		e.recordFailure(ctx, identity)
		e.emitAudit(ctx, eventFailedLogin, false, identity, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if err := e.throttle.RecordAttempt(ctx, identity, true); err != nil {
		e.warnf("recording successful attempt for %s: %v", identity, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, eventSuccessfulLogin, true, identity, nil, nil)

	result := &LoginResult{
		Identity:             identity,
		SecondFactorRequired: true,
	}

	expiresAt, err := e.issueCode(ctx, identity)
	if err != nil {
		// The credential check already passed; surface issuance failure via
		// CodeIssued=false and the audit trail, and let ResendCode recover.
		e.warnf("issuing verification code for %s: %v", identity, err)
		return result, nil
	}

	result.CodeIssued = true
	result.CodeExpiresAt = expiresAt
	return result, nil
}

// recordFailure appends a failure record and raises the brute-force alarm
// when this failure reaches the lockout ceiling.
func (e *Engine) recordFailure(ctx context.Context, identity string) {
	if err := e.throttle.RecordAttempt(ctx, identity, false); err != nil {
		e.warnf("recording failed attempt for %s: %v", identity, err)
		return
	}

	count, err := e.throttle.FailureCount(ctx, identity)
	if err != nil {
		e.warnf("reading failure count for %s: %v", identity, err)
		return
	}
	if count >= e.config.Throttle.MaxFailures {
		e.metricInc(MetricBruteForceDetected)
		e.emitAudit(ctx, eventBruteForceAttempt, false, identity, ErrLoginLocked, func() map[string]string {
			return map[string]string{
				"failures": strconv.Itoa(count),
				"window":   e.config.Throttle.Window.String(),
			}
		})
	}
}

// issueCode generates, stores, and asynchronously delivers a fresh
// verification code for identity, superseding any outstanding one. The resend
// cooldown is claimed on issuance.
func (e *Engine) issueCode(ctx context.Context, identity string) (time.Time, error) {
	code, err := internal.NewOTP(e.config.Verification.CodeDigits)
	if err != nil {
		return time.Time{}, err
	}

	now := time.Now()
	expiresAt := now.Add(e.config.Verification.CodeTTL)
	record := &stores.VerificationCodeRecord{
		CodeHash:  internal.HashAnswer(code),
		IssuedAt:  now.UnixMilli(),
		ExpiresAt: expiresAt.UnixMilli(),
	}

	// Key TTL is twice the code validity: the record must still exist at
	// verify time for "expired" to be distinguishable from "not found".
	if err := e.codes.Save(ctx, identity, record, 2*e.config.Verification.CodeTTL); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if _, _, err := e.resend.Begin(ctx, identity, e.config.Verification.ResendCooldown); err != nil {
		e.warnf("claiming resend cooldown for %s: %v", identity, err)
	}

	e.metricInc(MetricCodeIssued)
	e.deliverCode(identity, code)

	return expiresAt, nil
}

// deliverCode hands the code to the notifier off the request path. Delivery
// outcome is only observable through the audit trail and metrics.
func (e *Engine) deliverCode(identity, code string) {
	channel := e.config.Verification.Channel
	timeout := e.config.Verification.DeliveryTimeout
	payload := "Your verification code is " + code

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := e.notifier.Deliver(ctx, identity, channel, payload); err != nil {
			e.metricInc(MetricDeliveryFailure)
			e.warnf("delivering verification code to %s: %v", identity, err)
			e.emitAudit(ctx, eventCodeSendFailed, false, identity, ErrDeliveryFailed, func() map[string]string {
				return map[string]string{"channel": channel}
			})
			return
		}

		e.emitAudit(ctx, eventCodeSent, true, identity, nil, func() map[string]string {
			return map[string]string{"channel": channel}
		})
	}()
}
