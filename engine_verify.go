package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tsellem/authgate/internal"
	"github.com/tsellem/authgate/internal/stores"
)

// ConfirmLogin completes a pending login by checking the submitted
// verification code. A correct code and an expired code both retire the
// stored record; a wrong code leaves it in place so the user can retry
// within the code's validity window.
func (e *Engine) ConfirmLogin(ctx context.Context, identity, code string) (*VerifyResult, error) {
	if e == nil || e.codes == nil {
		return nil, ErrEngineNotReady
	}

	identity = normalizeIdentity(identity)
	hash := internal.HashAnswer(strings.TrimSpace(code))

	_, err := e.codes.Consume(ctx, identity, hash)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrCodeNotFound):
			e.metricInc(MetricCodeNotFound)
			e.emitAudit(ctx, eventSecondFactorFailed, false, identity, ErrCodeNotFound, nil)
			return nil, ErrCodeNotFound
		case errors.Is(err, stores.ErrCodeExpired):
			e.metricInc(MetricCodeExpired)
			e.emitAudit(ctx, eventSecondFactorFailed, false, identity, ErrCodeExpired, nil)
			return nil, ErrCodeExpired
		case errors.Is(err, stores.ErrCodeMismatch):
			e.metricInc(MetricCodeInvalid)
			e.emitAudit(ctx, eventSecondFactorFailed, false, identity, ErrCodeInvalid, nil)
			return nil, ErrCodeInvalid
		default:
			e.warnf("consuming verification code for %s: %v", identity, err)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	// Allow an immediate fresh code on the next login.
	if err := e.resend.Clear(ctx, identity); err != nil {
		e.warnf("clearing resend cooldown for %s: %v", identity, err)
	}

	e.metricInc(MetricCodeVerified)
	e.emitAudit(ctx, eventSecondFactorOK, true, identity, nil, nil)

	return &VerifyResult{
		Identity:      identity,
		Authenticated: true,
		VerifiedAt:    time.Now(),
	}, nil
}

// ResendCode issues a replacement verification code for identity, superseding
// the outstanding one. At most one issuance per cooldown interval is allowed;
// inside the cooldown it returns [ErrResendCooldown] with the remaining wait
// in the result.
func (e *Engine) ResendCode(ctx context.Context, identity string) (*ResendResult, error) {
	if e == nil || e.codes == nil {
		return nil, ErrEngineNotReady
	}

	identity = normalizeIdentity(identity)
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}

	ok, remaining, err := e.resend.Begin(ctx, identity, e.config.Verification.ResendCooldown)
	if err != nil {
		e.warnf("resend cooldown check for %s: %v", identity, err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		e.metricInc(MetricResendBlocked)
		e.emitAudit(ctx, eventRateLimitExceeded, false, identity, ErrResendCooldown, func() map[string]string {
			return map[string]string{
				"scope":       "resend_cooldown",
				"retry_after": remaining.String(),
			}
		})
		return &ResendResult{RetryAfter: remaining}, ErrResendCooldown
	}

	if _, err := e.issueCode(ctx, identity); err != nil {
		return nil, err
	}

	return &ResendResult{Issued: true}, nil
}
