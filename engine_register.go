package authgate

import (
	"context"
	"fmt"
)

// Register creates a new account through the configured [AccountStore]. The
// secret is policy-checked and hashed with Argon2id before it leaves the
// engine; the store never sees plaintext.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) error {
	if e == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	if e.accounts == nil {
		return ErrRegistrationDisabled
	}

	identity := normalizeIdentity(req.Identity)
	if err := validateIdentity(identity); err != nil {
		e.metricInc(MetricRegistrationFailure)
		e.emitAudit(ctx, eventFailedRegistration, false, identity, err, nil)
		return err
	}

	if err := validatePassword(req.Secret); err != nil {
		e.metricInc(MetricRegistrationFailure)
		e.emitAudit(ctx, eventFailedRegistration, false, identity, err, nil)
		return err
	}

	exists, err := e.accounts.IdentityExists(ctx, identity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if exists {
		e.metricInc(MetricRegistrationFailure)
		e.emitAudit(ctx, eventFailedRegistration, false, identity, ErrIdentityExists, nil)
		return ErrIdentityExists
	}

	secretHash, err := e.hasher.Hash(req.Secret)
	if err != nil {
		e.metricInc(MetricRegistrationFailure)
		e.emitAudit(ctx, eventFailedRegistration, false, identity, err, nil)
		return err
	}

	if err := e.accounts.CreateAccount(ctx, identity, sanitizeDetail(req.Name), secretHash); err != nil {
		e.metricInc(MetricRegistrationFailure)
		e.emitAudit(ctx, eventFailedRegistration, false, identity, fmt.Errorf("%w: %v", ErrStoreUnavailable, err), nil)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, eventUserRegistered, true, identity, nil, nil)

	if e.notifier != nil {
		e.deliverWelcome(identity)
	}

	return nil
}

// deliverWelcome sends the post-registration notification off the request
// path, best-effort.
func (e *Engine) deliverWelcome(identity string) {
	channel := e.config.Verification.Channel
	timeout := e.config.Verification.DeliveryTimeout

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := e.notifier.Deliver(ctx, identity, channel, "Welcome! Your account has been created."); err != nil {
			e.warnf("delivering welcome notification to %s: %v", identity, err)
		}
	}()
}
