package authgate

import (
	"context"
	"errors"
	"time"
)

// Security event types. The UPPER_SNAKE vocabulary is part of the persisted
// audit record format; renaming a value is a breaking change for consumers
// of the stream.
const (
	eventFailedLogin        = "FAILED_LOGIN"
	eventSuccessfulLogin    = "SUCCESSFUL_LOGIN"
	eventRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	eventCaptchaFailed      = "CAPTCHA_FAILED"
	eventCodeSent           = "2FA_CODE_SENT"
	eventCodeSendFailed     = "2FA_CODE_SEND_FAILED"
	eventSecondFactorFailed = "2FA_FAILED"
	eventSecondFactorOK     = "2FA_SUCCESS"
	eventUserRegistered     = "USER_REGISTERED"
	eventFailedRegistration = "FAILED_REGISTRATION"
	eventBruteForceAttempt  = "BRUTE_FORCE_ATTEMPT"
	eventSuspiciousActivity = "SUSPICIOUS_ACTIVITY"
)

// highSeverityEvents trigger out-of-band alerting on top of the audit trail.
var highSeverityEvents = map[string]struct{}{
	eventBruteForceAttempt:  {},
	eventRateLimitExceeded:  {},
	eventSuspiciousActivity: {},
}

// AuditErrorCode is the stable machine-readable failure cause recorded on
// security events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrLoginLocked        AuditErrorCode = "login_locked"
	auditErrCaptchaInvalid     AuditErrorCode = "captcha_invalid"
	auditErrCaptchaExpired     AuditErrorCode = "captcha_expired"
	auditErrCodeInvalid        AuditErrorCode = "code_invalid"
	auditErrCodeExpired        AuditErrorCode = "code_expired"
	auditErrCodeNotFound       AuditErrorCode = "code_not_found"
	auditErrResendCooldown     AuditErrorCode = "resend_cooldown"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrDeliveryFailed     AuditErrorCode = "delivery_failed"
	auditErrIdentityInvalid    AuditErrorCode = "identity_invalid"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginLocked):
		return auditErrLoginLocked
	case errors.Is(err, ErrCaptchaInvalid):
		return auditErrCaptchaInvalid
	case errors.Is(err, ErrCaptchaExpired):
		return auditErrCaptchaExpired
	case errors.Is(err, ErrCodeInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrCodeExpired):
		return auditErrCodeExpired
	case errors.Is(err, ErrCodeNotFound):
		return auditErrCodeNotFound
	case errors.Is(err, ErrResendCooldown):
		return auditErrResendCooldown
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrIdentityInvalid):
		return auditErrIdentityInvalid
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrIdentityExists):
		return auditErrDuplicate
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

// emitAudit builds and dispatches a security event. It never blocks the
// calling flow beyond the dispatcher's configured behavior and never returns
// an error: auditing is best-effort by contract.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identity string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["user_agent"] = sanitizeDetail(ua)
	}

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Identity:  identity,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = string(auditErrorCode(err))
		event.Detail = sanitizeDetail(err.Error())
	}

	e.audit.Emit(ctx, event)

	if _, high := highSeverityEvents[eventType]; high {
		e.alert(event)
	}
}

// alert forwards a high-severity event to the notifier on the dedicated alert
// channel. Delivery is asynchronous and best-effort: an unreachable notifier
// is logged, never propagated.
func (e *Engine) alert(event SecurityEvent) {
	if e == nil || e.notifier == nil {
		return
	}

	timeout := e.config.Verification.DeliveryTimeout
	payload := "Security alert: " + event.EventType
	if event.Identity != "" {
		payload += " for " + event.Identity
	}
	if event.IP != "" {
		payload += " from " + event.IP
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := e.notifier.Deliver(ctx, event.Identity, "alert", payload); err != nil {
			e.warnf("alert delivery failed for %s: %v", event.EventType, err)
			return
		}
		e.metricInc(MetricAlertSent)
	}()
}
