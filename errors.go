package authgate

import "errors"

var (
	// ErrInvalidCredentials is returned when the credential collaborator
	// rejects the identity/secret pair, or when the identity is unknown.
	// Callers must surface it through [UserMessage] so identity existence
	// and password correctness stay indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginLocked is returned while an identity is inside a lockout window.
	ErrLoginLocked = errors.New("login locked")
	// ErrCaptchaInvalid is returned when a challenge answer does not match or
	// the challenge was already consumed.
	ErrCaptchaInvalid = errors.New("captcha answer invalid")
	// ErrCaptchaExpired is returned when a challenge token is past its validity.
	ErrCaptchaExpired = errors.New("captcha challenge expired")
	// ErrCodeNotFound is returned when no unused verification code exists for
	// the identity.
	ErrCodeNotFound = errors.New("verification code not found")
	// ErrCodeExpired is returned when the stored verification code is past its
	// expiry; the code is retired on the way out.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeInvalid is returned when the supplied code does not match the
	// stored one; the stored code stays usable for retry within its window.
	ErrCodeInvalid = errors.New("verification code invalid")
	// ErrResendCooldown is returned when a resend request arrives before the
	// cooldown from the last issuance has elapsed.
	ErrResendCooldown = errors.New("resend cooldown active")
	// ErrRateLimited is returned when the edge request ceiling is exceeded.
	ErrRateLimited = errors.New("too many requests")
	// ErrDeliveryFailed indicates the notifier could not dispatch a payload.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrStoreUnavailable indicates a persistence collaborator failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrIdentityInvalid is returned when an identity fails format validation.
	ErrIdentityInvalid = errors.New("invalid identity")
	// ErrPasswordPolicy is returned when a registration secret violates the
	// password policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrIdentityExists is returned when registering an identity that is
	// already taken.
	ErrIdentityExists = errors.New("identity already exists")
	// ErrRegistrationDisabled is returned when Register is called without an
	// account store collaborator.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrEngineNotReady is returned when an Engine method runs before Build
	// wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// UserMessage maps an Engine error to the non-enumerating text safe to show
// end users. Which factor failed (identity existence, password, code) is
// never distinguishable from the message; the true kind is already in the
// audit log by the time the error reaches the caller.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrIdentityInvalid):
		return "Invalid email or password"
	case errors.Is(err, ErrLoginLocked):
		return "Too many login attempts. Please try again later."
	case errors.Is(err, ErrCaptchaInvalid), errors.Is(err, ErrCaptchaExpired):
		return "Incorrect answer. Please try again with a new challenge."
	case errors.Is(err, ErrCodeInvalid):
		return "Invalid verification code. Please try again."
	case errors.Is(err, ErrCodeExpired):
		return "Verification code has expired. Please request a new code."
	case errors.Is(err, ErrCodeNotFound):
		return "Verification code not found or expired. Please request a new code."
	case errors.Is(err, ErrResendCooldown):
		return "Please wait before requesting another code."
	case errors.Is(err, ErrRateLimited):
		return "Too Many Requests"
	case errors.Is(err, ErrPasswordPolicy):
		return "Password does not meet the security requirements"
	case errors.Is(err, ErrIdentityExists):
		return "Email already in use"
	default:
		return "An unexpected error occurred. Please try again."
	}
}
