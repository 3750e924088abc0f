package authgate

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateIdentity(t *testing.T) {
	valid := []string{
		"alice@example.com",
		"a.b+tag@sub.example.co",
		"x@y.io",
	}
	for _, identity := range valid {
		if err := validateIdentity(identity); err != nil {
			t.Errorf("expected %q to be valid, got %v", identity, err)
		}
	}

	invalid := []string{
		"",
		"plain",
		"no-at.example.com",
		"two@@example.com",
		"spaces in@example.com",
		"@example.com",
		"user@",
		"user@nodot",
		strings.Repeat("a", 250) + "@example.com",
	}
	for _, identity := range invalid {
		if err := validateIdentity(identity); !errors.Is(err, ErrIdentityInvalid) {
			t.Errorf("expected %q to be invalid, got %v", identity, err)
		}
	}
}

func TestNormalizeIdentity(t *testing.T) {
	if got := normalizeIdentity("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestValidatePassword(t *testing.T) {
	valid := []string{
		"Str0ng-Passw0rd!",
		"Xy1!aaaa",
		"C0mpl3x#Secret",
	}
	for _, secret := range valid {
		if err := validatePassword(secret); err != nil {
			t.Errorf("expected %q to pass policy, got %v", secret, err)
		}
	}

	invalid := []string{
		"Ab1!",                     // too short
		"lowercase1!",              // no uppercase
		"NoDigits!!",               // no digit
		"NoSpecial123",             // no special
		"Password1!",               // denylisted
		"QWERTY123!",               // denylisted (case-insensitive)
		strings.Repeat("Aa1!", 40), // too long
	}
	for _, secret := range invalid {
		if err := validatePassword(secret); !errors.Is(err, ErrPasswordPolicy) {
			t.Errorf("expected %q to violate policy, got %v", secret, err)
		}
	}
}

func TestSanitizeDetail(t *testing.T) {
	if got := sanitizeDetail("hello\x00world\n"); got != "helloworld" {
		t.Fatalf("expected control characters stripped, got %q", got)
	}
	if got := sanitizeDetail(strings.Repeat("x", 600)); len(got) != 512 {
		t.Fatalf("expected truncation to 512, got %d", len(got))
	}
}

func TestUserMessageNeverEnumerates(t *testing.T) {
	// Unknown identity and wrong password must read identically.
	if UserMessage(ErrInvalidCredentials) != UserMessage(ErrIdentityInvalid) {
		t.Fatal("credential and identity errors must share one user message")
	}

	cases := map[error]string{
		ErrLoginLocked:    "Too many login attempts. Please try again later.",
		ErrRateLimited:    "Too Many Requests",
		ErrCodeExpired:    "Verification code has expired. Please request a new code.",
		ErrCodeInvalid:    "Invalid verification code. Please try again.",
		ErrResendCooldown: "Please wait before requesting another code.",
	}
	for err, want := range cases {
		if got := UserMessage(err); got != want {
			t.Errorf("UserMessage(%v) = %q, want %q", err, got, want)
		}
	}

	if UserMessage(nil) != "" {
		t.Fatal("nil error must map to empty message")
	}
	if UserMessage(errors.New("internal details")) == "internal details" {
		t.Fatal("internal error text must not leak to users")
	}
}
