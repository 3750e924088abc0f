package authgate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tsellem/authgate/internal"
	"github.com/tsellem/authgate/internal/stores"
)

// loginAndGetCode runs a full successful login and returns the delivered code.
func loginAndGetCode(t *testing.T, engine *Engine, notifier *captureNotifier) string {
	t.Helper()

	token, answer := solvedCaptcha(t, engine)
	result, err := engine.Login(context.Background(), LoginRequest{
		Identity:      "alice@example.com",
		Secret:        "Correct-Horse1!",
		CaptchaToken:  token,
		CaptchaAnswer: answer,
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !result.CodeIssued {
		t.Fatal("expected code to be issued")
	}

	return codeFromPayload(t, waitNotice(t, notifier, "email").Payload)
}

func TestConfirmLoginSuccess(t *testing.T) {
	cfg := testConfig()
	sink := NewChannelSink(64)
	engine, notifier, _, done := newTestEngine(t, cfg, withSink(sink))
	defer done()

	code := loginAndGetCode(t, engine, notifier)

	result, err := engine.ConfirmLogin(context.Background(), "alice@example.com", code)
	if err != nil {
		t.Fatalf("ConfirmLogin failed: %v", err)
	}
	if !result.Authenticated || result.Identity != "alice@example.com" {
		t.Fatalf("unexpected verify result %+v", result)
	}
	if result.VerifiedAt.IsZero() {
		t.Fatal("expected VerifiedAt to be set")
	}

	waitEvent(t, sink, "2FA_SUCCESS")
}

func TestConfirmLoginSingleUse(t *testing.T) {
	cfg := testConfig()
	engine, notifier, _, done := newTestEngine(t, cfg)
	defer done()

	code := loginAndGetCode(t, engine, notifier)

	ctx := context.Background()
	if _, err := engine.ConfirmLogin(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("first ConfirmLogin failed: %v", err)
	}

	// A verified code is spent.
	if _, err := engine.ConfirmLogin(ctx, "alice@example.com", code); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound on reuse, got %v", err)
	}
}

func TestConfirmLoginWrongCodeKeepsRecord(t *testing.T) {
	cfg := testConfig()
	sink := NewChannelSink(64)
	engine, notifier, _, done := newTestEngine(t, cfg, withSink(sink))
	defer done()

	code := loginAndGetCode(t, engine, notifier)

	ctx := context.Background()
	if _, err := engine.ConfirmLogin(ctx, "alice@example.com", "000000"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
	event := waitEvent(t, sink, "2FA_FAILED")
	if event.Error != "code_invalid" {
		t.Fatalf("expected code_invalid error code, got %q", event.Error)
	}

	// A wrong guess does not burn the real code.
	if _, err := engine.ConfirmLogin(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("expected retry with correct code to succeed, got %v", err)
	}
}

func TestConfirmLoginNoCode(t *testing.T) {
	cfg := testConfig()
	engine, _, _, done := newTestEngine(t, cfg)
	defer done()

	_, err := engine.ConfirmLogin(context.Background(), "alice@example.com", "123456")
	if !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}

func TestConfirmLoginExpiredCode(t *testing.T) {
	cfg := testConfig()
	engine, _, _, done := newTestEngine(t, cfg)
	defer done()

	ctx := context.Background()

	// Plant a record whose own expiry is in the past but whose key is still
	// present: verification must answer "expired", not "not found".
	code := "654321"
	record := &stores.VerificationCodeRecord{
		CodeHash:  internal.HashAnswer(code),
		IssuedAt:  time.Now().Add(-20 * time.Minute).UnixMilli(),
		ExpiresAt: time.Now().Add(-5 * time.Minute).UnixMilli(),
	}
	if err := engine.codes.Save(ctx, "alice@example.com", record, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := engine.ConfirmLogin(ctx, "alice@example.com", code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}

	// Expiry retires the record.
	if _, err := engine.ConfirmLogin(ctx, "alice@example.com", code); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound after expiry retirement, got %v", err)
	}
}

func TestResendCooldown(t *testing.T) {
	cfg := testConfig()
	sink := NewChannelSink(64)
	engine, notifier, mr, done := newTestEngine(t, cfg, withSink(sink))
	defer done()

	ctx := context.Background()
	oldCode := loginAndGetCode(t, engine, notifier)

	// Issuance claimed the cooldown; an immediate resend must wait.
	result, err := engine.ResendCode(ctx, "alice@example.com")
	if !errors.Is(err, ErrResendCooldown) {
		t.Fatalf("expected ErrResendCooldown, got %v", err)
	}
	if result == nil || result.Issued || result.RetryAfter <= 0 {
		t.Fatalf("expected blocked resend with retry-after, got %+v", result)
	}

	event := waitEvent(t, sink, "RATE_LIMIT_EXCEEDED")
	if event.Metadata["scope"] != "resend_cooldown" {
		t.Fatalf("expected resend_cooldown scope, got %+v", event.Metadata)
	}
	if event.Error != "resend_cooldown" {
		t.Fatalf("expected resend_cooldown error code, got %q", event.Error)
	}

	mr.FastForward(cfg.Verification.ResendCooldown + time.Second)

	result, err = engine.ResendCode(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ResendCode failed: %v", err)
	}
	if !result.Issued {
		t.Fatalf("expected resend to issue, got %+v", result)
	}

	newCode := codeFromPayload(t, waitNotice(t, notifier, "email").Payload)

	// The replacement supersedes the original.
	if oldCode != newCode {
		if _, err := engine.ConfirmLogin(ctx, "alice@example.com", oldCode); !errors.Is(err, ErrCodeInvalid) {
			t.Fatalf("expected superseded code to be invalid, got %v", err)
		}
	}
	if _, err := engine.ConfirmLogin(ctx, "alice@example.com", newCode); err != nil {
		t.Fatalf("expected new code to verify, got %v", err)
	}
}

func TestConfirmLoginClearsCooldown(t *testing.T) {
	cfg := testConfig()
	engine, notifier, _, done := newTestEngine(t, cfg)
	defer done()

	ctx := context.Background()
	code := loginAndGetCode(t, engine, notifier)

	if _, err := engine.ConfirmLogin(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("ConfirmLogin failed: %v", err)
	}

	// Verification cleared the cooldown, so a resend can issue right away.
	result, err := engine.ResendCode(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ResendCode after verification failed: %v", err)
	}
	if !result.Issued {
		t.Fatalf("expected immediate issuance, got %+v", result)
	}
}

func TestDeliveryFailureIsAudited(t *testing.T) {
	cfg := testConfig()
	sink := NewChannelSink(64)
	engine, notifier, _, done := newTestEngine(t, cfg, withSink(sink))
	defer done()

	notifier.setFail(true)

	token, answer := solvedCaptcha(t, engine)
	result, err := engine.Login(context.Background(), LoginRequest{
		Identity:      "alice@example.com",
		Secret:        "Correct-Horse1!",
		CaptchaToken:  token,
		CaptchaAnswer: answer,
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	// Issuance succeeded even though delivery will fail.
	if !result.CodeIssued {
		t.Fatal("expected code to be issued")
	}

	event := waitEvent(t, sink, "2FA_CODE_SEND_FAILED")
	if event.Error != "delivery_failed" {
		t.Fatalf("expected delivery_failed error code, got %q", event.Error)
	}
}
