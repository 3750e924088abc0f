package authgate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type memAccounts struct {
	mu     sync.RWMutex
	hashes map[string]string
}

func newMemAccounts() *memAccounts {
	return &memAccounts{hashes: make(map[string]string)}
}

func (s *memAccounts) HashFor(_ context.Context, identity string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hashes[identity], nil
}

func (s *memAccounts) IdentityExists(_ context.Context, identity string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hashes[identity]
	return ok, nil
}

func (s *memAccounts) CreateAccount(_ context.Context, identity, _ string, secretHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[identity]; ok {
		return fmt.Errorf("duplicate account %s", identity)
	}
	s.hashes[identity] = secretHash
	return nil
}

func newRegisterEngine(t *testing.T, cfg Config, sink AuditSink) (*Engine, *memAccounts, *captureNotifier, func()) {
	t.Helper()

	accounts := newMemAccounts()
	verifier, err := NewPasswordVerifier(cfg.Password, accounts.HashFor)
	if err != nil {
		t.Fatalf("NewPasswordVerifier failed: %v", err)
	}

	opts := []engineOption{withAccounts(accounts), withVerifier(verifier)}
	if sink != nil {
		opts = append(opts, withSink(sink))
	}
	engine, notifier, _, done := newTestEngine(t, cfg, opts...)
	return engine, accounts, notifier, done
}

func TestRegisterAndLogin(t *testing.T) {
	cfg := testConfig()
	sink := NewChannelSink(64)
	engine, accounts, notifier, done := newRegisterEngine(t, cfg, sink)
	defer done()

	ctx := context.Background()
	err := engine.Register(ctx, RegisterRequest{
		Identity: "Bob@Example.com",
		Name:     "Bob",
		Secret:   "Str0ng-Passw0rd!",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	event := waitEvent(t, sink, "USER_REGISTERED")
	if event.Identity != "bob@example.com" {
		t.Fatalf("expected normalized identity on event, got %q", event.Identity)
	}

	// Stored hash is Argon2id PHC, never plaintext.
	hash, _ := accounts.HashFor(ctx, "bob@example.com")
	if hash == "" || hash == "Str0ng-Passw0rd!" {
		t.Fatalf("expected hashed secret in store, got %q", hash)
	}

	waitNotice(t, notifier, "email") // welcome message

	// The new account can log in through the bundled password verifier.
	token, answer := solvedCaptcha(t, engine)
	result, err := engine.Login(ctx, LoginRequest{
		Identity:      "bob@example.com",
		Secret:        "Str0ng-Passw0rd!",
		CaptchaToken:  token,
		CaptchaAnswer: answer,
	})
	if err != nil {
		t.Fatalf("Login after Register failed: %v", err)
	}
	if !result.SecondFactorRequired {
		t.Fatal("expected second factor to be required")
	}
}

func TestRegisterDuplicateIdentity(t *testing.T) {
	cfg := testConfig()
	sink := NewChannelSink(64)
	engine, _, _, done := newRegisterEngine(t, cfg, sink)
	defer done()

	ctx := context.Background()
	req := RegisterRequest{Identity: "bob@example.com", Secret: "Str0ng-Passw0rd!"}
	if err := engine.Register(ctx, req); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := engine.Register(ctx, req); !errors.Is(err, ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists, got %v", err)
	}

	for {
		event := waitEvent(t, sink, "FAILED_REGISTRATION")
		if event.Error == "duplicate" {
			break
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	cfg := testConfig()
	engine, _, _, done := newRegisterEngine(t, cfg, nil)
	defer done()

	ctx := context.Background()

	if err := engine.Register(ctx, RegisterRequest{Identity: "not-an-email", Secret: "Str0ng-Passw0rd!"}); !errors.Is(err, ErrIdentityInvalid) {
		t.Fatalf("expected ErrIdentityInvalid, got %v", err)
	}

	weak := []string{
		"short1!",        // too short
		"alllowercase1!", // no uppercase
		"NoDigitsHere!",  // no digit
		"NoSpecials123",  // no special character
		"Password123!",   // denylisted
	}
	for _, secret := range weak {
		if err := engine.Register(ctx, RegisterRequest{Identity: "bob@example.com", Secret: secret}); !errors.Is(err, ErrPasswordPolicy) {
			t.Fatalf("expected ErrPasswordPolicy for %q, got %v", secret, err)
		}
	}
}

func TestRegisterWithoutAccountStore(t *testing.T) {
	cfg := testConfig()
	engine, _, _, done := newTestEngine(t, cfg)
	defer done()

	err := engine.Register(context.Background(), RegisterRequest{
		Identity: "bob@example.com",
		Secret:   "Str0ng-Passw0rd!",
	})
	if !errors.Is(err, ErrRegistrationDisabled) {
		t.Fatalf("expected ErrRegistrationDisabled, got %v", err)
	}
}
