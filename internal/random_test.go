package internal

import (
	"strings"
	"testing"
)

func TestNewOTPLengthAndCharset(t *testing.T) {
	for _, digits := range []int{6, 8, 10} {
		otp, err := NewOTP(digits)
		if err != nil {
			t.Fatalf("NewOTP(%d) failed: %v", digits, err)
		}
		if len(otp) != digits {
			t.Fatalf("expected %d digits, got %q", digits, otp)
		}
		if strings.Trim(otp, "0123456789") != "" {
			t.Fatalf("non-digit character in %q", otp)
		}
	}
}

func TestNewOTPRejectsInvalidLengths(t *testing.T) {
	for _, digits := range []int{0, 5, 11, -1} {
		if _, err := NewOTP(digits); err == nil {
			t.Fatalf("expected error for %d digits", digits)
		}
	}
}

func TestRandomIntBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		n, err := RandomInt(3)
		if err != nil {
			t.Fatalf("RandomInt failed: %v", err)
		}
		if n < 0 || n >= 3 {
			t.Fatalf("out-of-range value %d", n)
		}
	}

	if _, err := RandomInt(0); err == nil {
		t.Fatal("expected error for zero bound")
	}
}

func TestHashAnswerDeterministic(t *testing.T) {
	a := HashAnswer("42")
	b := HashAnswer("42")
	c := HashAnswer("43")

	if a != b {
		t.Fatal("same input must hash identically")
	}
	if a == c {
		t.Fatal("different inputs must not collide")
	}
}
