package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// NewOTP returns a numeric one-time code of the requested length, drawn digit
// by digit from crypto/rand. Predictable codes are a direct account-takeover
// vector, so math/rand is never acceptable here.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// RandomInt returns a uniform random integer in [0, max) from crypto/rand.
func RandomInt(max int) (int, error) {
	if max <= 0 {
		return 0, errors.New("invalid random bound")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

// HashAnswer hashes a normalized challenge answer or code for storage and
// constant-time comparison.
func HashAnswer(answer string) [32]byte {
	return sha256.Sum256([]byte(answer))
}
