package authgate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// commonPasswords is a small denylist of passwords that pass the structural
// policy but are still trivially guessable.
var commonPasswords = map[string]struct{}{
	"password1!":   {},
	"password123!": {},
	"qwerty123!":   {},
	"admin123!":    {},
	"welcome1!":    {},
	"letmein123!":  {},
}

const maxIdentityLength = 254

// validateIdentity checks that identity is a plausible email address. The
// check is deliberately loose; deliverability is the notifier's problem.
func validateIdentity(identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" || len(identity) > maxIdentityLength {
		return ErrIdentityInvalid
	}
	if !emailPattern.MatchString(identity) {
		return ErrIdentityInvalid
	}
	return nil
}

// normalizeIdentity canonicalizes an identity for storage and keying.
func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// validatePassword enforces the registration password policy: at least 8
// characters with an uppercase letter, a digit, and a special character, and
// not on the common-password denylist.
func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: minimum 8 characters", ErrPasswordPolicy)
	}
	if len(password) > 128 {
		return fmt.Errorf("%w: maximum 128 characters", ErrPasswordPolicy)
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("%w: uppercase letter required", ErrPasswordPolicy)
	}
	if !hasDigit {
		return fmt.Errorf("%w: digit required", ErrPasswordPolicy)
	}
	if !hasSpecial {
		return fmt.Errorf("%w: special character required", ErrPasswordPolicy)
	}

	if _, banned := commonPasswords[strings.ToLower(password)]; banned {
		return fmt.Errorf("%w: password too common", ErrPasswordPolicy)
	}

	return nil
}

// sanitizeDetail strips control characters and truncates free-form text
// before it is embedded in an audit event.
func sanitizeDetail(detail string) string {
	detail = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, detail)
	if len(detail) > 512 {
		detail = detail[:512]
	}
	return detail
}
