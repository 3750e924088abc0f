package authgate

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tsellem/authgate/internal"
)

const captchaUsedKeyPrefix = "acu"

var (
	errCaptchaBackend = errors.New("captcha backend unavailable")
)

// captchaManager generates human-solvable challenges and seals them into
// HMAC-signed tokens. No challenge state is kept server-side at generation
// time: the token binds the challenge ID, the answer hash, and the expiry,
// so the client cannot tamper with any of them without breaking the
// signature.
type captchaManager struct {
	signingKey []byte
	ttl        time.Duration
}

type captchaClaims struct {
	AnswerHash string `json:"ah"`
	jwt.RegisteredClaims
}

func newCaptchaManager(cfg CaptchaConfig) *captchaManager {
	return &captchaManager{
		signingKey: cfg.SigningKey,
		ttl:        cfg.TTL,
	}
}

const captchaLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Generate produces one of three challenge families, selected uniformly:
// digit addition, integer reversal, or letter counting.
func (m *captchaManager) Generate() (Challenge, error) {
	family, err := internal.RandomInt(3)
	if err != nil {
		return Challenge{}, err
	}

	var question, answer string
	switch family {
	case 0:
		a, err := internal.RandomInt(10)
		if err != nil {
			return Challenge{}, err
		}
		b, err := internal.RandomInt(10)
		if err != nil {
			return Challenge{}, err
		}
		question = fmt.Sprintf("What is %d + %d?", a, b)
		answer = fmt.Sprintf("%d", a+b)
	case 1:
		n, err := internal.RandomInt(1000)
		if err != nil {
			return Challenge{}, err
		}
		question = fmt.Sprintf("Reverse the number: %d", n)
		answer = reverseString(fmt.Sprintf("%d", n))
	default:
		idx, err := internal.RandomInt(len(captchaLetters))
		if err != nil {
			return Challenge{}, err
		}
		letter := captchaLetters[idx]
		var b strings.Builder
		for i := 0; i < 5; i++ {
			j, err := internal.RandomInt(len(captchaLetters))
			if err != nil {
				return Challenge{}, err
			}
			b.WriteByte(captchaLetters[j])
		}
		// The chosen letter is appended once so the count is never zero.
		text := b.String() + string(letter)
		question = fmt.Sprintf("How many %c's are in: %s?", letter, text)
		answer = fmt.Sprintf("%d", strings.Count(text, string(letter)))
	}

	now := time.Now()
	token, err := m.seal(answer, now)
	if err != nil {
		return Challenge{}, err
	}

	return Challenge{
		Question: question,
		Token:    token,
		IssuedAt: now,
	}, nil
}

func (m *captchaManager) seal(answer string, now time.Time) (string, error) {
	claims := captchaClaims{
		AnswerHash: hashAnswerHex(answer),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
}

// Check validates the sealed token and the supplied answer. It returns the
// challenge ID and the token's remaining validity so the caller can retire
// the challenge; checkErr is nil only for a correct, unexpired answer.
// Answers are compared case-insensitively after trimming whitespace.
func (m *captchaManager) Check(token, answer string) (challengeID string, remaining time.Duration, checkErr error) {
	if token == "" {
		return "", 0, ErrCaptchaInvalid
	}

	var claims captchaClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", 0, ErrCaptchaExpired
		}
		return "", 0, ErrCaptchaInvalid
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return "", 0, ErrCaptchaInvalid
	}

	remaining = time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return claims.ID, 0, ErrCaptchaExpired
	}

	expected, err := hex.DecodeString(claims.AnswerHash)
	if err != nil || len(expected) != 32 {
		return claims.ID, remaining, ErrCaptchaInvalid
	}
	provided := internal.HashAnswer(normalizeAnswer(answer))
	if subtle.ConstantTimeCompare(provided[:], expected) != 1 {
		return claims.ID, remaining, ErrCaptchaInvalid
	}

	return claims.ID, remaining, nil
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

func hashAnswerHex(answer string) string {
	sum := internal.HashAnswer(normalizeAnswer(answer))
	return hex.EncodeToString(sum[:])
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// captchaStore retires challenge IDs. SETNX gives exactly-once consumption:
// whichever verify call writes the tombstone first owns the challenge, every
// later call sees a replay.
type captchaStore struct {
	redis redis.UniversalClient
}

func newCaptchaStore(redisClient redis.UniversalClient) *captchaStore {
	return &captchaStore{redis: redisClient}
}

func (s *captchaStore) key(challengeID string) string {
	return captchaUsedKeyPrefix + ":" + challengeID
}

// Retire marks a challenge consumed. Returns false when the challenge was
// already retired. The tombstone only needs to outlive the token.
func (s *captchaStore) Retire(ctx context.Context, challengeID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	first, err := s.redis.SetNX(ctx, s.key(challengeID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errCaptchaBackend, err)
	}
	return first, nil
}
