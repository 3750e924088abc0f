package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// NewCaptcha generates a fresh challenge. The returned token is the only
// state the client needs to carry back; nothing is stored server-side until
// verification consumes the challenge.
func (e *Engine) NewCaptcha(ctx context.Context) (Challenge, error) {
	if e == nil || e.captcha == nil {
		return Challenge{}, ErrEngineNotReady
	}
	_ = ctx

	challenge, err := e.captcha.Generate()
	if err != nil {
		return Challenge{}, err
	}

	e.metricInc(MetricCaptchaIssued)
	return challenge, nil
}

// VerifyCaptcha checks answer against the sealed token and consumes the
// challenge. Every verification attempt against a structurally valid,
// unexpired token retires it, right or wrong: a challenge is worth exactly
// one guess.
func (e *Engine) VerifyCaptcha(ctx context.Context, token, answer string) error {
	if e == nil || e.captcha == nil {
		return ErrEngineNotReady
	}

	err := e.consumeChallenge(ctx, token, answer)
	if err != nil {
		e.metricInc(MetricCaptchaFailure)
	}
	return err
}

func (e *Engine) consumeChallenge(ctx context.Context, token, answer string) error {
	challengeID, remaining, checkErr := e.captcha.Check(token, answer)
	if challengeID == "" || errors.Is(checkErr, ErrCaptchaExpired) {
		// Nothing to retire: an expired or forged token can never be replayed.
		return checkErr
	}

	// Retire before reporting the answer outcome so a wrong guess also spends
	// the challenge. The tombstone outlives the token by a minute of slack.
	first, err := e.captchaUsed.Retire(ctx, challengeID, remaining+time.Minute)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !first {
		e.metricInc(MetricCaptchaReplay)
		e.emitAudit(ctx, eventSuspiciousActivity, false, "", ErrCaptchaInvalid, func() map[string]string {
			return map[string]string{
				"reason":       "captcha replay",
				"challenge_id": challengeID,
			}
		})
		return ErrCaptchaInvalid
	}

	return checkErr
}
