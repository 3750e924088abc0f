package authgate

import (
	"context"

	"github.com/tsellem/authgate/password"
)

// HashLookup returns the stored password hash for identity in PHC format, or
// an empty string when the identity is unknown. Backend failures are returned
// as errors; an unknown identity is not an error.
type HashLookup func(ctx context.Context, identity string) (string, error)

// NewPasswordVerifier builds a [CredentialVerifier] from a hash lookup and the
// bundled Argon2id verifier. Unknown identities and wrong passwords are both
// reported as a plain false so callers cannot tell them apart by timing the
// error path.
func NewPasswordVerifier(cfg PasswordConfig, lookup HashLookup) (CredentialVerifier, error) {
	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	return CredentialVerifierFunc(func(ctx context.Context, identity, secret string) (bool, error) {
		storedHash, err := lookup(ctx, identity)
		if err != nil {
			return false, err
		}
		if storedHash == "" {
			return false, nil
		}
		ok, err := hasher.Verify(secret, storedHash)
		if err != nil {
			return false, nil
		}
		return ok, nil
	}), nil
}
