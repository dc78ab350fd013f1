package security

import (
	"errors"

	"github.com/matthewhartstonge/argon2"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordHasher provides one-way password hashing and verification.
type PasswordHasher interface {
	// Hash produces an encoded argon2id hash with a random per-call salt.
	Hash(password string) (string, error)

	// Verify reports whether password produced the encoded hash.
	// Returns (false, nil) on mismatch and an error only when the hash cannot be decoded.
	Verify(password, hash string) (bool, error)
}

// HasherOption tunes the argon2 work factor.
type HasherOption func(*argon2.Config)

// WithCost overrides the time and memory (KiB) cost parameters.
func WithCost(timeCost, memoryCost uint32) HasherOption {
	return func(c *argon2.Config) {
		c.TimeCost = timeCost
		c.MemoryCost = memoryCost
	}
}

type argon2Hasher struct {
	config argon2.Config
}

// NewArgon2Hasher creates a PasswordHasher backed by argon2id.
func NewArgon2Hasher(opts ...HasherOption) PasswordHasher {
	cfg := argon2.DefaultConfig()
	cfg.Mode = argon2.ModeArgon2id

	for _, opt := range opts {
		opt(&cfg)
	}

	return &argon2Hasher{config: cfg}
}

func (h *argon2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	encoded, err := h.config.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

func (h *argon2Hasher) Verify(password, hash string) (bool, error) {
	return argon2.VerifyEncoded([]byte(password), []byte(hash))
}
