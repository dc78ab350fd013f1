package security

import (
	"errors"
	"fmt"

	passwordvalidator "github.com/wagslane/go-password-validator"
)

// MinPasswordLength is the shortest password accepted regardless of entropy.
const MinPasswordLength = 8

// ErrWeakPassword is returned when a password fails the strength policy.
var ErrWeakPassword = errors.New("password is not strong enough")

// ValidatePasswordStrength enforces the minimum length and entropy policy.
func ValidatePasswordStrength(password string, minEntropyBits float64) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, MinPasswordLength)
	}

	if err := passwordvalidator.Validate(password, minEntropyBits); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	return nil
}
