package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/oops"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/portfolio-api/shared/security"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrMissingAsset          = errors.New("required file is missing")
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token has expired")
	ErrInvalidOrExpiredToken = errors.New("password reset token is invalid or has expired")
	ErrUploadFailed          = errors.New("failed to upload file")
	ErrDeliveryFailed        = errors.New("failed to deliver email")
	ErrUnavailable           = errors.New("service temporarily unavailable")
)

var (
	// ErrPasswordMismatch is returned when a password and its confirmation differ. It matches ErrValidation.
	ErrPasswordMismatch = fmt.Errorf("%w: passwords do not match", ErrValidation)

	// ErrWeakPassword is returned when a new password fails the strength policy.
	ErrWeakPassword = security.ErrWeakPassword
)

// ErrTokenReuseDetected is returned when a refresh token with a valid signature is no longer
// the stored one. It matches ErrUnauthorized as well.
var ErrTokenReuseDetected = fmt.Errorf("%w: refresh token reuse detected", ErrUnauthorized)

// wrapInternal attaches operation context to an unexpected collaborator failure.
// Timeouts and store outages also match ErrUnavailable.
func wrapInternal(code, operation string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, repository.ErrStoreUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return oops.
		In("auth-service").
		Code(code).
		With("operation", operation).
		Wrap(err)
}
