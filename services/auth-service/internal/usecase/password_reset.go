package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/portfolio-api/shared/security"
)

// PasswordResetUsecase defines the business logic for password reset operations.
type PasswordResetUsecase interface {
	// RequestPasswordReset stores a hashed one-time token for the user and emails the raw token as a link.
	RequestPasswordReset(ctx context.Context, email string) error

	// ValidatePasswordResetToken reports whether the raw token is still redeemable.
	ValidatePasswordResetToken(ctx context.Context, token string) error

	// ResetPassword consumes the raw token, replaces the password and signs the user in.
	ResetPassword(ctx context.Context, params ResetPasswordParams) (*AuthResult, error)
}

// ResetPasswordParams defines the parameters for completing a password reset.
type ResetPasswordParams struct {
	Token           string
	Password        string
	ConfirmPassword string
}

type passwordResetUsecase struct {
	userRepo       repository.UserRepository
	hasher         security.PasswordHasher
	issuer         *TokenIssuer
	notifier       Notifier
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	hasher security.PasswordHasher,
	issuer *TokenIssuer,
	notifier Notifier,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		userRepo:       userRepo,
		hasher:         hasher,
		issuer:         issuer,
		notifier:       notifier,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email required", ErrValidation)
	}

	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			if u.authServiceCfg.PasswordReset.RevealUnknownEmail {
				return ErrUserNotFound
			}

			return nil
		}

		return wrapInternal("RESET_LOOKUP_FAILED", "find user by email", err)
	}

	token, digest, err := security.GenerateResetToken()
	if err != nil {
		return wrapInternal("RESET_TOKEN_FAILED", "generate reset token", err)
	}

	expiresIn := u.authServiceCfg.PasswordReset.TokenExpiresIn
	expiresAt := u.issuer.Now().Add(expiresIn)

	if err := u.userRepo.SetPasswordResetToken(ctx, user.ID.Hex(), digest, expiresAt); err != nil {
		return wrapInternal("RESET_STORE_FAILED", "store reset token", err)
	}

	resetLink := fmt.Sprintf("%s/password/reset/%s", strings.TrimRight(u.authServiceCfg.DashboardURL, "/"), token)
	htmlBody := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>We received a request to reset the password for your account.</p>
		<p>If you made this request, please click the link below to create a new password:</p>

		<p><a href="%s">%s</a></p>

		<p>This link will expire in %s.</p>
		<p>If you did not request a password reset, you can safely ignore this email.</p>
	`, html.EscapeString(user.Name), resetLink, resetLink, expiresIn)

	if err := u.notifier.SendEmail(ctx, user.Email, "Password Reset Request", htmlBody); err != nil {
		u.revokeResetToken(ctx, user.ID.Hex())
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, wrapInternal("RESET_DELIVERY_FAILED", "send reset email", err))
	}

	return nil
}

func (u *passwordResetUsecase) ValidatePasswordResetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	_, err := u.userRepo.GetUserByResetTokenHash(ctx, security.HashToken(token), u.issuer.Now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidOrExpiredToken
		}

		return wrapInternal("RESET_VALIDATE_FAILED", "find user by reset token", err)
	}

	return nil
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, params ResetPasswordParams) (*AuthResult, error) {
	if err := requireFields(map[string]string{
		"password":        strings.TrimSpace(params.Password),
		"confirmPassword": strings.TrimSpace(params.ConfirmPassword),
	}); err != nil {
		return nil, err
	}

	if params.Password != params.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	token := strings.TrimSpace(params.Token)
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	if err := validatePassword(params.Password, u.authServiceCfg.PasswordReset.MinEntropyBits); err != nil {
		return nil, err
	}

	now := u.issuer.Now()
	tokenHash := security.HashToken(token)

	user, err := u.userRepo.GetUserByResetTokenHash(ctx, tokenHash, now)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}

		return nil, wrapInternal("RESET_LOOKUP_FAILED", "find user by reset token", err)
	}

	passwordHash, err := u.hasher.Hash(params.Password)
	if err != nil {
		return nil, wrapInternal("RESET_HASH_FAILED", "hash password", err)
	}

	tokens, err := u.issuer.IssuePair(user)
	if err != nil {
		return nil, wrapInternal("RESET_SIGN_FAILED", "issue tokens", err)
	}

	updated, err := u.userRepo.CompletePasswordReset(ctx, user.ID.Hex(), repository.CompleteResetParams{
		TokenHash:        tokenHash,
		Now:              now,
		PasswordHash:     passwordHash,
		RefreshTokenHash: security.HashToken(tokens.RefreshToken),
	})
	if err != nil {
		if errors.Is(err, repository.ErrPreconditionFailed) || errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}

		return nil, wrapInternal("RESET_STORE_FAILED", "complete password reset", err)
	}

	return &AuthResult{User: updated, Tokens: tokens}, nil
}

// revokeResetToken clears an undeliverable reset token, even when the request context is already done.
func (u *passwordResetUsecase) revokeResetToken(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := u.userRepo.ClearPasswordResetToken(ctx, userID); err != nil {
		u.logger.Error().Err(err).Str("user_id", userID).Msg("failed to clear undelivered password reset token")
	}
}
