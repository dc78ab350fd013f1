package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/model"
	authtypes "github.com/vasapolrittideah/portfolio-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/portfolio-api/shared/auth"
)

// TokenIssuer mints and verifies access and refresh tokens.
// Each token class has its own signing secret.
type TokenIssuer struct {
	jwtAuth *auth.JWTAuthenticator
	cfg     config.TokenConfig
	now     func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. now should be the same clock the authenticator validates with.
func NewTokenIssuer(jwtAuth *auth.JWTAuthenticator, cfg config.TokenConfig, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}

	return &TokenIssuer{
		jwtAuth: jwtAuth,
		cfg:     cfg,
		now:     now,
	}
}

// Now returns the issuer's current time.
func (i *TokenIssuer) Now() time.Time {
	return i.now()
}

// IssuePair mints a fresh access and refresh token for the user.
func (i *TokenIssuer) IssuePair(user *model.User) (*authtypes.Tokens, error) {
	now := i.now()

	accessClaims := &auth.AccessClaims{
		Email:            user.Email,
		Name:             user.Name,
		RegisteredClaims: i.registeredClaims(user.ID.Hex(), now, i.cfg.AccessTokenExpiresIn),
	}
	accessToken, err := i.jwtAuth.GenerateToken(accessClaims, i.cfg.AccessTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshClaims := &auth.RefreshClaims{
		RegisteredClaims: i.registeredClaims(user.ID.Hex(), now, i.cfg.RefreshTokenExpiresIn),
	}
	refreshToken, err := i.jwtAuth.GenerateToken(refreshClaims, i.cfg.RefreshTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &authtypes.Tokens{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshTokenExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// VerifyRefresh checks signature and expiry only. Whether the token is still the
// stored one is decided by the caller.
func (i *TokenIssuer) VerifyRefresh(token string) (*auth.RefreshClaims, error) {
	claims := &auth.RefreshClaims{}
	if err := i.verify(token, i.cfg.RefreshTokenSecret, claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// VerifyAccess checks an access token's signature and expiry.
func (i *TokenIssuer) VerifyAccess(token string) (*auth.AccessClaims, error) {
	claims := &auth.AccessClaims{}
	if err := i.verify(token, i.cfg.AccessTokenSecret, claims); err != nil {
		return nil, err
	}

	return claims, nil
}

func (i *TokenIssuer) verify(token, secret string, claims jwt.Claims) error {
	if _, err := i.jwtAuth.ValidateTokenWithClaims(token, secret, claims); err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}

		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return nil
}

func (i *TokenIssuer) registeredClaims(subject string, now time.Time, expiresIn time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    i.jwtAuth.Issuer(),
		Audience:  jwt.ClaimStrings{i.jwtAuth.Audience()},
	}
}
