package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/repository"
	authtypes "github.com/vasapolrittideah/portfolio-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/portfolio-api/shared/security"
	"github.com/vasapolrittideah/portfolio-api/shared/storage"
)

// AuthUsecase defines the session lifecycle: register, login, refresh and logout.
type AuthUsecase interface {
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)
	Login(ctx context.Context, params LoginParams) (*AuthResult, error)

	// Refresh exchanges the presented refresh token for a new pair. The presented token stops working.
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)

	// Logout revokes the stored refresh token. Logging out twice is not an error.
	Logout(ctx context.Context, userID string) error
}

// AuthResult is the authenticated user and the token pair issued for it.
type AuthResult struct {
	User   *model.User
	Tokens *authtypes.Tokens
}

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Name         string
	Email        string
	Phone        string
	AboutMe      string
	Password     string
	PortfolioURL string
	GithubURL    string
	LinkedInURL  string
	InstagramURL string
	FacebookURL  string
	TwitterURL   string
	Avatar       *Upload
	Resume       *Upload
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email    string
	Password string
}

// cleanupTimeout bounds best-effort compensation that runs after the request context may be gone.
const cleanupTimeout = 5 * time.Second

type authUsecase struct {
	userRepo       repository.UserRepository
	hasher         security.PasswordHasher
	issuer         *TokenIssuer
	objectStore    ObjectStore
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthUsecase creates a new instance of AuthUsecase.
func NewAuthUsecase(
	userRepo repository.UserRepository,
	hasher security.PasswordHasher,
	issuer *TokenIssuer,
	objectStore ObjectStore,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) AuthUsecase {
	return &authUsecase{
		userRepo:       userRepo,
		hasher:         hasher,
		issuer:         issuer,
		objectStore:    objectStore,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	params.normalize()

	if err := params.validate(); err != nil {
		return nil, err
	}

	if err := validatePassword(params.Password, u.authServiceCfg.PasswordReset.MinEntropyBits); err != nil {
		return nil, err
	}

	if params.Avatar.empty() {
		return nil, fmt.Errorf("%w: avatar", ErrMissingAsset)
	}
	if params.Resume.empty() {
		return nil, fmt.Errorf("%w: resume", ErrMissingAsset)
	}

	_, err := u.userRepo.GetUserByEmailOrPhone(ctx, params.Email, params.Phone)
	switch {
	case err == nil:
		return nil, ErrUserAlreadyExists
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, wrapInternal("REGISTER_LOOKUP_FAILED", "find user by email or phone", err)
	}

	passwordHash, err := u.hasher.Hash(params.Password)
	if err != nil {
		return nil, wrapInternal("REGISTER_HASH_FAILED", "hash password", err)
	}

	avatar, err := uploadAsset(ctx, u.objectStore, params.Avatar, avatarFolder)
	if err != nil {
		return nil, err
	}

	resume, err := uploadAsset(ctx, u.objectStore, params.Resume, resumeFolder)
	if err != nil {
		discardAssets(ctx, u.objectStore, u.logger, avatar)
		return nil, err
	}

	user := &model.User{
		ID:           bson.NewObjectID(),
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
		AboutMe:      params.AboutMe,
		PasswordHash: passwordHash,
		PortfolioURL: params.PortfolioURL,
		GithubURL:    params.GithubURL,
		LinkedInURL:  params.LinkedInURL,
		InstagramURL: params.InstagramURL,
		FacebookURL:  params.FacebookURL,
		TwitterURL:   params.TwitterURL,
		Avatar:       *avatar,
		Resume:       *resume,
	}

	tokens, err := u.issuer.IssuePair(user)
	if err != nil {
		discardAssets(ctx, u.objectStore, u.logger, avatar, resume)
		return nil, wrapInternal("REGISTER_SIGN_FAILED", "issue tokens", err)
	}
	user.RefreshTokenHash = security.HashToken(tokens.RefreshToken)

	created, err := u.userRepo.CreateUser(ctx, user)
	if err != nil {
		discardAssets(ctx, u.objectStore, u.logger, avatar, resume)

		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}

		return nil, wrapInternal("REGISTER_CREATE_FAILED", "create user", err)
	}

	return &AuthResult{User: created, Tokens: tokens}, nil
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	email := normalizeEmail(params.Email)
	if email == "" || params.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Spend the same hashing work as a real check so response time does not reveal the miss.
			_, _ = u.hasher.Verify(params.Password, u.timingHash())
			return nil, ErrInvalidCredentials
		}

		return nil, wrapInternal("LOGIN_LOOKUP_FAILED", "find user by email", err)
	}

	if ok, err := u.hasher.Verify(params.Password, user.PasswordHash); err != nil {
		return nil, wrapInternal("LOGIN_VERIFY_FAILED", "verify password", err)
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	tokens, err := u.issuer.IssuePair(user)
	if err != nil {
		return nil, wrapInternal("LOGIN_SIGN_FAILED", "issue tokens", err)
	}

	if err := u.userRepo.SetRefreshToken(ctx, user.ID.Hex(), security.HashToken(tokens.RefreshToken)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, wrapInternal("LOGIN_STORE_FAILED", "store refresh token", err)
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (u *authUsecase) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}

	claims, err := u.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}

		return nil, wrapInternal("REFRESH_LOOKUP_FAILED", "find user by id", err)
	}

	if !security.TokenMatchesHash(refreshToken, user.RefreshTokenHash) {
		return nil, ErrTokenReuseDetected
	}

	tokens, err := u.issuer.IssuePair(user)
	if err != nil {
		return nil, wrapInternal("REFRESH_SIGN_FAILED", "issue tokens", err)
	}

	err = u.userRepo.RotateRefreshToken(
		ctx,
		user.ID.Hex(),
		user.RefreshTokenHash,
		security.HashToken(tokens.RefreshToken),
	)
	switch {
	case errors.Is(err, repository.ErrPreconditionFailed):
		return nil, ErrTokenReuseDetected
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, ErrUnauthorized
	case err != nil:
		return nil, wrapInternal("REFRESH_STORE_FAILED", "rotate refresh token", err)
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (u *authUsecase) Logout(ctx context.Context, userID string) error {
	err := u.userRepo.ClearRefreshToken(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return wrapInternal("LOGOUT_STORE_FAILED", "clear refresh token", err)
	}

	return nil
}

func (u *authUsecase) timingHash() string {
	u.dummyOnce.Do(func() {
		hash, err := u.hasher.Hash("timing-equalization-password")
		if err != nil {
			u.logger.Error().Err(err).Msg("failed to compute timing hash")
			return
		}
		u.dummyHash = hash
	})

	return u.dummyHash
}

func (p *RegisterParams) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = normalizeEmail(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.AboutMe = strings.TrimSpace(p.AboutMe)
	p.PortfolioURL = strings.TrimSpace(p.PortfolioURL)
	p.GithubURL = strings.TrimSpace(p.GithubURL)
	p.LinkedInURL = strings.TrimSpace(p.LinkedInURL)
	p.InstagramURL = strings.TrimSpace(p.InstagramURL)
	p.FacebookURL = strings.TrimSpace(p.FacebookURL)
	p.TwitterURL = strings.TrimSpace(p.TwitterURL)
}

func (p *RegisterParams) validate() error {
	return requireFields(map[string]string{
		"name":         p.Name,
		"email":        p.Email,
		"phone":        p.Phone,
		"aboutMe":      p.AboutMe,
		"password":     strings.TrimSpace(p.Password),
		"portfolioURL": p.PortfolioURL,
	})
}

// requireFields fails with ErrValidation naming every blank field.
func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if value == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	slices.Sort(missing)

	return fmt.Errorf("%w: %s required", ErrValidation, strings.Join(missing, ", "))
}

func validatePassword(password string, minEntropyBits float64) error {
	return security.ValidatePasswordStrength(password, minEntropyBits)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func uploadAsset(ctx context.Context, store ObjectStore, upload *Upload, folder string) (*model.Asset, error) {
	object, err := store.Upload(ctx, upload.Data, upload.ContentType, folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, wrapInternal("UPLOAD_FAILED", "upload "+folder, err))
	}

	return assetFromObject(object), nil
}

func assetFromObject(object *storage.Object) *model.Asset {
	return &model.Asset{URL: object.URL, PublicID: object.PublicID}
}

// discardAssets deletes uploads that will not be referenced by any user record.
func discardAssets(ctx context.Context, store ObjectStore, logger *zerolog.Logger, assets ...*model.Asset) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, asset := range assets {
		if asset == nil || asset.PublicID == "" {
			continue
		}

		if err := store.Delete(ctx, asset.PublicID); err != nil {
			logger.Warn().Err(err).Str("public_id", asset.PublicID).Msg("failed to delete unused asset")
		}
	}
}
