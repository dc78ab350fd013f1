package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/portfolio-api/shared/security"
)

// ProfileUsecase covers reading and editing the signed-in user's account.
type ProfileUsecase interface {
	GetMe(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*model.User, error)

	// ChangePassword replaces the password and rotates the refresh token.
	ChangePassword(ctx context.Context, userID string, params ChangePasswordParams) (*AuthResult, error)

	// GetPortfolioUser returns the public profile of the configured portfolio owner.
	GetPortfolioUser(ctx context.Context) (*model.User, error)
}

// UpdateProfileParams defines the optional profile changes. Nil fields are left untouched.
type UpdateProfileParams struct {
	Name         *string
	Email        *string
	Phone        *string
	AboutMe      *string
	PortfolioURL *string
	GithubURL    *string
	LinkedInURL  *string
	InstagramURL *string
	FacebookURL  *string
	TwitterURL   *string
	Avatar       *Upload
	Resume       *Upload
}

// ChangePasswordParams defines the parameters for changing a password.
type ChangePasswordParams struct {
	CurrentPassword    string
	NewPassword        string
	ConfirmNewPassword string
}

type profileUsecase struct {
	userRepo       repository.UserRepository
	hasher         security.PasswordHasher
	issuer         *TokenIssuer
	objectStore    ObjectStore
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
}

// NewProfileUsecase creates a new instance of ProfileUsecase.
func NewProfileUsecase(
	userRepo repository.UserRepository,
	hasher security.PasswordHasher,
	issuer *TokenIssuer,
	objectStore ObjectStore,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) ProfileUsecase {
	return &profileUsecase{
		userRepo:       userRepo,
		hasher:         hasher,
		issuer:         issuer,
		objectStore:    objectStore,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func (u *profileUsecase) GetMe(ctx context.Context, userID string) (*model.User, error) {
	return u.getUser(ctx, userID)
}

func (u *profileUsecase) GetPortfolioUser(ctx context.Context) (*model.User, error) {
	if u.authServiceCfg.PortfolioUserID == "" {
		return nil, ErrUserNotFound
	}

	return u.getUser(ctx, u.authServiceCfg.PortfolioUserID)
}

func (u *profileUsecase) UpdateProfile(
	ctx context.Context,
	userID string,
	params UpdateProfileParams,
) (*model.User, error) {
	update, err := params.toRepositoryParams()
	if err != nil {
		return nil, err
	}

	current, err := u.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var uploaded []*model.Asset
	if !params.Avatar.empty() {
		avatar, err := uploadAsset(ctx, u.objectStore, params.Avatar, avatarFolder)
		if err != nil {
			return nil, err
		}
		update.Avatar = avatar
		uploaded = append(uploaded, avatar)
	}

	if !params.Resume.empty() {
		resume, err := uploadAsset(ctx, u.objectStore, params.Resume, resumeFolder)
		if err != nil {
			discardAssets(ctx, u.objectStore, u.logger, uploaded...)
			return nil, err
		}
		update.Resume = resume
		uploaded = append(uploaded, resume)
	}

	updated, err := u.userRepo.UpdateUser(ctx, userID, update)
	if err != nil {
		discardAssets(ctx, u.objectStore, u.logger, uploaded...)

		switch {
		case errors.Is(err, repository.ErrNoFieldsToUpdate):
			return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
		case errors.Is(err, repository.ErrDuplicateUser):
			return nil, ErrUserAlreadyExists
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, wrapInternal("PROFILE_UPDATE_FAILED", "update user", err)
		}
	}

	// Previous assets are no longer referenced once the record points at the new ones.
	var replaced []*model.Asset
	if update.Avatar != nil {
		replaced = append(replaced, &current.Avatar)
	}
	if update.Resume != nil {
		replaced = append(replaced, &current.Resume)
	}
	discardAssets(ctx, u.objectStore, u.logger, replaced...)

	return updated, nil
}

func (u *profileUsecase) ChangePassword(
	ctx context.Context,
	userID string,
	params ChangePasswordParams,
) (*AuthResult, error) {
	if err := requireFields(map[string]string{
		"currentPassword":    strings.TrimSpace(params.CurrentPassword),
		"newPassword":        strings.TrimSpace(params.NewPassword),
		"confirmNewPassword": strings.TrimSpace(params.ConfirmNewPassword),
	}); err != nil {
		return nil, err
	}

	if params.NewPassword != params.ConfirmNewPassword {
		return nil, ErrPasswordMismatch
	}

	if params.NewPassword == params.CurrentPassword {
		return nil, fmt.Errorf("%w: new password must differ from the current one", ErrValidation)
	}

	if err := validatePassword(params.NewPassword, u.authServiceCfg.PasswordReset.MinEntropyBits); err != nil {
		return nil, err
	}

	user, err := u.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if ok, err := u.hasher.Verify(params.CurrentPassword, user.PasswordHash); err != nil {
		return nil, wrapInternal("PASSWORD_VERIFY_FAILED", "verify password", err)
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	passwordHash, err := u.hasher.Hash(params.NewPassword)
	if err != nil {
		return nil, wrapInternal("PASSWORD_HASH_FAILED", "hash password", err)
	}

	tokens, err := u.issuer.IssuePair(user)
	if err != nil {
		return nil, wrapInternal("PASSWORD_SIGN_FAILED", "issue tokens", err)
	}

	refreshHash := security.HashToken(tokens.RefreshToken)
	updated, err := u.userRepo.UpdateUser(ctx, userID, repository.UpdateUserParams{
		PasswordHash:     &passwordHash,
		RefreshTokenHash: &refreshHash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, wrapInternal("PASSWORD_STORE_FAILED", "update password", err)
	}

	return &AuthResult{User: updated, Tokens: tokens}, nil
}

func (u *profileUsecase) getUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, wrapInternal("PROFILE_LOOKUP_FAILED", "find user by id", err)
	}

	return user, nil
}

// toRepositoryParams trims the provided fields and rejects blanking a required one.
func (p UpdateProfileParams) toRepositoryParams() (repository.UpdateUserParams, error) {
	required := map[string]*string{
		"name":         p.Name,
		"email":        p.Email,
		"phone":        p.Phone,
		"aboutMe":      p.AboutMe,
		"portfolioURL": p.PortfolioURL,
	}

	blank := map[string]string{}
	for name, value := range required {
		if value != nil {
			blank[name] = strings.TrimSpace(*value)
		}
	}
	if err := requireFields(blank); err != nil {
		return repository.UpdateUserParams{}, err
	}

	email := p.Email
	if email != nil {
		normalized := normalizeEmail(*email)
		email = &normalized
	}

	return repository.UpdateUserParams{
		Name:         trimmed(p.Name),
		Email:        email,
		Phone:        trimmed(p.Phone),
		AboutMe:      trimmed(p.AboutMe),
		PortfolioURL: trimmed(p.PortfolioURL),
		GithubURL:    trimmed(p.GithubURL),
		LinkedInURL:  trimmed(p.LinkedInURL),
		InstagramURL: trimmed(p.InstagramURL),
		FacebookURL:  trimmed(p.FacebookURL),
		TwitterURL:   trimmed(p.TwitterURL),
	}, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}

	v := strings.TrimSpace(*value)
	return &v
}
