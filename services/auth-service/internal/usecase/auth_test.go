package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/portfolio-api/shared/security"
	"github.com/vasapolrittideah/portfolio-api/shared/storage"
)

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)

	result := f.register(t)

	stored := f.repo.stored(t, result.User.ID)
	assert.NotEqual(t, testPassword, stored.PasswordHash)
	ok, err := f.hasher.Verify(testPassword, stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, security.TokenMatchesHash(result.Tokens.RefreshToken, stored.RefreshTokenHash))
	assert.NotEqual(t, result.Tokens.RefreshToken, stored.RefreshTokenHash)
	assert.Equal(t, model.Asset{URL: "https://cdn.example.com/avatars/a.png", PublicID: "avatars/a.png"}, stored.Avatar)
	assert.Equal(t, "resumes/r.pdf", stored.Resume.PublicID)
	f.store.AssertExpectations(t)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*usecase.RegisterParams)
		wantErr error
	}{
		{
			name:    "whitespace name",
			mutate:  func(p *usecase.RegisterParams) { p.Name = "   " },
			wantErr: usecase.ErrValidation,
		},
		{
			name:    "blank email",
			mutate:  func(p *usecase.RegisterParams) { p.Email = "" },
			wantErr: usecase.ErrValidation,
		},
		{
			name:    "whitespace password",
			mutate:  func(p *usecase.RegisterParams) { p.Password = "\t " },
			wantErr: usecase.ErrValidation,
		},
		{
			name:    "short password",
			mutate:  func(p *usecase.RegisterParams) { p.Password = "abc" },
			wantErr: usecase.ErrWeakPassword,
		},
		{
			name:    "missing avatar",
			mutate:  func(p *usecase.RegisterParams) { p.Avatar = nil },
			wantErr: usecase.ErrMissingAsset,
		},
		{
			name:    "empty resume",
			mutate:  func(p *usecase.RegisterParams) { p.Resume = &usecase.Upload{ContentType: "application/pdf"} },
			wantErr: usecase.ErrMissingAsset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			params := registerParams()
			tt.mutate(&params)

			_, err := f.auth.Register(context.Background(), params)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.repo.count())
			f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_DuplicateEmailOrPhone(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	sameEmail := registerParams()
	sameEmail.Phone = "556"
	_, err := f.auth.Register(context.Background(), sameEmail)
	assert.ErrorIs(t, err, usecase.ErrUserAlreadyExists)

	samePhone := registerParams()
	samePhone.Email = "B@X.com"
	_, err = f.auth.Register(context.Background(), samePhone)
	assert.ErrorIs(t, err, usecase.ErrUserAlreadyExists)

	assert.Equal(t, 1, f.repo.count())
}

func TestRegister_UploadFailureCreatesNoUser(t *testing.T) {
	f := newFixture(t)
	f.store.On("Upload", mock.Anything, mock.Anything, "image/png", "avatars").
		Return(&storage.Object{URL: "https://cdn.example.com/avatars/a.png", PublicID: "avatars/a.png"}, nil)
	f.store.On("Upload", mock.Anything, mock.Anything, "application/pdf", "resumes").
		Return(nil, errors.New("bucket unreachable"))
	f.store.On("Delete", mock.Anything, "avatars/a.png").Return(nil)

	_, err := f.auth.Register(context.Background(), registerParams())

	assert.ErrorIs(t, err, usecase.ErrUploadFailed)
	assert.Zero(t, f.repo.count())
	f.store.AssertExpectations(t)
}

func TestRegister_InsertFailureDiscardsUploads(t *testing.T) {
	f := newFixture(t)
	f.expectUploads()
	f.store.On("Delete", mock.Anything, "avatars/a.png").Return(nil)
	f.store.On("Delete", mock.Anything, "resumes/r.pdf").Return(errors.New("ignored"))
	f.repo.failWith("CreateUser", repository.ErrDuplicateUser)

	_, err := f.auth.Register(context.Background(), registerParams())

	assert.ErrorIs(t, err, usecase.ErrUserAlreadyExists)
	f.store.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t)

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.auth.Login(context.Background(), usecase.LoginParams{Email: testEmail, Password: "wrongpass"})
		assert.ErrorIs(t, err, usecase.ErrInvalidCredentials)
	})

	t.Run("unknown email gives the same error", func(t *testing.T) {
		_, err := f.auth.Login(context.Background(), usecase.LoginParams{Email: "nobody@x.com", Password: "wrongpass"})
		assert.ErrorIs(t, err, usecase.ErrInvalidCredentials)
	})

	t.Run("blank input", func(t *testing.T) {
		_, err := f.auth.Login(context.Background(), usecase.LoginParams{Email: " ", Password: testPassword})
		assert.ErrorIs(t, err, usecase.ErrValidation)
	})

	t.Run("success invalidates the previous refresh token", func(t *testing.T) {
		result, err := f.auth.Login(context.Background(), usecase.LoginParams{Email: " A@X.com ", Password: testPassword})
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, result.User.ID)

		_, err = f.auth.Refresh(context.Background(), registered.Tokens.RefreshToken)
		assert.ErrorIs(t, err, usecase.ErrUnauthorized)

		_, err = f.auth.Refresh(context.Background(), result.Tokens.RefreshToken)
		assert.NoError(t, err)
	})
}

func TestLogin_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.repo.failWith("GetUserByEmail", repository.ErrStoreUnavailable)

	_, err := f.auth.Login(context.Background(), usecase.LoginParams{Email: testEmail, Password: testPassword})

	assert.ErrorIs(t, err, usecase.ErrUnavailable)
	assert.NotErrorIs(t, err, usecase.ErrInvalidCredentials)
}

func TestRefresh_RotationInvalidatesPreviousToken(t *testing.T) {
	f := newFixture(t)
	t0 := f.register(t).Tokens.RefreshToken

	first, err := f.auth.Refresh(context.Background(), t0)
	require.NoError(t, err)
	t1 := first.Tokens.RefreshToken
	assert.NotEqual(t, t0, t1)

	_, err = f.auth.Refresh(context.Background(), t0)
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
	assert.ErrorIs(t, err, usecase.ErrTokenReuseDetected)

	// Reuse of t0 does not revoke t1.
	second, err := f.auth.Refresh(context.Background(), t1)
	require.NoError(t, err)
	assert.NotEqual(t, t1, second.Tokens.RefreshToken)
}

func TestRefresh_Failures(t *testing.T) {
	f := newFixture(t)
	token := f.register(t).Tokens.RefreshToken

	_, err := f.auth.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)

	_, err = f.auth.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, usecase.ErrInvalidToken)

	f.clock.Advance(8 * 24 * time.Hour)
	_, err = f.auth.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, usecase.ErrTokenExpired)
}

func TestRefresh_ConcurrentExchangesHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	token := f.register(t).Tokens.RefreshToken

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.auth.Refresh(context.Background(), token)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, usecase.ErrUnauthorized)
	}
	assert.Equal(t, 1, wins)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	result := f.register(t)
	userID := result.User.ID.Hex()

	require.NoError(t, f.auth.Logout(context.Background(), userID))
	require.NoError(t, f.auth.Logout(context.Background(), userID))

	assert.Empty(t, f.repo.stored(t, result.User.ID).RefreshTokenHash)

	_, err := f.auth.Refresh(context.Background(), result.Tokens.RefreshToken)
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}

func TestLogout_UnknownUser(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.auth.Logout(context.Background(), "not-an-id"))
}
