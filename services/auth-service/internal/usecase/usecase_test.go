package usecase_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/goleak"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/portfolio-api/shared/auth"
	"github.com/vasapolrittideah/portfolio-api/shared/security"
	"github.com/vasapolrittideah/portfolio-api/shared/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeUserRepository is an in-memory UserRepository with the same conditional update
// semantics as the Mongo implementation.
type fakeUserRepository struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*model.User
	fail  map[string]error
}

var _ repository.UserRepository = (*fakeUserRepository)(nil)

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{
		users: map[bson.ObjectID]*model.User{},
		fail:  map[string]error{},
	}
}

func (r *fakeUserRepository) failWith(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[method] = err
}

func (r *fakeUserRepository) stored(t *testing.T, id bson.ObjectID) *model.User {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	require.True(t, ok, "user %s not stored", id.Hex())

	return clone(user)
}

func (r *fakeUserRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func clone(user *model.User) *model.User {
	c := *user
	if user.ResetPasswordExpiresAt != nil {
		expires := *user.ResetPasswordExpiresAt
		c.ResetPasswordExpiresAt = &expires
	}
	return &c
}

func (r *fakeUserRepository) lookup(id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}

	user, ok := r.users[objectID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return user, nil
}

func (r *fakeUserRepository) conflicts(id bson.ObjectID, email, phone string) bool {
	for _, other := range r.users {
		if other.ID == id {
			continue
		}
		if other.Email == email || other.Phone == phone {
			return true
		}
	}
	return false
}

func (r *fakeUserRepository) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fail["CreateUser"]; err != nil {
		return nil, err
	}

	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if r.conflicts(user.ID, user.Email, user.Phone) {
		return nil, repository.ErrDuplicateUser
	}

	r.users[user.ID] = clone(user)

	return clone(user), nil
}

func (r *fakeUserRepository) GetUser(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fail["GetUser"]; err != nil {
		return nil, err
	}

	user, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	return clone(user), nil
}

func (r *fakeUserRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fail["GetUserByEmail"]; err != nil {
		return nil, err
	}

	for _, user := range r.users {
		if user.Email == email {
			return clone(user), nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepository) GetUserByEmailOrPhone(_ context.Context, email, phone string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email || user.Phone == phone {
			return clone(user), nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepository) GetUserByResetTokenHash(
	_ context.Context,
	tokenHash string,
	now time.Time,
) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if tokenHash != "" && user.ResetPasswordTokenHash == tokenHash && user.HasLiveResetToken(now) {
			return clone(user), nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepository) UpdateUser(
	_ context.Context,
	id string,
	params repository.UpdateUserParams,
) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fail["UpdateUser"]; err != nil {
		return nil, err
	}

	user, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	next := clone(user)
	changed := false
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
			changed = true
		}
	}
	apply(&next.Name, params.Name)
	apply(&next.Email, params.Email)
	apply(&next.Phone, params.Phone)
	apply(&next.AboutMe, params.AboutMe)
	apply(&next.PortfolioURL, params.PortfolioURL)
	apply(&next.GithubURL, params.GithubURL)
	apply(&next.LinkedInURL, params.LinkedInURL)
	apply(&next.InstagramURL, params.InstagramURL)
	apply(&next.FacebookURL, params.FacebookURL)
	apply(&next.TwitterURL, params.TwitterURL)
	apply(&next.PasswordHash, params.PasswordHash)
	apply(&next.RefreshTokenHash, params.RefreshTokenHash)
	if params.Avatar != nil {
		next.Avatar = *params.Avatar
		changed = true
	}
	if params.Resume != nil {
		next.Resume = *params.Resume
		changed = true
	}

	if !changed {
		return nil, repository.ErrNoFieldsToUpdate
	}
	if r.conflicts(next.ID, next.Email, next.Phone) {
		return nil, repository.ErrDuplicateUser
	}

	r.users[next.ID] = next

	return clone(next), nil
}

func (r *fakeUserRepository) SetRefreshToken(_ context.Context, id, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.lookup(id)
	if err != nil {
		return err
	}
	user.RefreshTokenHash = tokenHash

	return nil
}

func (r *fakeUserRepository) RotateRefreshToken(_ context.Context, id, oldHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.lookup(id)
	if err != nil {
		return err
	}
	if oldHash == "" || user.RefreshTokenHash != oldHash {
		return repository.ErrPreconditionFailed
	}
	user.RefreshTokenHash = newHash

	return nil
}

func (r *fakeUserRepository) ClearRefreshToken(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.lookup(id)
	if err != nil {
		return err
	}
	user.RefreshTokenHash = ""

	return nil
}

func (r *fakeUserRepository) SetPasswordResetToken(
	_ context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fail["SetPasswordResetToken"]; err != nil {
		return err
	}

	user, err := r.lookup(id)
	if err != nil {
		return err
	}
	user.ResetPasswordTokenHash = tokenHash
	user.ResetPasswordExpiresAt = &expiresAt

	return nil
}

func (r *fakeUserRepository) ClearPasswordResetToken(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.lookup(id)
	if err != nil {
		return err
	}
	user.ResetPasswordTokenHash = ""
	user.ResetPasswordExpiresAt = nil

	return nil
}

func (r *fakeUserRepository) CompletePasswordReset(
	_ context.Context,
	id string,
	params repository.CompleteResetParams,
) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if user.ResetPasswordTokenHash != params.TokenHash || !user.HasLiveResetToken(params.Now) {
		return nil, repository.ErrPreconditionFailed
	}

	user.PasswordHash = params.PasswordHash
	user.RefreshTokenHash = params.RefreshTokenHash
	user.ResetPasswordTokenHash = ""
	user.ResetPasswordExpiresAt = nil

	return clone(user), nil
}

func (r *fakeUserRepository) Ping(context.Context) error {
	return nil
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Upload(
	ctx context.Context,
	data []byte,
	contentType, folder string,
) (*storage.Object, error) {
	args := m.Called(ctx, data, contentType, folder)
	object, _ := args.Get(0).(*storage.Object)
	return object, args.Error(1)
}

func (m *mockObjectStore) Delete(ctx context.Context, publicID string) error {
	args := m.Called(ctx, publicID)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

const (
	testEmail    = "a@x.com"
	testPhone    = "555"
	testPassword = "eightchr"
)

type fixture struct {
	cfg      *config.AuthServiceConfig
	clock    *fakeClock
	repo     *fakeUserRepository
	store    *mockObjectStore
	notifier *mockNotifier
	hasher   security.PasswordHasher
	issuer   *usecase.TokenIssuer
	auth     usecase.AuthUsecase
	reset    usecase.PasswordResetUsecase
	profile  usecase.ProfileUsecase
}

func testConfig() *config.AuthServiceConfig {
	return &config.AuthServiceConfig{
		DashboardURL: "https://dashboard.example.com/",
		Token: config.TokenConfig{
			Issuer:                "portfolio-api",
			AccessTokenSecret:     "access-secret",
			AccessTokenExpiresIn:  15 * time.Minute,
			RefreshTokenSecret:    "refresh-secret",
			RefreshTokenExpiresIn: 7 * 24 * time.Hour,
		},
		PasswordReset: config.PasswordResetConfig{
			TokenExpiresIn: 30 * time.Minute,
			MinEntropyBits: 30,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		cfg:      testConfig(),
		clock:    newFakeClock(),
		repo:     newFakeUserRepository(),
		store:    &mockObjectStore{},
		notifier: &mockNotifier{},
		hasher:   security.NewArgon2Hasher(security.WithCost(1, 8*1024)),
	}

	logger := zerolog.Nop()
	jwtAuth := auth.NewJWTAuthenticator(f.cfg.Token.Issuer, f.cfg.Token.Issuer, auth.WithClock(f.clock.Now))
	f.issuer = usecase.NewTokenIssuer(jwtAuth, f.cfg.Token, f.clock.Now)
	f.auth = usecase.NewAuthUsecase(f.repo, f.hasher, f.issuer, f.store, f.cfg, &logger)
	f.reset = usecase.NewPasswordResetUsecase(f.repo, f.hasher, f.issuer, f.notifier, f.cfg, &logger)
	f.profile = usecase.NewProfileUsecase(f.repo, f.hasher, f.issuer, f.store, f.cfg, &logger)

	return f
}

func (f *fixture) expectUploads() {
	f.store.On("Upload", mock.Anything, mock.Anything, "image/png", "avatars").
		Return(&storage.Object{URL: "https://cdn.example.com/avatars/a.png", PublicID: "avatars/a.png"}, nil)
	f.store.On("Upload", mock.Anything, mock.Anything, "application/pdf", "resumes").
		Return(&storage.Object{URL: "https://cdn.example.com/resumes/r.pdf", PublicID: "resumes/r.pdf"}, nil)
}

func registerParams() usecase.RegisterParams {
	return usecase.RegisterParams{
		Name:         "Ada Lovelace",
		Email:        testEmail,
		Phone:        testPhone,
		AboutMe:      "Analyst",
		Password:     testPassword,
		PortfolioURL: "https://ada.example.com",
		Avatar:       &usecase.Upload{Data: []byte("png"), ContentType: "image/png"},
		Resume:       &usecase.Upload{Data: []byte("pdf"), ContentType: "application/pdf"},
	}
}

// register creates the default user and returns the registration result.
func (f *fixture) register(t *testing.T) *usecase.AuthResult {
	t.Helper()
	f.expectUploads()

	result, err := f.auth.Register(context.Background(), registerParams())
	require.NoError(t, err)

	return result
}

var resetLinkPattern = regexp.MustCompile(`/password/reset/([0-9a-f]{64})`)

// requestReset runs a successful reset request and returns the raw token from the email.
func (f *fixture) requestReset(t *testing.T, email string) string {
	t.Helper()

	var body string
	f.notifier.On("SendEmail", mock.Anything, email, "Password Reset Request", mock.Anything).
		Run(func(args mock.Arguments) { body = args.String(3) }).
		Return(nil).
		Once()

	require.NoError(t, f.reset.RequestPasswordReset(context.Background(), email))

	match := resetLinkPattern.FindStringSubmatch(body)
	require.Len(t, match, 2, "reset link not found in email body")

	return match[1]
}
