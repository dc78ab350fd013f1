package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/model"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when an email or phone is already taken.
	ErrDuplicateUser = errors.New("user with this email or phone already exists")

	// ErrPreconditionFailed is returned by conditional updates whose expected state no longer holds.
	ErrPreconditionFailed = errors.New("user record changed concurrently")

	// ErrStoreUnavailable marks timeouts and network failures that are worth retrying.
	ErrStoreUnavailable = errors.New("user store unavailable")

	// ErrNoFieldsToUpdate is returned when UpdateUser receives an empty parameter set.
	ErrNoFieldsToUpdate = errors.New("no user fields to update")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByEmailOrPhone(ctx context.Context, email, phone string) (*model.User, error)

	// GetUserByResetTokenHash returns the user holding tokenHash with an expiry after now.
	GetUserByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)

	UpdateUser(ctx context.Context, id string, params UpdateUserParams) (*model.User, error)

	// SetRefreshToken overwrites the stored refresh token digest unconditionally.
	SetRefreshToken(ctx context.Context, id, tokenHash string) error

	// RotateRefreshToken replaces oldHash with newHash only if oldHash is still stored.
	// It returns ErrPreconditionFailed when another rotation, login or logout got there first.
	RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) error

	// ClearRefreshToken removes the stored refresh token digest. Clearing an absent token is not an error.
	ClearRefreshToken(ctx context.Context, id string) error

	SetPasswordResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearPasswordResetToken(ctx context.Context, id string) error

	// CompletePasswordReset sets the new password and refresh token digest and clears both reset
	// fields in one update, provided the user still holds tokenHash unexpired at now.
	CompletePasswordReset(ctx context.Context, id string, params CompleteResetParams) (*model.User, error)

	Ping(ctx context.Context) error
}

// UpdateUserParams defines the optional parameters for updating a user.
// Only the fields that are not nil will be updated.
type UpdateUserParams struct {
	Name             *string
	Email            *string
	Phone            *string
	AboutMe          *string
	PortfolioURL     *string
	GithubURL        *string
	LinkedInURL      *string
	InstagramURL     *string
	FacebookURL      *string
	TwitterURL       *string
	Avatar           *model.Asset
	Resume           *model.Asset
	PasswordHash     *string
	RefreshTokenHash *string
}

// CompleteResetParams defines the state written when a password reset is consumed.
type CompleteResetParams struct {
	TokenHash        string
	Now              time.Time
	PasswordHash     string
	RefreshTokenHash string
}

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

// NewUserMongoRepository creates the user repository, making sure its indexes exist.
func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	if err := EnsureUserIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db}
}

// EnsureUserIndexes creates the unique email and phone indexes and the reset token lookup index.
func EnsureUserIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "reset_password_token_hash", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := db.Collection(userCollection).Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.db.Collection(userCollection).InsertOne(ctx, user)
	if err != nil {
		return nil, mapError(err)
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		user.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return user, nil
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userMongoRepository) GetUserByEmailOrPhone(ctx context.Context, email, phone string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"phone": phone},
	}})
}

func (r *userMongoRepository) GetUserByResetTokenHash(
	ctx context.Context,
	tokenHash string,
	now time.Time,
) (*model.User, error) {
	if tokenHash == "" {
		return nil, ErrUserNotFound
	}

	return r.findOne(ctx, bson.M{
		"reset_password_token_hash": tokenHash,
		"reset_password_expires_at": bson.M{"$gt": now},
	})
}

func (r *userMongoRepository) UpdateUser(
	ctx context.Context,
	id string,
	params UpdateUserParams,
) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	updateMap := params.toSet()
	if len(updateMap) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	updateMap["updated_at"] = time.Now()

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": updateMap},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	return decodeUser(result)
}

func (r *userMongoRepository) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	return r.updateOne(ctx, id, bson.M{}, bson.M{
		"$set": bson.M{"refresh_token_hash": tokenHash, "updated_at": time.Now()},
	}, ErrUserNotFound)
}

func (r *userMongoRepository) RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) error {
	if oldHash == "" {
		return ErrPreconditionFailed
	}

	return r.updateOne(ctx, id, bson.M{"refresh_token_hash": oldHash}, bson.M{
		"$set": bson.M{"refresh_token_hash": newHash, "updated_at": time.Now()},
	}, ErrPreconditionFailed)
}

func (r *userMongoRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.updateOne(ctx, id, bson.M{}, bson.M{
		"$unset": bson.M{"refresh_token_hash": ""},
		"$set":   bson.M{"updated_at": time.Now()},
	}, ErrUserNotFound)
}

func (r *userMongoRepository) SetPasswordResetToken(
	ctx context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	return r.updateOne(ctx, id, bson.M{}, bson.M{
		"$set": bson.M{
			"reset_password_token_hash": tokenHash,
			"reset_password_expires_at": expiresAt,
			"updated_at":                time.Now(),
		},
	}, ErrUserNotFound)
}

func (r *userMongoRepository) ClearPasswordResetToken(ctx context.Context, id string) error {
	return r.updateOne(ctx, id, bson.M{}, bson.M{
		"$unset": bson.M{"reset_password_token_hash": "", "reset_password_expires_at": ""},
		"$set":   bson.M{"updated_at": time.Now()},
	}, ErrUserNotFound)
}

func (r *userMongoRepository) CompletePasswordReset(
	ctx context.Context,
	id string,
	params CompleteResetParams,
) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	filter := bson.M{
		"_id":                       objectID,
		"reset_password_token_hash": params.TokenHash,
		"reset_password_expires_at": bson.M{"$gt": params.Now},
	}
	update := bson.M{
		"$set": bson.M{
			"password_hash":      params.PasswordHash,
			"refresh_token_hash": params.RefreshTokenHash,
			"updated_at":         time.Now(),
		},
		"$unset": bson.M{"reset_password_token_hash": "", "reset_password_expires_at": ""},
	}

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	user, err := decodeUser(result)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrPreconditionFailed
	}

	return user, err
}

func (r *userMongoRepository) Ping(ctx context.Context) error {
	return mapError(r.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err())
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	return decodeUser(r.db.Collection(userCollection).FindOne(ctx, filter))
}

// updateOne applies update to the user matching id and the extra conditions in filter.
// notMatched is returned when no document matched.
func (r *userMongoRepository) updateOne(
	ctx context.Context,
	id string,
	filter bson.M,
	update bson.M,
	notMatched error,
) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrUserNotFound
	}

	filter["_id"] = objectID

	result, err := r.db.Collection(userCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return mapError(err)
	}

	if result.MatchedCount == 0 {
		return notMatched
	}

	return nil
}

func (p UpdateUserParams) toSet() bson.M {
	updateMap := bson.M{}

	fields := map[string]*string{
		"name":               p.Name,
		"email":              p.Email,
		"phone":              p.Phone,
		"about_me":           p.AboutMe,
		"portfolio_url":      p.PortfolioURL,
		"github_url":         p.GithubURL,
		"linkedin_url":       p.LinkedInURL,
		"instagram_url":      p.InstagramURL,
		"facebook_url":       p.FacebookURL,
		"twitter_url":        p.TwitterURL,
		"password_hash":      p.PasswordHash,
		"refresh_token_hash": p.RefreshTokenHash,
	}
	for field, value := range fields {
		if value != nil {
			updateMap[field] = *value
		}
	}

	if p.Avatar != nil {
		updateMap["avatar"] = *p.Avatar
	}
	if p.Resume != nil {
		updateMap["resume"] = *p.Resume
	}

	return updateMap
}

func decodeUser(result *mongo.SingleResult) (*model.User, error) {
	if err := result.Err(); err != nil {
		return nil, mapError(err)
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

// mapError translates driver errors into repository errors the usecases can match on.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrUserNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", ErrDuplicateUser, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	default:
		return err
	}
}
