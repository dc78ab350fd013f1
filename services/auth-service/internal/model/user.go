package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Asset is an uploaded file. PublicID is the object store key used for deletion.
type Asset struct {
	URL      string `bson:"url"       json:"url"`
	PublicID string `bson:"public_id" json:"publicId"`
}

// User represents the portfolio owner account and its session state.
//
// RefreshTokenHash holds the digest of the only refresh token that may be exchanged.
// ResetPasswordTokenHash and ResetPasswordExpiresAt are always set and cleared together.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Name         string        `bson:"name"`
	Email        string        `bson:"email"`
	Phone        string        `bson:"phone"`
	AboutMe      string        `bson:"about_me"`
	PasswordHash string        `bson:"password_hash"`

	PortfolioURL string `bson:"portfolio_url"`
	GithubURL    string `bson:"github_url,omitempty"`
	LinkedInURL  string `bson:"linkedin_url,omitempty"`
	InstagramURL string `bson:"instagram_url,omitempty"`
	FacebookURL  string `bson:"facebook_url,omitempty"`
	TwitterURL   string `bson:"twitter_url,omitempty"`

	Avatar Asset `bson:"avatar"`
	Resume Asset `bson:"resume"`

	RefreshTokenHash       string     `bson:"refresh_token_hash,omitempty"`
	ResetPasswordTokenHash string     `bson:"reset_password_token_hash,omitempty"`
	ResetPasswordExpiresAt *time.Time `bson:"reset_password_expires_at,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// HasLiveResetToken reports whether a reset token is pending and unexpired at now.
func (u *User) HasLiveResetToken(now time.Time) bool {
	return u.ResetPasswordTokenHash != "" && u.ResetPasswordExpiresAt != nil && now.Before(*u.ResetPasswordExpiresAt)
}
