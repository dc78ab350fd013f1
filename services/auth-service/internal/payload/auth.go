package payload

import (
	"strings"
	"time"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/model"
	authtypes "github.com/vasapolrittideah/portfolio-api/services/auth-service/pkg/types"
)

// Response is the envelope of every JSON response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// RegisterRequest is the multipart registration form. Avatar and resume arrive as file parts.
type RegisterRequest struct {
	Name         string `form:"name"         validate:"required"`
	Email        string `form:"email"        validate:"required,email"`
	Phone        string `form:"phone"        validate:"required"`
	AboutMe      string `form:"aboutMe"      validate:"required"`
	Password     string `form:"password"     validate:"required"`
	PortfolioURL string `form:"portfolioURL" validate:"required,url"`
	GithubURL    string `form:"githubURL"    validate:"omitempty,url"`
	LinkedInURL  string `form:"linkedInURL"  validate:"omitempty,url"`
	InstagramURL string `form:"instagramURL" validate:"omitempty,url"`
	FacebookURL  string `form:"facebookURL"  validate:"omitempty,url"`
	TwitterURL   string `form:"twitterURL"   validate:"omitempty,url"`
}

// Trim strips surrounding whitespace so that blank values fail the required rule.
func (r *RegisterRequest) Trim() {
	for _, field := range []*string{
		&r.Name, &r.Email, &r.Phone, &r.AboutMe, &r.PortfolioURL,
		&r.GithubURL, &r.LinkedInURL, &r.InstagramURL, &r.FacebookURL, &r.TwitterURL,
	} {
		*field = strings.TrimSpace(*field)
	}
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Trim strips whitespace around the email. Passwords are taken verbatim.
func (r *LoginRequest) Trim() {
	r.Email = strings.TrimSpace(r.Email)
}

// RefreshRequest carries the refresh token for clients that do not keep cookies.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokensResponse mirrors the session cookies for non-browser clients.
type TokensResponse struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// AuthResponse is returned by every operation that signs a user in.
type AuthResponse struct {
	User   UserResponse   `json:"user"`
	Tokens TokensResponse `json:"tokens"`
}

// NewAuthResponse builds an AuthResponse.
func NewAuthResponse(user *model.User, tokens *authtypes.Tokens) AuthResponse {
	return AuthResponse{
		User: NewUserResponse(user),
		Tokens: TokensResponse{
			AccessToken:           tokens.AccessToken,
			RefreshToken:          tokens.RefreshToken,
			AccessTokenExpiresAt:  tokens.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: tokens.RefreshTokenExpiresAt,
		},
	}
}
