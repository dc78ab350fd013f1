package payload

import (
	"strings"
	"time"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/model"
)

// UserResponse is the public view of a user. Credentials and token state are never included.
type UserResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone"`
	AboutMe      string      `json:"aboutMe"`
	PortfolioURL string      `json:"portfolioURL"`
	GithubURL    string      `json:"githubURL,omitempty"`
	LinkedInURL  string      `json:"linkedInURL,omitempty"`
	InstagramURL string      `json:"instagramURL,omitempty"`
	FacebookURL  string      `json:"facebookURL,omitempty"`
	TwitterURL   string      `json:"twitterURL,omitempty"`
	Avatar       model.Asset `json:"avatar"`
	Resume       model.Asset `json:"resume"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func NewUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:           user.ID.Hex(),
		Name:         user.Name,
		Email:        user.Email,
		Phone:        user.Phone,
		AboutMe:      user.AboutMe,
		PortfolioURL: user.PortfolioURL,
		GithubURL:    user.GithubURL,
		LinkedInURL:  user.LinkedInURL,
		InstagramURL: user.InstagramURL,
		FacebookURL:  user.FacebookURL,
		TwitterURL:   user.TwitterURL,
		Avatar:       user.Avatar,
		Resume:       user.Resume,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

// UpdateProfileRequest is the multipart profile form. Absent fields are left unchanged.
type UpdateProfileRequest struct {
	Name         *string `form:"name"         validate:"omitempty,min=1"`
	Email        *string `form:"email"        validate:"omitempty,email"`
	Phone        *string `form:"phone"        validate:"omitempty,min=1"`
	AboutMe      *string `form:"aboutMe"      validate:"omitempty,min=1"`
	PortfolioURL *string `form:"portfolioURL" validate:"omitempty,url"`
	GithubURL    *string `form:"githubURL"    validate:"omitempty,url"`
	LinkedInURL  *string `form:"linkedInURL"  validate:"omitempty,url"`
	InstagramURL *string `form:"instagramURL" validate:"omitempty,url"`
	FacebookURL  *string `form:"facebookURL"  validate:"omitempty,url"`
	TwitterURL   *string `form:"twitterURL"   validate:"omitempty,url"`
}

// Trim strips whitespace from every provided field.
func (r *UpdateProfileRequest) Trim() {
	for _, field := range []*string{
		r.Name, r.Email, r.Phone, r.AboutMe, r.PortfolioURL,
		r.GithubURL, r.LinkedInURL, r.InstagramURL, r.FacebookURL, r.TwitterURL,
	} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
}
