package handler

import (
	"net/http"
	"time"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/usecase"
)

func (h *authHTTPHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	const operation = "get_me"
	start := time.Now()

	userID, ok := userIDFromRequest(r)
	if !ok {
		h.respondError(w, operation, start, usecase.ErrUnauthorized)
		return
	}

	user, err := h.profileUsecase.GetMe(r.Context(), userID)
	if err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	h.respondSuccess(w, operation, start, http.StatusOK, "user fetched", payload.NewUserResponse(user))
}

func (h *authHTTPHandler) GetPortfolioUser(w http.ResponseWriter, r *http.Request) {
	const operation = "get_portfolio_user"
	start := time.Now()

	user, err := h.profileUsecase.GetPortfolioUser(r.Context())
	if err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	h.respondSuccess(w, operation, start, http.StatusOK, "user fetched", payload.NewUserResponse(user))
}

func (h *authHTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	const operation = "update_profile"
	start := time.Now()

	userID, ok := userIDFromRequest(r)
	if !ok {
		h.respondError(w, operation, start, usecase.ErrUnauthorized)
		return
	}

	form, err := h.parseMultipart(w, r)
	if err != nil {
		h.respondError(w, operation, start, err)
		return
	}
	defer func() { _ = form.RemoveAll() }()

	var req payload.UpdateProfileRequest
	if err := h.formDecoder.Decode(&req, form.Value); err != nil {
		h.respondError(w, operation, start, errInvalidBody)
		return
	}
	req.Trim()

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	avatar, err := h.readUpload(form, "avatar", "image/")
	if err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	resume, err := h.readUpload(form, "resume", "")
	if err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	user, err := h.profileUsecase.UpdateProfile(r.Context(), userID, usecase.UpdateProfileParams{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		AboutMe:      req.AboutMe,
		PortfolioURL: req.PortfolioURL,
		GithubURL:    req.GithubURL,
		LinkedInURL:  req.LinkedInURL,
		InstagramURL: req.InstagramURL,
		FacebookURL:  req.FacebookURL,
		TwitterURL:   req.TwitterURL,
		Avatar:       avatar,
		Resume:       resume,
	})
	if err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	h.respondSuccess(w, operation, start, http.StatusOK, "profile updated", payload.NewUserResponse(user))
}

func (h *authHTTPHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	const operation = "update_password"
	start := time.Now()

	userID, ok := userIDFromRequest(r)
	if !ok {
		h.respondError(w, operation, start, usecase.ErrUnauthorized)
		return
	}

	var req payload.UpdatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	result, err := h.profileUsecase.ChangePassword(r.Context(), userID, usecase.ChangePasswordParams{
		CurrentPassword:    req.CurrentPassword,
		NewPassword:        req.NewPassword,
		ConfirmNewPassword: req.ConfirmNewPassword,
	})
	if err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	h.cookies.SetSession(w, result.Tokens)
	h.respondSuccess(w, operation, start, http.StatusOK, "password updated", payload.NewAuthResponse(result.User, result.Tokens))
}
