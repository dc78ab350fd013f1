package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/usecase"
)

func (h *authHTTPHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	const operation = "forgot_password"
	start := time.Now()

	var req payload.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, operation, start, err)
		return
	}
	req.Trim()

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	if err := h.passwordResetUsecase.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	h.respondSuccess(w, operation, start, http.StatusOK,
		"if an account exists for this email, a password reset link has been sent", nil)
}

func (h *authHTTPHandler) ValidatePasswordResetToken(w http.ResponseWriter, r *http.Request) {
	const operation = "validate_reset_token"
	start := time.Now()

	if err := h.passwordResetUsecase.ValidatePasswordResetToken(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	h.respondSuccess(w, operation, start, http.StatusOK, "password reset token is valid", nil)
}

func (h *authHTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	const operation = "reset_password"
	start := time.Now()

	var req payload.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	result, err := h.passwordResetUsecase.ResetPassword(r.Context(), usecase.ResetPasswordParams{
		Token:           chi.URLParam(r, "token"),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	h.cookies.SetSession(w, result.Tokens)
	h.respondSuccess(w, operation, start, http.StatusOK, "password has been reset",
		payload.NewAuthResponse(result.User, result.Tokens))
}
