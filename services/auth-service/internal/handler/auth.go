package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/usecase"
)

var errInvalidForm = errors.New("invalid multipart form")

func (h *authHTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	const operation = "register"
	start := time.Now()

	form, err := h.parseMultipart(w, r)
	if err != nil {
		h.respondError(w, operation, start, err)
		return
	}
	defer func() { _ = form.RemoveAll() }()

	var req payload.RegisterRequest
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

	result, err := h.authUsecase.Register(r.Context(), usecase.RegisterParams{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		AboutMe:      req.AboutMe,
		Password:     req.Password,
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

	h.cookies.SetSession(w, result.Tokens)
	h.respondSuccess(w, operation, start, http.StatusCreated, "user registered",
		payload.NewAuthResponse(result.User, result.Tokens))
}

func (h *authHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	const operation = "login"
	start := time.Now()

	var req payload.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, operation, start, err)
		return
	}
	req.Trim()

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	result, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	h.cookies.SetSession(w, result.Tokens)
	h.respondSuccess(w, operation, start, http.StatusOK, "logged in", payload.NewAuthResponse(result.User, result.Tokens))
}

// Refresh takes the refresh token from its cookie, falling back to the JSON body.
func (h *authHTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	const operation = "refresh"
	start := time.Now()

	token := h.cookies.RefreshToken(r)
	if token == "" {
		var req payload.RefreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.respondError(w, operation, start, err)
			return
		}
		token = req.RefreshToken
	}

	result, err := h.authUsecase.Refresh(r.Context(), token)
	if err != nil {
		h.metrics.RecordRotation(rotationResult(err))

		if status, _ := errorStatus(err); status == http.StatusUnauthorized {
			h.cookies.ClearSession(w)
		}
		h.respondError(w, operation, start, err)
		return
	}

	h.metrics.RecordRotation("rotated")
	h.cookies.SetSession(w, result.Tokens)
	h.respondSuccess(w, operation, start, http.StatusOK, "token refreshed", payload.NewAuthResponse(result.User, result.Tokens))
}

func (h *authHTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	const operation = "logout"
	start := time.Now()

	userID, ok := userIDFromRequest(r)
	if !ok {
		h.respondError(w, operation, start, usecase.ErrUnauthorized)
		return
	}

	if err := h.authUsecase.Logout(r.Context(), userID); err != nil {
		h.respondError(w, operation, start, err)
		return
	}

	h.cookies.ClearSession(w)
	h.respondSuccess(w, operation, start, http.StatusOK, "logged out", nil)
}

func rotationResult(err error) string {
	switch {
	case errors.Is(err, usecase.ErrTokenReuseDetected):
		return "reused"
	case errors.Is(err, usecase.ErrTokenExpired):
		return "expired"
	case errors.Is(err, usecase.ErrInvalidToken), errors.Is(err, usecase.ErrUnauthorized):
		return "invalid"
	default:
		return "error"
	}
}

// parseMultipart parses a bounded multipart body.
func (h *authHTTPHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: request exceeds %d bytes", usecase.ErrValidation, maxErr.Limit)
		}

		return nil, errInvalidForm
	}

	return r.MultipartForm, nil
}

// readUpload reads the named file part. A missing part yields nil so the usecase can decide
// whether the file is required. When typePrefix is set the part's content type must start with it.
func (h *authHTTPHandler) readUpload(form *multipart.Form, field, typePrefix string) (*usecase.Upload, error) {
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}

	header := files[0]
	file, err := header.Open()
	if err != nil {
		return nil, errInvalidForm
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		return nil, errInvalidForm
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	if typePrefix != "" && !strings.HasPrefix(contentType, typePrefix) {
		return nil, fmt.Errorf("%w: %s must be of type %s*", usecase.ErrValidation, field, typePrefix)
	}

	return &usecase.Upload{Data: data, ContentType: contentType}, nil
}
