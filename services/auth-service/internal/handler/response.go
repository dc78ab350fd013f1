package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/metrics"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/portfolio-api/shared/validator"
)

const (
	maxJSONBodyBytes = 1 << 20
	retryAfter       = "5"
)

var errInvalidBody = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, body payload.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, payload.Response{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, payload.Response{Success: false, Message: message})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidBody
	}

	return nil
}

// errorStatus maps usecase error kinds to an HTTP status and a client-safe message.
func errorStatus(err error) (int, string) {
	var validationErr *validator.ValidationError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, errInvalidBody), errors.Is(err, errInvalidForm):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, usecase.ErrWeakPassword),
		errors.Is(err, usecase.ErrMissingAsset):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, usecase.ErrUserAlreadyExists):
		return http.StatusConflict, "user with this email or phone already exists"
	case errors.Is(err, usecase.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, usecase.ErrTokenExpired):
		return http.StatusUnauthorized, "refresh token has expired"
	case errors.Is(err, usecase.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid refresh token"
	case errors.Is(err, usecase.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized request"
	case errors.Is(err, usecase.ErrInvalidOrExpiredToken):
		return http.StatusUnauthorized, usecase.ErrInvalidOrExpiredToken.Error()
	case errors.Is(err, usecase.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, usecase.ErrDeliveryFailed):
		return http.StatusBadGateway, "failed to send email, please try again later"
	case errors.Is(err, usecase.ErrUploadFailed):
		return http.StatusBadGateway, "failed to upload file, please try again later"
	case errors.Is(err, usecase.ErrUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}

// respondError writes the mapped error and records the failed operation.
// Server-side failures are logged with their full context; the client only sees the generic message.
func (h *authHTTPHandler) respondError(w http.ResponseWriter, operation string, start time.Time, err error) {
	status, message := errorStatus(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("operation", operation).Int("status", status).Msg("request failed")
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfter)
	}

	h.metrics.RecordOperation(operation, metricStatus(status), time.Since(start))

	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, status, payload.Response{Success: false, Message: message, Errors: validationErr.Fields})
		return
	}

	writeFailure(w, status, message)
}

func (h *authHTTPHandler) respondSuccess(
	w http.ResponseWriter,
	operation string,
	start time.Time,
	status int,
	message string,
	data any,
) {
	h.metrics.RecordOperation(operation, metrics.StatusSuccess, time.Since(start))
	writeSuccess(w, status, message, data)
}

func metricStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return metrics.StatusUnauthorized
	case status == http.StatusServiceUnavailable:
		return metrics.StatusUnavailable
	case status >= http.StatusInternalServerError:
		return metrics.StatusError
	default:
		return metrics.StatusRejected
	}
}
