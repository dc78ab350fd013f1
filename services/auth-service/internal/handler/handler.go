// Package handler binds the auth usecases to HTTP and carries session tokens in cookies.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/form"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/metrics"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/portfolio-api/shared/middleware"
	"github.com/vasapolrittideah/portfolio-api/shared/validator"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type authHTTPHandler struct {
	authUsecase          usecase.AuthUsecase
	passwordResetUsecase usecase.PasswordResetUsecase
	profileUsecase       usecase.ProfileUsecase
	cookies              *CookieCodec
	validator            *validator.Validator
	formDecoder          *form.Decoder
	metrics              *metrics.AuthMetrics
	logger               *zerolog.Logger
	maxUploadBytes       int64
}

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	AuthUsecase          usecase.AuthUsecase
	PasswordResetUsecase usecase.PasswordResetUsecase
	ProfileUsecase       usecase.ProfileUsecase
	Cookies              *CookieCodec
	Authenticate         func(http.Handler) http.Handler
	Metrics              *metrics.AuthMetrics
	MetricsHandler       http.Handler
	Health               Pinger
	Logger               *zerolog.Logger
	RequestTimeout       time.Duration
	MaxUploadBytes       int64
}

// NewRouter builds the chi router for the auth service.
func NewRouter(p RouterParams) http.Handler {
	h := &authHTTPHandler{
		authUsecase:          p.AuthUsecase,
		passwordResetUsecase: p.PasswordResetUsecase,
		profileUsecase:       p.ProfileUsecase,
		cookies:              p.Cookies,
		validator:            validator.New(),
		formDecoder:          form.NewDecoder(),
		metrics:              p.Metrics,
		logger:               p.Logger,
		maxUploadBytes:       p.MaxUploadBytes,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(p.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", healthHandler(p.Health))
	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}

	r.Route("/api/v1/user", func(r chi.Router) {
		if p.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(p.RequestTimeout))
		}

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Get("/portfolio", h.GetPortfolioUser)

		r.Post("/password/forgot", h.ForgotPassword)
		r.Get("/password/reset/{token}", h.ValidatePasswordResetToken)
		r.Put("/password/reset/{token}", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(p.Authenticate)

			r.Post("/logout", h.Logout)
			r.Get("/me", h.GetMe)
			r.Put("/update/me", h.UpdateProfile)
			r.Patch("/update/password", h.UpdatePassword)
		})
	})

	return r
}

func healthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := pinger.Ping(ctx); err != nil {
				w.Header().Set("Retry-After", retryAfter)
				writeFailure(w, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}

		writeSuccess(w, http.StatusOK, "ok", nil)
	}
}

// userIDFromRequest returns the subject placed in the context by the JWT middleware.
func userIDFromRequest(r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		return "", false
	}

	return claims.Subject, true
}
