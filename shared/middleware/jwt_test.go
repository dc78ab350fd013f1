package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/portfolio-api/shared/auth"
	"github.com/vasapolrittideah/portfolio-api/shared/middleware"
)

const secret = "access-secret"

func signAccess(t *testing.T, a *auth.JWTAuthenticator, subject string, issuedAt time.Time, ttl time.Duration) string {
	t.Helper()

	tok, err := a.GenerateToken(&auth.AccessClaims{
		Email: "a@x.com",
		Name:  "Ada",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.Issuer(),
			Audience:  jwt.ClaimStrings{a.Audience()},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}, secret)
	require.NoError(t, err)

	return tok
}

func protected(t *testing.T, a *auth.JWTAuthenticator) http.Handler {
	t.Helper()

	return middleware.NewJWTMiddleware(a, secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(claims.Subject))
	}))
}

func TestJWTMiddleware(t *testing.T) {
	a := auth.NewJWTAuthenticator("portfolio", "portfolio")
	h := protected(t, a)

	t.Run("accepts cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: signAccess(t, a, "u1", time.Now(), time.Hour)})
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", rec.Body.String())
	})

	t.Run("accepts bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signAccess(t, a, "u2", time.Now(), time.Hour))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u2", rec.Body.String())
	})

	t.Run("rejects missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"success":false,"message":"unauthorized request"}`, rec.Body.String())
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("reports expired token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signAccess(t, a, "u3", time.Now().Add(-2*time.Hour), time.Hour))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "access token has expired")
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		other, err := a.GenerateToken(&auth.AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u4",
			Issuer:    a.Issuer(),
			Audience:  jwt.ClaimStrings{a.Audience()},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}, "refresh-secret")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+other)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
