package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vasapolrittideah/portfolio-api/shared/auth"
)

// AccessTokenCookie is the cookie that carries the access token.
const AccessTokenCookie = "accessToken"

type contextKey struct{}

// UserClaimsKey is the request context key holding *auth.AccessClaims.
var UserClaimsKey = contextKey{}

var (
	errMissingToken        = errors.New("missing access token")
	errInvalidHeaderFormat = errors.New("invalid authorization header format")
)

// NewJWTMiddleware rejects requests without a valid access token and stores the
// verified claims in the request context. The token is read from the access
// token cookie first, then from an "Authorization: Bearer" header.
func NewJWTMiddleware(jwtAuth *auth.JWTAuthenticator, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractAndValidateJWT(r, jwtAuth, secret)
			if err != nil {
				message := "unauthorized request"
				if errors.Is(err, auth.ErrTokenExpired) {
					message = "access token has expired"
				}
				writeUnauthorized(w, message)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the access token claims stored by the JWT middleware.
func ClaimsFromContext(ctx context.Context) (*auth.AccessClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.AccessClaims)
	return claims, ok
}

func extractAndValidateJWT(r *http.Request, jwtAuth *auth.JWTAuthenticator, secret string) (*auth.AccessClaims, error) {
	tokenString, err := extractToken(r)
	if err != nil {
		return nil, err
	}

	claims := &auth.AccessClaims{}
	if _, err := jwtAuth.ValidateTokenWithClaims(tokenString, secret, claims); err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, auth.ErrTokenInvalid
	}

	return claims, nil
}

func extractToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errInvalidHeaderFormat
	}

	return parts[1], nil
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
