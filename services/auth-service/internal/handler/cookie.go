package handler

import (
	"net/http"
	"time"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/config"
	authtypes "github.com/vasapolrittideah/portfolio-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/portfolio-api/shared/middleware"
)

// RefreshTokenCookie is the cookie that carries the refresh token.
const RefreshTokenCookie = "refreshToken"

// CookieCodec writes session tokens as cookies. Each cookie lives exactly as long as the token it carries.
type CookieCodec struct {
	domain     string
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookieCodec creates a CookieCodec from the cookie and token settings.
func NewCookieCodec(cookieCfg config.CookieConfig, tokenCfg config.TokenConfig) *CookieCodec {
	return &CookieCodec{
		domain:     cookieCfg.Domain,
		secure:     cookieCfg.Secure,
		accessTTL:  tokenCfg.AccessTokenExpiresIn,
		refreshTTL: tokenCfg.RefreshTokenExpiresIn,
	}
}

// SetSession writes both token cookies.
func (c *CookieCodec) SetSession(w http.ResponseWriter, tokens *authtypes.Tokens) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, tokens.AccessToken, c.accessTTL, tokens.AccessTokenExpiresAt))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, tokens.RefreshToken, c.refreshTTL, tokens.RefreshTokenExpiresAt))
}

// ClearSession expires both token cookies with the same attributes they were set with.
func (c *CookieCodec) ClearSession(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		cookie := c.cookie(name, "", 0, time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

// RefreshToken returns the refresh token cookie value, or "" when absent.
func (c *CookieCodec) RefreshToken(r *http.Request) string {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil {
		return ""
	}

	return cookie.Value
}

func (c *CookieCodec) cookie(name, value string, ttl time.Duration, expires time.Time) *http.Cookie {
	sameSite := http.SameSiteNoneMode
	if !c.secure {
		// Browsers drop SameSite=None cookies that are not Secure.
		sameSite = http.SameSiteLaxMode
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   int(ttl.Seconds()),
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: sameSite,
	}
}
