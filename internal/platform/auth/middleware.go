package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// SessionCookie holds the access token for browser requests.
const SessionCookie = "portal_session"

type contextKey string

const SessionKey contextKey = "auth_session"

// BearerToken returns the token from the Authorization header, falling back
// to the session cookie. Empty when neither is present.
func BearerToken(c echo.Context) string {
	if h := c.Request().Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// SetSessionCookie stores the token so subsequent page loads are authenticated.
func SetSessionCookie(c echo.Context, s *Session, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// SessionFromContext returns the authenticated session, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(SessionKey).(*Session)
	return s
}

func RoleFromContext(ctx context.Context) string {
	if s := SessionFromContext(ctx); s != nil && s.User != nil {
		return s.User.Role
	}
	return ""
}

// RequireSession rejects requests that carry no authenticated session.
func RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if SessionFromContext(c.Request().Context()) == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			return next(c)
		}
	}
}
