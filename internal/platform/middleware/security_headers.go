package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// pageCSP allows the shell page's own script and styles plus same-origin
// fetches and the live-update socket. Doctor photos may come from any https host.
const pageCSP = "default-src 'self'; img-src 'self' https: data:; style-src 'self' 'unsafe-inline'; " +
	"script-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:; frame-ancestors 'none'; form-action 'self'"

const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders sets security response headers. API responses get a
// deny-all CSP and are never cached; pages get a CSP that lets the shell run.
// HSTS is only sent when hsts is true.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			if strings.HasPrefix(c.Request().URL.Path, "/api/") {
				h.Set("Content-Security-Policy", apiCSP)
				// responses may carry patient data
				h.Set("Cache-Control", "no-store")
			} else {
				h.Set("Content-Security-Policy", pageCSP)
			}

			return next(c)
		}
	}
}
