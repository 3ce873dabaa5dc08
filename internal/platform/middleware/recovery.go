package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/platform/auth"
)

// PanicMessage is what the visitor sees when a handler panics.
const PanicMessage = "Something went wrong. Please try again."

// Recovery turns a handler panic into a 500 carrying PanicMessage. The panic
// value and stack only go to the log.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				req := c.Request()
				rid, _ := c.Get("request_id").(string)
				evt := logger.Error().
					Str("request_id", rid).
					Str("method", req.Method).
					Str("path", req.URL.Path).
					Interface("panic", r).
					Bytes("stack", debug.Stack())
				if s := auth.SessionFromContext(req.Context()); s != nil && s.User != nil {
					evt = evt.Str("user_id", s.User.ID.String())
				}
				evt.Msg("handler panicked")

				err = echo.NewHTTPError(http.StatusInternalServerError, PanicMessage)
			}()
			return next(c)
		}
	}
}
