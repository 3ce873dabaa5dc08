package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carehospital/portal/internal/domain/shell"
	"github.com/carehospital/portal/internal/platform/auth"
)

// SnapshotKey is the echo context key Attach stores the Snapshot under.
const SnapshotKey = "session_snapshot"

// Attach resolves the request's token to a Snapshot. Authenticated requests
// also get the auth session on the request context for RequireSession and
// RequireRole. Requests without a valid token continue unauthenticated.
func (c *Controller) Attach() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			token := auth.BearerToken(ec)
			if token == "" {
				return next(ec)
			}
			req := ec.Request()
			snap, s := c.resolve(req.Context(), token)
			if s != nil {
				ec.SetRequest(req.WithContext(auth.ContextWithSession(req.Context(), s)))
				ec.Set(SnapshotKey, snap)
			}
			return next(ec)
		}
	}
}

// FromContext returns the Snapshot Attach stored, or the unauthenticated one.
func FromContext(c echo.Context) Snapshot {
	snap, _ := c.Get(SnapshotKey).(Snapshot)
	return snap
}

type Handler struct {
	ctl          *Controller
	secureCookie bool
}

func NewHandler(ctl *Controller, secureCookie bool) *Handler {
	return &Handler{ctl: ctl, secureCookie: secureCookie}
}

// RegisterRoutes mounts the auth endpoints on g. limiter, when non-nil, is
// applied to login and register only.
func (h *Handler) RegisterRoutes(g *echo.Group, limiter echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if limiter != nil {
		mw = append(mw, limiter)
	}
	g.POST("/auth/register", h.Register, mw...)
	g.POST("/auth/login", h.Login, mw...)
	g.POST("/auth/logout", h.Logout)
	g.GET("/auth/session", h.Session)
}

type registerRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	ProfileFields
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.ctl.Register(c.Request().Context(), req.Email, req.Password, req.ProfileFields)
	if err != nil {
		return authError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"user":  u,
		"flash": shell.Success("Registration successful! You can now login."),
	})
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s, err := h.ctl.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return authError(err)
	}
	auth.SetSessionCookie(c, s, h.secureCookie)
	return c.JSON(http.StatusOK, map[string]any{
		"access_token": s.Token,
		"expires_at":   s.ExpiresAt,
		"user":         s.User,
		"redirect":     shell.Dashboard.Hash(),
	})
}

// Logout always clears the cookie. Signing out an unknown session is an
// error for API callers but the browser still ends up logged out.
func (h *Handler) Logout(c echo.Context) error {
	token := auth.BearerToken(c)
	auth.ClearSessionCookie(c, h.secureCookie)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.ErrSessionNotFound.Error())
	}
	if err := h.ctl.Logout(c.Request().Context(), token); err != nil {
		return authError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"redirect": shell.Home.Hash()})
}

func (h *Handler) Session(c echo.Context) error {
	snap := FromContext(c)
	return c.JSON(http.StatusOK, map[string]any{
		"session": snap,
		"ui":      h.ctl.UIState(snap),
		"hero":    shell.BookAppointmentAction(snap.Authenticated()),
	})
}

func authError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
