package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/carehospital/portal/internal/platform/gateway"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		wantCode int
	}{
		{"staff allowed", gateway.RoleStaff, http.StatusOK},
		{"admin always allowed", gateway.RoleAdmin, http.StatusOK},
		{"patient forbidden", gateway.RolePatient, http.StatusForbidden},
		{"anonymous unauthorized", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.role != "" {
				req = req.WithContext(ContextWithSession(req.Context(), &Session{User: &gateway.User{Role: tt.role}}))
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
			err := RequireRole(gateway.RoleStaff)(handler)(c)

			code := rec.Code
			if he, ok := err.(*echo.HTTPError); ok {
				code = he.Code
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, code)
			}
		})
	}
}
