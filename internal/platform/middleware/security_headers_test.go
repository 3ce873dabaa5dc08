package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runSecurityHeaders(t *testing.T, path string, hsts bool) http.Header {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), rec)

	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	if err := SecurityHeaders(hsts)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec.Header()
}

func TestSecurityHeaders_API(t *testing.T) {
	h := runSecurityHeaders(t, "/api/v1/appointments", true)

	expected := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"X-XSS-Protection":          "0",
		"Content-Security-Policy":   apiCSP,
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Cache-Control":             "no-store",
	}
	for header, want := range expected {
		if got := h.Get(header); got != want {
			t.Errorf("header %s: got %q, want %q", header, got, want)
		}
	}
}

func TestSecurityHeaders_Page(t *testing.T) {
	h := runSecurityHeaders(t, "/", false)

	if got := h.Get("Content-Security-Policy"); got != pageCSP {
		t.Errorf("expected page CSP, got %q", got)
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Error("expected no HSTS when disabled")
	}
	if h.Get("Cache-Control") != "" {
		t.Error("pages should not be forced to no-store")
	}
}
