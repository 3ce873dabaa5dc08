package shell

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehospital/portal/internal/platform/auth"
	"github.com/carehospital/portal/internal/platform/gateway"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		hash          string
		authenticated bool
		want          Section
	}{
		{"", false, Home},
		{"#home", false, Home},
		{"#about", false, About},
		{"doctors", false, Doctors},
		{"#Services", false, Services},
		{"#nowhere", true, Home},
		{"#dashboard", false, Home},
		{"#dashboard", true, Dashboard},
		{" #contact ", false, Contact},
	}

	for _, tt := range tests {
		if got := Resolve(tt.hash, tt.authenticated); got != tt.want {
			t.Errorf("Resolve(%q, %v) = %q, want %q", tt.hash, tt.authenticated, got, tt.want)
		}
	}
}

func TestAuthUIFor(t *testing.T) {
	in := AuthUIFor(true)
	if in.ShowLogin || !in.ShowLogout || !in.ShowDashboardNav || in.AuthDialogOpen {
		t.Errorf("unexpected authenticated UI: %+v", in)
	}
	out := AuthUIFor(false)
	if !out.ShowLogin || out.ShowLogout || out.ShowDashboardNav || out.AuthDialogOpen {
		t.Errorf("unexpected unauthenticated UI: %+v", out)
	}
}

func TestBookAppointmentAction(t *testing.T) {
	a := BookAppointmentAction(true)
	if a.OpenAuthDialog || a.Hash != "#dashboard" || a.Tab != BookTab {
		t.Errorf("unexpected authenticated action: %+v", a)
	}
	a = BookAppointmentAction(false)
	if !a.OpenAuthDialog || a.Hash != "" {
		t.Errorf("unexpected unauthenticated action: %+v", a)
	}
}

func withSession(req *http.Request) *http.Request {
	s := &auth.Session{ID: uuid.New(), User: &gateway.User{ID: uuid.New(), Role: gateway.RolePatient}}
	return req.WithContext(auth.ContextWithSession(req.Context(), s))
}

func TestHandler_Page(t *testing.T) {
	h := NewHandler([]Tab{{Name: "book", Label: "Book Appointment"}})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Page(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `id="dashboard-nav" hidden`) && !strings.Contains(body, `hidden id="dashboard-nav"`) {
		t.Error("expected dashboard nav to be hidden when logged out")
	}
	if !strings.Contains(body, `id="logout-btn" type="button" hidden`) {
		t.Error("expected logout button to be hidden when logged out")
	}
	if !strings.Contains(body, `id="register-form"`) {
		t.Error("expected the auth dialog markup")
	}
}

func TestHandler_Page_Authenticated(t *testing.T) {
	h := NewHandler(nil)
	e := echo.New()
	req := withSession(httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Page(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `id="login-btn" type="button" hidden`) {
		t.Error("expected login button to be hidden when logged in")
	}
	if !strings.Contains(body, `"open_auth_dialog":false`) {
		t.Error("expected hero action to go to the dashboard")
	}
}

func TestHandler_Section_DashboardRedirectsWhenLoggedOut(t *testing.T) {
	h := NewHandler([]Tab{{Name: "book", Label: "Book Appointment"}})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("dashboard")

	if err := h.Section(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(SectionHeader); got != "home" {
		t.Errorf("expected section home, got %q", got)
	}
	if strings.Contains(rec.Body.String(), "dashboard-panel") {
		t.Error("dashboard markup must not be served when logged out")
	}
}

func TestHandler_Section_Dashboard(t *testing.T) {
	h := NewHandler([]Tab{{Name: "book", Label: "Book Appointment"}, {Name: "appointments", Label: "My Appointments"}})
	e := echo.New()
	req := withSession(httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("dashboard")

	if err := h.Section(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(SectionHeader); got != "dashboard" {
		t.Errorf("expected section dashboard, got %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-fragment="/fragments/dashboard/book"`) {
		t.Errorf("expected the first tab to load, got %s", body)
	}
	if !strings.Contains(body, "My Appointments") {
		t.Error("expected every tab to be listed")
	}
}

func TestHandler_Section_Catalog(t *testing.T) {
	h := NewHandler(nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("departments")

	if err := h.Section(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Loading departments...") {
		t.Error("expected the loading placeholder")
	}
}
