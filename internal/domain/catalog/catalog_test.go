package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/platform/gateway"
	"github.com/carehospital/portal/internal/platform/gateway/gatewaytest"
)

type stubSource struct {
	departments []*gateway.Department
	doctors     []*gateway.Doctor
	services    []*gateway.Service
	ok          bool
	calls       int
}

func (s *stubSource) Departments(ctx context.Context) ([]*gateway.Department, bool) {
	s.calls++
	return s.departments, s.ok
}

func (s *stubSource) AvailableDoctors(ctx context.Context) ([]*gateway.Doctor, bool) {
	s.calls++
	return s.doctors, s.ok
}

func (s *stubSource) Services(ctx context.Context) ([]*gateway.Service, bool) {
	s.calls++
	return s.services, s.ok
}

func TestLoader_States(t *testing.T) {
	ctx := context.Background()

	l := NewLoader(&stubSource{ok: false})
	if got := l.Departments(ctx).State; got != StateUnavailable {
		t.Errorf("expected unavailable on read failure, got %s", got)
	}

	l = NewLoader(&stubSource{ok: true})
	if got := l.Doctors(ctx).State; got != StateEmpty {
		t.Errorf("expected empty, got %s", got)
	}

	src := &stubSource{ok: true, services: []*gateway.Service{{Name: "X-Ray"}}}
	l = NewLoader(src)
	got := l.Services(ctx)
	if got.State != StateReady || len(got.Items) != 1 {
		t.Errorf("expected one ready item, got %+v", got)
	}
}

func TestLoader_NoCaching(t *testing.T) {
	src := &stubSource{ok: true}
	l := NewLoader(src)
	l.Departments(context.Background())
	l.Departments(context.Background())
	if src.calls != 2 {
		t.Errorf("expected every load to re-fetch, got %d calls", src.calls)
	}
}

func TestDepartmentIcon(t *testing.T) {
	tests := map[string]string{
		"cardiology": "❤️",
		"Neurology":  "🧠",
		"urology":    "🩺",
		"unknown":    "🏥",
		"":           "🏥",
	}
	for key, want := range tests {
		if got := DepartmentIcon(key); got != want {
			t.Errorf("DepartmentIcon(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestPrice(t *testing.T) {
	if got := Price(150); got != "$150.00" {
		t.Errorf("got %q", got)
	}
	if got := Price(99.5); got != "$99.50" {
		t.Errorf("got %q", got)
	}
}

func TestRender_Placeholders(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderDepartments(&buf, Listing[*gateway.Department]{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Loading departments...") {
		t.Errorf("expected loading placeholder, got %q", buf.String())
	}

	buf.Reset()
	if err := RenderDoctors(&buf, newListing[*gateway.Doctor](nil, true)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No doctors available at the moment.") {
		t.Errorf("expected empty message, got %q", buf.String())
	}

	buf.Reset()
	if err := RenderServices(&buf, newListing[*gateway.Service](nil, false)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Services are unavailable") {
		t.Errorf("expected unavailable message, got %q", buf.String())
	}
}

func TestRender_Cards(t *testing.T) {
	var buf bytes.Buffer
	err := RenderDepartments(&buf, newListing([]*gateway.Department{
		{Name: "Cardiology", Description: "Heart care", Icon: "cardiology"},
		{Name: "Oncology", Description: "Cancer care", Icon: "oncology"},
	}, true))
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, `class="department-card"`) != 2 {
		t.Errorf("expected two cards, got %s", out)
	}
	if !strings.Contains(out, "❤️") || !strings.Contains(out, "🏥") {
		t.Errorf("expected icon lookup with fallback, got %s", out)
	}

	buf.Reset()
	err = RenderDoctors(&buf, newListing([]*gateway.Doctor{{
		FirstName: "Mark", LastName: "Stevens", Specialization: "Cardiology", Qualification: "MD, FACC",
		ExperienceYears: 20, Bio: "Renowned cardiologist", Department: &gateway.DepartmentSummary{Name: "Cardiology"},
	}}, true))
	if err != nil {
		t.Fatal(err)
	}
	out = buf.String()
	for _, want := range []string{"Dr. Mark Stevens", "MD, FACC", "20 years", "<strong>Department:</strong> Cardiology", "Renowned cardiologist"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor card missing %q: %s", want, out)
		}
	}

	buf.Reset()
	err = RenderServices(&buf, newListing([]*gateway.Service{{
		Name: "ECG/EKG", Description: "Electrocardiogram", DurationMinutes: 15, Price: 100,
		Department: &gateway.DepartmentSummary{Name: "Cardiology"},
	}}, true))
	if err != nil {
		t.Fatal(err)
	}
	out = buf.String()
	for _, want := range []string{"ECG/EKG", "15 minutes", "$100.00", "Cardiology"} {
		if !strings.Contains(out, want) {
			t.Errorf("service card missing %q: %s", want, out)
		}
	}
}

func TestRender_EscapesContent(t *testing.T) {
	var buf bytes.Buffer
	err := RenderDepartments(&buf, newListing([]*gateway.Department{{Name: "<script>alert(1)</script>"}}, true))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Error("expected names to be escaped")
	}
}

func TestSeed(t *testing.T) {
	mem := gatewaytest.NewMemory()
	gw := gatewaytest.NewGateway(mem)
	ctx := context.Background()

	res, err := Seed(ctx, gw, zerolog.Nop())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res.Departments != 8 || res.Doctors != 6 || res.Services != len(seedServices) {
		t.Errorf("unexpected result %+v", res)
	}
	if mem.CallCount("tx.Commit") != 1 {
		t.Error("expected the seed to run in one transaction")
	}

	// idempotent
	if _, err := Seed(ctx, gw, zerolog.Nop()); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	doctors, ok := gw.AvailableDoctors(ctx)
	if !ok || len(doctors) != 6 {
		t.Fatalf("expected 6 doctors after reseeding, got %d", len(doctors))
	}
	if doctors[0].LastName != "Chen" {
		t.Errorf("expected last-name order, got %s first", doctors[0].LastName)
	}
	departments, _ := gw.Departments(ctx)
	if len(departments) != 8 || departments[0].Name != "Cardiology" {
		t.Errorf("unexpected departments %d, first %q", len(departments), departments[0].Name)
	}
}

type failingSeedStore struct {
	*gateway.Gateway
}

func (failingSeedStore) UpsertDoctor(ctx context.Context, d *gateway.Doctor) error {
	return errors.New("insert doctors: connection reset")
}

func TestSeed_Error(t *testing.T) {
	mem := gatewaytest.NewMemory()
	_, err := Seed(context.Background(), failingSeedStore{gatewaytest.NewGateway(mem)}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error")
	}
	if mem.CallCount("tx.Commit") != 0 {
		t.Error("expected no commit after a failed upsert")
	}
}

func TestHandler_Fragments(t *testing.T) {
	mem := gatewaytest.NewMemory()
	gw := gatewaytest.NewGateway(mem)
	if _, err := Seed(context.Background(), gw, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(NewLoader(gw))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/fragments/doctors", nil)
	rec := httptest.NewRecorder()
	if err := h.DoctorsFragment(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if strings.Count(rec.Body.String(), `class="doctor-card"`) != 6 {
		t.Errorf("expected six doctor cards")
	}
}

func TestHandler_ListDepartments(t *testing.T) {
	h := NewHandler(NewLoader(&stubSource{ok: true, departments: []*gateway.Department{{ID: uuid.New(), Name: "Radiology"}}}))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/departments", nil)
	rec := httptest.NewRecorder()
	if err := h.ListDepartments(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}

	var body struct {
		State State                `json:"state"`
		Items []gateway.Department `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.State != StateReady || len(body.Items) != 1 || body.Items[0].Name != "Radiology" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestHandler_ListServices_Unavailable(t *testing.T) {
	h := NewHandler(NewLoader(&stubSource{ok: false}))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)
	rec := httptest.NewRecorder()
	if err := h.ListServices(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"state":"unavailable"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
