// Package dashboard implements the logged-in patient's workflows: booking
// and cancelling appointments, checking in and out, editing the profile and
// writing to doctors. Staff endpoints confirm appointments and answer
// consultations.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/domain/session"
	"github.com/carehospital/portal/internal/domain/shell"
	"github.com/carehospital/portal/internal/platform/events"
	"github.com/carehospital/portal/internal/platform/gateway"
)

var (
	ErrNotAuthenticated  = errors.New("please login to continue")
	ErrProfileIncomplete = errors.New("please complete your profile first")
	ErrAlreadyCheckedIn  = errors.New("you are already checked in")
	ErrNotCheckedIn      = errors.New("you are not checked in")
	ErrInvalidTransition = errors.New("invalid appointment status change")
	ErrUnknownTab        = errors.New("unknown dashboard tab")
	ErrUnavailable       = errors.New("this information is unavailable right now, please try again")
)

// ValidationError lists form fields that are missing or malformed. The
// write it guards is never attempted.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// err returns e as an error, or nil when nothing was recorded.
func (e *ValidationError) err() error {
	if e.empty() {
		return nil
	}
	return e
}

func (e *ValidationError) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Missing = append(e.Missing, field)
	}
}

// id parses an optional uuid field; blank gives nil.
func (e *ValidationError) id(field, value string) *uuid.UUID {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		e.Invalid = append(e.Invalid, field)
		return nil
	}
	return &id
}

// ---------------------------------------------------------------------------
// Tabs
// ---------------------------------------------------------------------------

type Tab string

const (
	TabBook         Tab = shell.BookTab
	TabAppointments Tab = "appointments"
	TabCheckIn      Tab = "check-in"
	TabProfile      Tab = "profile"
	TabConsultation Tab = "consultation"
)

var Tabs = []Tab{TabBook, TabAppointments, TabCheckIn, TabProfile, TabConsultation}

var tabLabels = map[Tab]string{
	TabBook:         "Book Appointment",
	TabAppointments: "My Appointments",
	TabCheckIn:      "Check-In",
	TabProfile:      "My Profile",
	TabConsultation: "Consultation",
}

func ParseTab(s string) (Tab, error) {
	t := Tab(s)
	if _, ok := tabLabels[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
	}
	return t, nil
}

// Reloads reports whether selecting t fetches its panel data again.
func (t Tab) Reloads() bool {
	return t == TabAppointments || t == TabCheckIn || t == TabConsultation
}

// ShellTabs lists the tabs for the shell's dashboard section.
func ShellTabs() []shell.Tab {
	out := make([]shell.Tab, 0, len(Tabs))
	for _, t := range Tabs {
		out = append(out, shell.Tab{Name: string(t), Label: tabLabels[t]})
	}
	return out
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Store is the part of the gateway the dashboard uses.
type Store interface {
	Departments(ctx context.Context) ([]*gateway.Department, bool)
	AvailableDoctors(ctx context.Context) ([]*gateway.Doctor, bool)
	DoctorsByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*gateway.Doctor, bool)
	ServicesByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*gateway.Service, bool)

	PatientAppointments(ctx context.Context, patientID uuid.UUID) ([]*gateway.Appointment, bool)
	AppointmentByID(ctx context.Context, id uuid.UUID) (*gateway.Appointment, error)
	CreateAppointment(ctx context.Context, a *gateway.Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status string) error

	ActiveCheckIn(ctx context.Context, patientID uuid.UUID) (*gateway.CheckIn, bool)
	CheckInHistory(ctx context.Context, patientID uuid.UUID, limit int) ([]*gateway.CheckIn, bool)
	CreateCheckIn(ctx context.Context, c *gateway.CheckIn) error
	CheckOut(ctx context.Context, id uuid.UUID) (*gateway.CheckIn, error)

	PatientByUser(ctx context.Context, userID uuid.UUID) (*gateway.Patient, bool)
	CreatePatient(ctx context.Context, p *gateway.Patient) error
	UpdatePatient(ctx context.Context, p *gateway.Patient) error

	PatientConsultations(ctx context.Context, patientID uuid.UUID) ([]*gateway.Consultation, bool)
	ConsultationByID(ctx context.Context, id uuid.UUID) (*gateway.Consultation, error)
	CreateConsultation(ctx context.Context, c *gateway.Consultation) error
	RespondConsultation(ctx context.Context, id uuid.UUID, response string) error
}

// PatientRefresher receives the Patient after a profile edit.
type PatientRefresher interface {
	SetPatient(sessionID uuid.UUID, p *gateway.Patient)
}

type Service struct {
	store        Store
	sessions     PatientRefresher
	events       events.Publisher
	log          zerolog.Logger
	historyLimit int
	now          func() time.Time
}

func NewService(store Store, sessions PatientRefresher, pub events.Publisher, log zerolog.Logger, historyLimit int) *Service {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Service{
		store:        store,
		sessions:     sessions,
		events:       pub,
		log:          log.With().Str("component", "dashboard").Logger(),
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// requirePatient gates every patient flow: a user, then a Patient record.
func requirePatient(snap session.Snapshot) (*gateway.Patient, error) {
	if !snap.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	if !snap.HasProfile() {
		return nil, ErrProfileIncomplete
	}
	return snap.Patient, nil
}

func (s *Service) publish(ctx context.Context, typ events.Type, patientID, subjectID uuid.UUID, data map[string]any) {
	s.events.Publish(ctx, events.Event{
		Type:      typ,
		PatientID: patientID,
		SubjectID: subjectID,
		Data:      data,
	})
}
