// Package gateway is the only code that talks to storage. Reads that feed a
// rendered listing never fail outward: they log and report ok=false so the
// caller can show its "unavailable" message. Writes and single-record
// lookups return errors.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/platform/db"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with existing data")
)

const uniqueViolation = "23505"

// Gateway fronts the repositories with the two failure tiers.
type Gateway struct {
	repos Repos
	tx    db.Beginner
	log   zerolog.Logger
	now   func() time.Time
}

// New builds a gateway. tx may be nil when InTx is never used.
func New(repos Repos, tx db.Beginner, log zerolog.Logger) *Gateway {
	return &Gateway{
		repos: repos,
		tx:    tx,
		log:   log.With().Str("component", "gateway").Logger(),
		now:   time.Now,
	}
}

// InTx runs fn in a single transaction; every gateway call made with the
// context passed to fn joins it.
func (g *Gateway) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, g.tx, fn)
}

func (g *Gateway) readFailed(table string, err error) {
	g.log.Error().Err(err).Str("table", table).Msg("read failed")
}

func writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func lookupErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// =========== Reads (logged, ok flag) ===========

func (g *Gateway) Departments(ctx context.Context) ([]*Department, bool) {
	items, err := g.repos.Departments.List(ctx)
	if err != nil {
		g.readFailed("departments", err)
		return nil, false
	}
	return items, true
}

func (g *Gateway) AvailableDoctors(ctx context.Context) ([]*Doctor, bool) {
	items, err := g.repos.Doctors.ListAvailable(ctx)
	if err != nil {
		g.readFailed("doctors", err)
		return nil, false
	}
	return items, true
}

func (g *Gateway) DoctorsByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Doctor, bool) {
	items, err := g.repos.Doctors.ListAvailableByDepartment(ctx, departmentID)
	if err != nil {
		g.readFailed("doctors", err)
		return nil, false
	}
	return items, true
}

func (g *Gateway) Services(ctx context.Context) ([]*Service, bool) {
	items, err := g.repos.Services.List(ctx)
	if err != nil {
		g.readFailed("services", err)
		return nil, false
	}
	return items, true
}

func (g *Gateway) ServicesByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Service, bool) {
	items, err := g.repos.Services.ListByDepartment(ctx, departmentID)
	if err != nil {
		g.readFailed("services", err)
		return nil, false
	}
	return items, true
}

// PatientByUser returns nil, true when the user has no patient profile.
func (g *Gateway) PatientByUser(ctx context.Context, userID uuid.UUID) (*Patient, bool) {
	p, err := g.repos.Patients.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, true
	}
	if err != nil {
		g.readFailed("patients", err)
		return nil, false
	}
	return p, true
}

func (g *Gateway) PatientAppointments(ctx context.Context, patientID uuid.UUID) ([]*Appointment, bool) {
	items, err := g.repos.Appointments.ListByPatient(ctx, patientID)
	if err != nil {
		g.readFailed("appointments", err)
		return nil, false
	}
	return items, true
}

// ActiveCheckIn returns nil, true when the patient is not checked in.
func (g *Gateway) ActiveCheckIn(ctx context.Context, patientID uuid.UUID) (*CheckIn, bool) {
	c, err := g.repos.CheckIns.GetActive(ctx, patientID)
	if errors.Is(err, ErrNotFound) {
		return nil, true
	}
	if err != nil {
		g.readFailed("check_ins", err)
		return nil, false
	}
	return c, true
}

func (g *Gateway) CheckInHistory(ctx context.Context, patientID uuid.UUID, limit int) ([]*CheckIn, bool) {
	items, err := g.repos.CheckIns.ListByPatient(ctx, patientID, limit)
	if err != nil {
		g.readFailed("check_ins", err)
		return nil, false
	}
	return items, true
}

func (g *Gateway) PatientConsultations(ctx context.Context, patientID uuid.UUID) ([]*Consultation, bool) {
	items, err := g.repos.Consultations.ListByPatient(ctx, patientID)
	if err != nil {
		g.readFailed("consultations", err)
		return nil, false
	}
	return items, true
}

// =========== Lookups (ErrNotFound or wrapped error) ===========

// UserByEmail matches the email case-insensitively by normalising to lower case.
func (g *Gateway) UserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := g.repos.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, lookupErr("get user by email", err)
	}
	return u, nil
}

func (g *Gateway) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := g.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get user", err)
	}
	return u, nil
}

func (g *Gateway) SessionByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := g.repos.Sessions.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get session", err)
	}
	return s, nil
}

func (g *Gateway) AppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := g.repos.Appointments.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get appointment", err)
	}
	return a, nil
}

func (g *Gateway) ConsultationByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := g.repos.Consultations.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get consultation", err)
	}
	return c, nil
}

func (g *Gateway) DepartmentByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	d, err := g.repos.Departments.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get department", err)
	}
	return d, nil
}

// =========== Writes ===========

func (g *Gateway) CreateUser(ctx context.Context, u *User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RolePatient
	}
	return writeErr("create user", g.repos.Users.Create(ctx, u))
}

func (g *Gateway) CreateSession(ctx context.Context, s *Session) error {
	return writeErr("create session", g.repos.Sessions.Create(ctx, s))
}

// RevokeSession returns ErrNotFound when the session is unknown or already revoked.
func (g *Gateway) RevokeSession(ctx context.Context, id uuid.UUID) error {
	return writeErr("revoke session", g.repos.Sessions.Revoke(ctx, id, g.now()))
}

func (g *Gateway) CreatePatient(ctx context.Context, p *Patient) error {
	return writeErr("create patient", g.repos.Patients.Create(ctx, p))
}

func (g *Gateway) UpdatePatient(ctx context.Context, p *Patient) error {
	return writeErr("update patient", g.repos.Patients.Update(ctx, p))
}

func (g *Gateway) CreateAppointment(ctx context.Context, a *Appointment) error {
	return writeErr("create appointment", g.repos.Appointments.Create(ctx, a))
}

func (g *Gateway) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status string) error {
	return writeErr("update appointment status", g.repos.Appointments.UpdateStatus(ctx, id, status))
}

// CreateCheckIn returns ErrConflict when the patient already has an open visit.
func (g *Gateway) CreateCheckIn(ctx context.Context, c *CheckIn) error {
	if c.CheckInTime.IsZero() {
		c.CheckInTime = g.now()
	}
	return writeErr("create check-in", g.repos.CheckIns.Create(ctx, c))
}

// CheckOut closes an open visit and returns the updated row. ErrNotFound
// means the visit was already closed or does not exist.
func (g *Gateway) CheckOut(ctx context.Context, id uuid.UUID) (*CheckIn, error) {
	c, err := g.repos.CheckIns.CheckOut(ctx, id, g.now())
	if err != nil {
		return nil, writeErr("check out", err)
	}
	return c, nil
}

func (g *Gateway) CreateConsultation(ctx context.Context, c *Consultation) error {
	return writeErr("create consultation", g.repos.Consultations.Create(ctx, c))
}

func (g *Gateway) RespondConsultation(ctx context.Context, id uuid.UUID, response string) error {
	return writeErr("respond to consultation", g.repos.Consultations.Respond(ctx, id, response, g.now()))
}

func (g *Gateway) UpsertDepartment(ctx context.Context, d *Department) error {
	return writeErr("upsert department", g.repos.Departments.Upsert(ctx, d))
}

func (g *Gateway) UpsertDoctor(ctx context.Context, d *Doctor) error {
	return writeErr("upsert doctor", g.repos.Doctors.Upsert(ctx, d))
}

func (g *Gateway) UpsertService(ctx context.Context, s *Service) error {
	return writeErr("upsert service", g.repos.Services.Upsert(ctx, s))
}
