package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
}

type DepartmentRepository interface {
	List(ctx context.Context) ([]*Department, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	Upsert(ctx context.Context, d *Department) error
}

type DoctorRepository interface {
	ListAvailable(ctx context.Context) ([]*Doctor, error)
	ListAvailableByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Doctor, error)
	Upsert(ctx context.Context, d *Doctor) error
}

type ServiceRepository interface {
	List(ctx context.Context) ([]*Service, error)
	ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*Service, error)
	Upsert(ctx context.Context, s *Service) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type CheckInRepository interface {
	Create(ctx context.Context, c *CheckIn) error
	GetActive(ctx context.Context, patientID uuid.UUID) (*CheckIn, error)
	// CheckOut closes the visit only if it is still open.
	CheckOut(ctx context.Context, id uuid.UUID, at time.Time) (*CheckIn, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*CheckIn, error)
}

type ConsultationRepository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error)
	Respond(ctx context.Context, id uuid.UUID, response string, at time.Time) error
}

// Repos bundles every repository the gateway fronts.
type Repos struct {
	Users         UserRepository
	Sessions      SessionRepository
	Patients      PatientRepository
	Departments   DepartmentRepository
	Doctors       DoctorRepository
	Services      ServiceRepository
	Appointments  AppointmentRepository
	CheckIns      CheckInRepository
	Consultations ConsultationRepository
}
