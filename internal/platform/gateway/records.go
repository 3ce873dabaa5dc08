package gateway

import (
	"time"

	"github.com/google/uuid"
)

const (
	RolePatient = "patient"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
	AppointmentCompleted = "completed"
)

const (
	CheckInActive = "checked_in"
	CheckInClosed = "checked_out"
)

const (
	ConsultationPending   = "pending"
	ConsultationResponded = "responded"
	ConsultationClosed    = "closed"
)

// User maps to the users table. Created only through the auth provider.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Session maps to the auth_sessions table.
type Session struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// Live reports whether the session can still authenticate requests at now.
func (s *Session) Live(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Patient maps to the patients table. At most one per user.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	FirstName        string     `db:"first_name" json:"first_name"`
	LastName         string     `db:"last_name" json:"last_name"`
	Phone            string     `db:"phone" json:"phone"`
	Gender           string     `db:"gender" json:"gender"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address          string     `db:"address" json:"address"`
	EmergencyContact string     `db:"emergency_contact" json:"emergency_contact"`
	BloodGroup       string     `db:"blood_group" json:"blood_group"`
	Allergies        string     `db:"allergies" json:"allergies"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Patient) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Department maps to the departments table.
type Department struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Icon        string    `db:"icon" json:"icon"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DepartmentSummary is the joined department name on doctors, services and appointments.
type DepartmentSummary struct {
	Name string `json:"name"`
}

// Doctor maps to the doctors table.
type Doctor struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	DepartmentID    uuid.UUID          `db:"department_id" json:"department_id"`
	FirstName       string             `db:"first_name" json:"first_name"`
	LastName        string             `db:"last_name" json:"last_name"`
	Specialization  string             `db:"specialization" json:"specialization"`
	Qualification   string             `db:"qualification" json:"qualification"`
	ExperienceYears int                `db:"experience_years" json:"experience_years"`
	ImageURL        string             `db:"image_url" json:"image_url"`
	Bio             string             `db:"bio" json:"bio"`
	Available       bool               `db:"available" json:"available"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	Department      *DepartmentSummary `json:"department,omitempty"`
}

// DoctorSummary is the joined doctor on appointments and consultations.
type DoctorSummary struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Specialization string `json:"specialization"`
}

// Service maps to the services table.
type Service struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	DepartmentID    uuid.UUID          `db:"department_id" json:"department_id"`
	Name            string             `db:"name" json:"name"`
	Description     string             `db:"description" json:"description"`
	DurationMinutes int                `db:"duration_minutes" json:"duration_minutes"`
	Price           float64            `db:"price" json:"price"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	Department      *DepartmentSummary `json:"department,omitempty"`
}

// ServiceSummary is the joined service name on appointments.
type ServiceSummary struct {
	Name string `json:"name"`
}

// Appointment maps to the appointments table.
type Appointment struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	PatientID       uuid.UUID          `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID          `db:"doctor_id" json:"doctor_id"`
	DepartmentID    uuid.UUID          `db:"department_id" json:"department_id"`
	ServiceID       *uuid.UUID         `db:"service_id" json:"service_id,omitempty"`
	AppointmentDate time.Time          `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string             `db:"appointment_time" json:"appointment_time"`
	Notes           string             `db:"notes" json:"notes"`
	Status          string             `db:"status" json:"status"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
	Doctor          *DoctorSummary     `json:"doctor,omitempty"`
	Department      *DepartmentSummary `json:"department,omitempty"`
	Service         *ServiceSummary    `json:"service,omitempty"`
}

// CheckIn maps to the check_ins table. CheckOutTime is nil while the visit is open.
type CheckIn struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	CheckInTime   time.Time  `db:"check_in_time" json:"check_in_time"`
	CheckOutTime  *time.Time `db:"check_out_time" json:"check_out_time"`
	Reason        string     `db:"reason" json:"reason"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Consultation maps to the consultations table.
type Consultation struct {
	ID                   uuid.UUID      `db:"id" json:"id"`
	PatientID            uuid.UUID      `db:"patient_id" json:"patient_id"`
	DoctorID             uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	Subject              string         `db:"subject" json:"subject"`
	Message              string         `db:"message" json:"message"`
	CallbackRequested    bool           `db:"callback_requested" json:"callback_requested"`
	PreferredContactTime string         `db:"preferred_contact_time" json:"preferred_contact_time"`
	Status               string         `db:"status" json:"status"`
	Response             *string        `db:"response" json:"response,omitempty"`
	RespondedAt          *time.Time     `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
	Doctor               *DoctorSummary `json:"doctor,omitempty"`
}
