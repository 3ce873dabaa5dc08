package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carehospital/portal/internal/domain/session"
	"github.com/carehospital/portal/internal/platform/events"
	"github.com/carehospital/portal/internal/platform/gateway"
)

const (
	DepartmentPlaceholder = "Select Department"
	DoctorPlaceholder     = "Select Doctor"
	ServicePlaceholder    = "Select Service"
)

const dateLayout = "2006-01-02"

// Option is one entry of a select list. The placeholder has an empty value.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func doctorOptions(doctors []*gateway.Doctor) []Option {
	opts := []Option{{Label: DoctorPlaceholder}}
	for _, d := range doctors {
		opts = append(opts, Option{
			Value: d.ID.String(),
			Label: fmt.Sprintf("Dr. %s %s - %s", d.FirstName, d.LastName, d.Specialization),
		})
	}
	return opts
}

func serviceOptions(services []*gateway.Service) []Option {
	opts := []Option{{Label: ServicePlaceholder}}
	for _, sv := range services {
		opts = append(opts, Option{Value: sv.ID.String(), Label: fmt.Sprintf("%s - $%.2f", sv.Name, sv.Price)})
	}
	return opts
}

type BookingOptions struct {
	Departments []Option `json:"departments"`
	// MinDate guides the date picker only; earlier dates are accepted.
	MinDate string `json:"min_date"`
}

func (s *Service) BookingOptions(ctx context.Context) BookingOptions {
	opts := BookingOptions{
		Departments: []Option{{Label: DepartmentPlaceholder}},
		MinDate:     s.now().Format(dateLayout),
	}
	departments, _ := s.store.Departments(ctx)
	for _, d := range departments {
		opts.Departments = append(opts.Departments, Option{Value: d.ID.String(), Label: d.Name})
	}
	return opts
}

type DepartmentOptions struct {
	Doctors  []Option `json:"doctors"`
	Services []Option `json:"services"`
}

// DepartmentChanged rebuilds both dependent lists from scratch. A blank or
// malformed department, or a failed read, leaves only the placeholders.
func (s *Service) DepartmentChanged(ctx context.Context, departmentID string) DepartmentOptions {
	out := DepartmentOptions{Doctors: doctorOptions(nil), Services: serviceOptions(nil)}
	id, err := uuid.Parse(strings.TrimSpace(departmentID))
	if err != nil {
		return out
	}
	if doctors, ok := s.store.DoctorsByDepartment(ctx, id); ok {
		out.Doctors = doctorOptions(doctors)
	}
	if services, ok := s.store.ServicesByDepartment(ctx, id); ok {
		out.Services = serviceOptions(services)
	}
	return out
}

// BookingForm is the booking form as submitted. Date is YYYY-MM-DD and Time
// is HH:MM.
type BookingForm struct {
	DepartmentID string `json:"department_id" form:"department_id"`
	DoctorID     string `json:"doctor_id" form:"doctor_id"`
	ServiceID    string `json:"service_id" form:"service_id"`
	Date         string `json:"appointment_date" form:"appointment_date"`
	Time         string `json:"appointment_time" form:"appointment_time"`
	Notes        string `json:"notes" form:"notes"`
}

func (f BookingForm) appointment(patientID uuid.UUID) (*gateway.Appointment, error) {
	v := &ValidationError{}
	v.require("department_id", f.DepartmentID)
	v.require("doctor_id", f.DoctorID)
	v.require("appointment_date", f.Date)
	v.require("appointment_time", f.Time)
	if !v.empty() {
		return nil, v
	}

	deptID := v.id("department_id", f.DepartmentID)
	doctorID := v.id("doctor_id", f.DoctorID)
	serviceID := v.id("service_id", f.ServiceID)
	date, err := time.Parse(dateLayout, strings.TrimSpace(f.Date))
	if err != nil {
		v.Invalid = append(v.Invalid, "appointment_date")
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(f.Time)); err != nil {
		v.Invalid = append(v.Invalid, "appointment_time")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	return &gateway.Appointment{
		PatientID:       patientID,
		DoctorID:        *doctorID,
		DepartmentID:    *deptID,
		ServiceID:       serviceID,
		AppointmentDate: date,
		AppointmentTime: strings.TrimSpace(f.Time),
		Notes:           strings.TrimSpace(f.Notes),
		Status:          gateway.AppointmentPending,
	}, nil
}

// Book creates a pending appointment for the session's patient.
func (s *Service) Book(ctx context.Context, snap session.Snapshot, form BookingForm) (*gateway.Appointment, error) {
	patient, err := requirePatient(snap)
	if err != nil {
		return nil, err
	}
	a, err := form.appointment(patient.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAppointment(ctx, a); err != nil {
		return nil, err
	}

	s.publish(ctx, events.AppointmentBooked, patient.ID, a.ID, map[string]any{
		"doctor_id":        a.DoctorID,
		"department_id":    a.DepartmentID,
		"appointment_date": a.AppointmentDate.Format(dateLayout),
		"appointment_time": a.AppointmentTime,
		"status":           a.Status,
	})
	return a, nil
}

type AppointmentsView struct {
	Items       []*gateway.Appointment `json:"items"`
	Unavailable bool                   `json:"unavailable"`
}

// Appointments lists the patient's appointments, newest first.
func (s *Service) Appointments(ctx context.Context, snap session.Snapshot) (*AppointmentsView, error) {
	patient, err := requirePatient(snap)
	if err != nil {
		return nil, err
	}
	items, ok := s.store.PatientAppointments(ctx, patient.ID)
	if items == nil {
		items = []*gateway.Appointment{}
	}
	return &AppointmentsView{Items: items, Unavailable: !ok}, nil
}

var transitions = map[string]map[string]bool{
	gateway.AppointmentPending:   {gateway.AppointmentConfirmed: true, gateway.AppointmentCancelled: true},
	gateway.AppointmentConfirmed: {gateway.AppointmentCompleted: true, gateway.AppointmentCancelled: true},
}

// CanTransition reports whether an appointment may move from one status to
// another. Cancelled and completed are final.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// Cancellable reports whether the patient may still cancel a.
func Cancellable(a *gateway.Appointment) bool {
	return CanTransition(a.Status, gateway.AppointmentCancelled)
}

func (s *Service) changeStatus(ctx context.Context, a *gateway.Appointment, status string) error {
	if !CanTransition(a.Status, status) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, status)
	}
	if err := s.store.UpdateAppointmentStatus(ctx, a.ID, status); err != nil {
		return err
	}
	from := a.Status
	a.Status = status
	s.publish(ctx, events.AppointmentStatusChanged, a.PatientID, a.ID, map[string]any{
		"from": from,
		"to":   status,
	})
	return nil
}

// Cancel cancels one of the patient's own appointments. Appointments of
// other patients are reported as not found.
func (s *Service) Cancel(ctx context.Context, snap session.Snapshot, appointmentID uuid.UUID) (*gateway.Appointment, error) {
	patient, err := requirePatient(snap)
	if err != nil {
		return nil, err
	}
	a, err := s.store.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.PatientID != patient.ID {
		return nil, gateway.ErrNotFound
	}
	if err := s.changeStatus(ctx, a, gateway.AppointmentCancelled); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateStatus is the staff transition endpoint.
func (s *Service) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, status string) (*gateway.Appointment, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, &ValidationError{Missing: []string{"status"}}
	}
	a, err := s.store.AppointmentByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	if err := s.changeStatus(ctx, a, status); err != nil {
		return nil, err
	}
	return a, nil
}
