package dashboard

import (
	"context"
	"errors"
	"strings"

	"github.com/carehospital/portal/internal/domain/session"
	"github.com/carehospital/portal/internal/platform/events"
	"github.com/carehospital/portal/internal/platform/gateway"
)

const NotCheckedIn = "Not checked in"

// CheckInView is the check-in panel. With no open visit Active is nil and
// only checking in is offered.
type CheckInView struct {
	Active      *gateway.CheckIn   `json:"active"`
	History     []*gateway.CheckIn `json:"history"`
	CanCheckIn  bool               `json:"can_check_in"`
	CanCheckOut bool               `json:"can_check_out"`
	Unavailable bool               `json:"unavailable"`
}

// Status is the headline shown above the buttons.
func (v *CheckInView) Status() string {
	if v.Active == nil {
		return NotCheckedIn
	}
	return "Checked in"
}

// CheckInStatus reads the open visit and the recent history. A failed read
// of the open visit is shown as not checked in; the store still refuses a
// second open visit.
func (s *Service) CheckInStatus(ctx context.Context, snap session.Snapshot) (*CheckInView, error) {
	patient, err := requirePatient(snap)
	if err != nil {
		return nil, err
	}
	active, activeOK := s.store.ActiveCheckIn(ctx, patient.ID)
	history, historyOK := s.store.CheckInHistory(ctx, patient.ID, s.historyLimit)
	if history == nil {
		history = []*gateway.CheckIn{}
	}
	return &CheckInView{
		Active:      active,
		History:     history,
		CanCheckIn:  active == nil,
		CanCheckOut: active != nil,
		Unavailable: !activeOK || !historyOK,
	}, nil
}

type CheckInForm struct {
	Reason        string `json:"reason" form:"reason"`
	AppointmentID string `json:"appointment_id" form:"appointment_id"`
}

// CheckIn opens a visit. A linked appointment must belong to the patient.
func (s *Service) CheckIn(ctx context.Context, snap session.Snapshot, form CheckInForm) (*gateway.CheckIn, error) {
	patient, err := requirePatient(snap)
	if err != nil {
		return nil, err
	}

	v := &ValidationError{}
	v.require("reason", form.Reason)
	appointmentID := v.id("appointment_id", form.AppointmentID)
	if err := v.err(); err != nil {
		return nil, err
	}
	if appointmentID != nil {
		a, err := s.store.AppointmentByID(ctx, *appointmentID)
		if err != nil && !errors.Is(err, gateway.ErrNotFound) {
			return nil, err
		}
		if a == nil || a.PatientID != patient.ID {
			return nil, &ValidationError{Invalid: []string{"appointment_id"}}
		}
	}

	active, ok := s.store.ActiveCheckIn(ctx, patient.ID)
	if active != nil {
		return nil, ErrAlreadyCheckedIn
	}
	if !ok {
		// the partial unique index on open check_ins still refuses a duplicate
		s.log.Warn().Str("patient_id", patient.ID.String()).Msg("open visit unreadable, checking in on the store's constraint")
	}

	c := &gateway.CheckIn{
		PatientID:     patient.ID,
		AppointmentID: appointmentID,
		Reason:        strings.TrimSpace(form.Reason),
		Status:        gateway.CheckInActive,
	}
	if err := s.store.CreateCheckIn(ctx, c); err != nil {
		if errors.Is(err, gateway.ErrConflict) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}

	s.publish(ctx, events.CheckedIn, patient.ID, c.ID, map[string]any{
		"reason":        c.Reason,
		"check_in_time": c.CheckInTime,
	})
	return c, nil
}

// CheckOut closes the patient's open visit.
func (s *Service) CheckOut(ctx context.Context, snap session.Snapshot) (*gateway.CheckIn, error) {
	patient, err := requirePatient(snap)
	if err != nil {
		return nil, err
	}
	active, ok := s.store.ActiveCheckIn(ctx, patient.ID)
	if !ok {
		return nil, ErrUnavailable
	}
	if active == nil {
		return nil, ErrNotCheckedIn
	}

	closed, err := s.store.CheckOut(ctx, active.ID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, ErrNotCheckedIn
		}
		return nil, err
	}

	s.publish(ctx, events.CheckedOut, patient.ID, closed.ID, map[string]any{
		"check_in_time":  closed.CheckInTime,
		"check_out_time": closed.CheckOutTime,
	})
	return closed, nil
}
