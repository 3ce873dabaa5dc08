package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carehospital/portal/internal/domain/session"
	"github.com/carehospital/portal/internal/platform/events"
	"github.com/carehospital/portal/internal/platform/gateway"
)

const AwaitingResponse = "Awaiting doctor response..."

// ConsultationDoctors lists every available doctor for the request form.
func (s *Service) ConsultationDoctors(ctx context.Context) []Option {
	doctors, _ := s.store.AvailableDoctors(ctx)
	return doctorOptions(doctors)
}

type ConsultationForm struct {
	DoctorID             string `json:"doctor_id" form:"doctor_id"`
	Subject              string `json:"subject" form:"subject"`
	Message              string `json:"message" form:"message"`
	CallbackRequested    bool   `json:"callback_requested" form:"callback_requested"`
	PreferredContactTime string `json:"preferred_contact_time" form:"preferred_contact_time"`
}

func (s *Service) RequestConsultation(ctx context.Context, snap session.Snapshot, form ConsultationForm) (*gateway.Consultation, error) {
	patient, err := requirePatient(snap)
	if err != nil {
		return nil, err
	}

	v := &ValidationError{}
	v.require("doctor_id", form.DoctorID)
	v.require("subject", form.Subject)
	v.require("message", form.Message)
	if err := v.err(); err != nil {
		return nil, err
	}
	doctorID := v.id("doctor_id", form.DoctorID)
	if err := v.err(); err != nil {
		return nil, err
	}

	c := &gateway.Consultation{
		PatientID:            patient.ID,
		DoctorID:             *doctorID,
		Subject:              strings.TrimSpace(form.Subject),
		Message:              strings.TrimSpace(form.Message),
		CallbackRequested:    form.CallbackRequested,
		PreferredContactTime: strings.TrimSpace(form.PreferredContactTime),
		Status:               gateway.ConsultationPending,
	}
	if err := s.store.CreateConsultation(ctx, c); err != nil {
		return nil, err
	}

	s.publish(ctx, events.ConsultationRequested, patient.ID, c.ID, map[string]any{
		"doctor_id":          c.DoctorID,
		"subject":            c.Subject,
		"callback_requested": c.CallbackRequested,
	})
	return c, nil
}

type ConsultationsView struct {
	Items       []*gateway.Consultation `json:"items"`
	Unavailable bool                    `json:"unavailable"`
}

func (s *Service) Consultations(ctx context.Context, snap session.Snapshot) (*ConsultationsView, error) {
	patient, err := requirePatient(snap)
	if err != nil {
		return nil, err
	}
	items, ok := s.store.PatientConsultations(ctx, patient.ID)
	if items == nil {
		items = []*gateway.Consultation{}
	}
	return &ConsultationsView{Items: items, Unavailable: !ok}, nil
}

// Respond records a doctor's answer. Closed consultations cannot be
// answered again.
func (s *Service) Respond(ctx context.Context, consultationID uuid.UUID, response string) (*gateway.Consultation, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, &ValidationError{Missing: []string{"response"}}
	}
	c, err := s.store.ConsultationByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if c.Status == gateway.ConsultationClosed {
		return nil, fmt.Errorf("%w: consultation is closed", ErrInvalidTransition)
	}
	if err := s.store.RespondConsultation(ctx, consultationID, response); err != nil {
		return nil, err
	}

	updated, err := s.store.ConsultationByID(ctx, consultationID)
	if err != nil {
		if !errors.Is(err, gateway.ErrNotFound) {
			s.log.Warn().Err(err).Str("consultation_id", consultationID.String()).Msg("reload after respond failed")
		}
		c.Response = &response
		c.Status = gateway.ConsultationResponded
		updated = c
	}

	s.publish(ctx, events.ConsultationResponded, updated.PatientID, updated.ID, map[string]any{
		"doctor_id": updated.DoctorID,
		"subject":   updated.Subject,
	})
	return updated, nil
}
