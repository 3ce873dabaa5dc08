package dashboard

import (
	"context"
	"errors"

	"github.com/carehospital/portal/internal/domain/session"
	"github.com/carehospital/portal/internal/platform/gateway"
)

// ProfileForm pre-fills the form from the Patient. A user without one gets
// blank fields so the profile can be completed here.
func (s *Service) ProfileForm(snap session.Snapshot) (session.ProfileFields, error) {
	if !snap.Authenticated() {
		return session.ProfileFields{}, ErrNotAuthenticated
	}
	return session.FieldsFrom(snap.Patient), nil
}

// UpdateProfile saves every field of the form and refreshes the session's
// Patient. The cached Patient is replaced, never mutated. A user without a
// Patient gets one created.
func (s *Service) UpdateProfile(ctx context.Context, snap session.Snapshot, fields session.ProfileFields) (*gateway.Patient, error) {
	if !snap.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	var updated gateway.Patient
	if snap.Patient != nil {
		updated = *snap.Patient
	} else {
		updated.UserID = snap.User.ID
	}
	if err := fields.Apply(&updated); err != nil {
		return nil, &ValidationError{Invalid: []string{"date_of_birth"}}
	}

	var err error
	if snap.Patient != nil {
		err = s.store.UpdatePatient(ctx, &updated)
	} else {
		err = s.createPatient(ctx, &updated)
	}
	if err != nil {
		return nil, err
	}

	if s.sessions != nil {
		s.sessions.SetPatient(snap.SessionID, &updated)
	}
	s.log.Debug().Str("patient_id", updated.ID.String()).Msg("profile updated")
	return &updated, nil
}

// createPatient inserts p. When the row already exists (the session could
// not read it at sign-in) the existing row is updated instead.
func (s *Service) createPatient(ctx context.Context, p *gateway.Patient) error {
	err := s.store.CreatePatient(ctx, p)
	if !errors.Is(err, gateway.ErrConflict) {
		return err
	}
	existing, ok := s.store.PatientByUser(ctx, p.UserID)
	if !ok {
		return ErrUnavailable
	}
	if existing == nil {
		return err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return s.store.UpdatePatient(ctx, p)
}
