// Package session keeps the per-session view of who is logged in and which
// Patient record belongs to them.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/domain/shell"
	"github.com/carehospital/portal/internal/platform/auth"
	"github.com/carehospital/portal/internal/platform/gateway"
)

// AuthProvider is the account service the controller delegates to.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string) (*gateway.User, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentSession(ctx context.Context, token string) (*auth.Session, error)
	OnAuthStateChange(fn func(auth.StateChange)) (unsubscribe func())
}

// PatientStore is the part of the gateway the controller reads and writes.
type PatientStore interface {
	PatientByUser(ctx context.Context, userID uuid.UUID) (*gateway.Patient, bool)
	CreatePatient(ctx context.Context, p *gateway.Patient) error
}

// ProfileFields are the editable Patient attributes. DateOfBirth is
// YYYY-MM-DD or empty.
type ProfileFields struct {
	FirstName        string `json:"first_name" form:"first_name"`
	LastName         string `json:"last_name" form:"last_name"`
	Phone            string `json:"phone" form:"phone"`
	Gender           string `json:"gender" form:"gender"`
	DateOfBirth      string `json:"date_of_birth" form:"date_of_birth"`
	Address          string `json:"address" form:"address"`
	EmergencyContact string `json:"emergency_contact" form:"emergency_contact"`
	BloodGroup       string `json:"blood_group" form:"blood_group"`
	Allergies        string `json:"allergies" form:"allergies"`
}

const dateLayout = "2006-01-02"

// Apply copies f onto p.
func (f ProfileFields) Apply(p *gateway.Patient) error {
	var dob *time.Time
	if d := strings.TrimSpace(f.DateOfBirth); d != "" {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			return fmt.Errorf("date_of_birth must be YYYY-MM-DD")
		}
		dob = &t
	}
	p.FirstName = strings.TrimSpace(f.FirstName)
	p.LastName = strings.TrimSpace(f.LastName)
	p.Phone = strings.TrimSpace(f.Phone)
	p.Gender = strings.TrimSpace(f.Gender)
	p.DateOfBirth = dob
	p.Address = f.Address
	p.EmergencyContact = f.EmergencyContact
	p.BloodGroup = strings.TrimSpace(f.BloodGroup)
	p.Allergies = f.Allergies
	return nil
}

// FieldsFrom is the inverse of Apply, for pre-filling forms. A nil patient
// gives blank fields.
func FieldsFrom(p *gateway.Patient) ProfileFields {
	if p == nil {
		return ProfileFields{}
	}
	f := ProfileFields{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Phone:            p.Phone,
		Gender:           p.Gender,
		Address:          p.Address,
		EmergencyContact: p.EmergencyContact,
		BloodGroup:       p.BloodGroup,
		Allergies:        p.Allergies,
	}
	if p.DateOfBirth != nil {
		f.DateOfBirth = p.DateOfBirth.Format(dateLayout)
	}
	return f
}

// Controller is the only writer of the session Store.
type Controller struct {
	provider    AuthProvider
	patients    PatientStore
	store       *Store
	log         zerolog.Logger
	unsubscribe func()

	done      chan struct{}
	closeOnce sync.Once
}

// NewController subscribes to the provider's change stream and sweeps
// expired snapshots until Close.
func NewController(provider AuthProvider, patients PatientStore, store *Store, log zerolog.Logger) *Controller {
	c := &Controller{
		provider: provider,
		patients: patients,
		store:    store,
		log:      log.With().Str("component", "session").Logger(),
		done:     make(chan struct{}),
	}
	c.unsubscribe = provider.OnAuthStateChange(c.handleChange)
	go c.sweep(store.SweepInterval)
	return c
}

func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		close(c.done)
	})
}

func (c *Controller) sweep(every time.Duration) {
	if every <= 0 {
		every = DefaultSweepInterval
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			if n := c.store.Sweep(); n > 0 {
				c.log.Debug().Int("count", n).Msg("expired sessions dropped")
			}
		}
	}
}

func (c *Controller) Store() *Store {
	return c.store
}

func (c *Controller) handleChange(change auth.StateChange) {
	if change.Session == nil {
		return
	}
	switch change.Event {
	case auth.SignedIn:
		snap := Snapshot{SessionID: change.Session.ID, User: change.Session.User, ExpiresAt: change.Session.ExpiresAt}
		patient, ok := c.patients.PatientByUser(context.Background(), change.Session.User.ID)
		if ok {
			snap.Patient = patient
		} else {
			c.log.Warn().Str("user_id", change.Session.User.ID.String()).Msg("signed in without patient profile: load failed")
		}
		c.store.put(snap)
	case auth.SignedOut:
		c.store.delete(change.Session.ID)
	}
}

// Initialize resolves token to a snapshot and stores it. Only a failed
// session lookup yields the unauthenticated snapshot; a failed Patient read
// leaves the user authenticated without a Patient.
func (c *Controller) Initialize(ctx context.Context, token string) Snapshot {
	s, err := c.provider.CurrentSession(ctx, token)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			c.log.Warn().Err(err).Msg("session lookup failed")
		}
		return Snapshot{}
	}
	return c.load(ctx, s)
}

func (c *Controller) load(ctx context.Context, s *auth.Session) Snapshot {
	snap := Snapshot{SessionID: s.ID, User: s.User, ExpiresAt: s.ExpiresAt}
	patient, ok := c.patients.PatientByUser(ctx, s.User.ID)
	if ok {
		snap.Patient = patient
	} else {
		c.log.Warn().Str("user_id", s.User.ID.String()).Msg("patient profile load failed")
	}
	c.store.put(snap)
	return snap
}

// resolve validates token on every call so a revoked session stops working
// immediately. A stored snapshot is reused once it has a Patient; until then
// the Patient is re-read.
func (c *Controller) resolve(ctx context.Context, token string) (Snapshot, *auth.Session) {
	s, err := c.provider.CurrentSession(ctx, token)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			c.log.Warn().Err(err).Msg("session lookup failed")
		}
		return Snapshot{}, nil
	}
	if snap, ok := c.store.Get(s.ID); ok && snap.Patient != nil {
		snap.User = s.User
		return snap, s
	}
	return c.load(ctx, s), s
}

// Login delegates to the provider. The store is updated by the SIGNED_IN
// notification, not here.
func (c *Controller) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	return c.provider.SignIn(ctx, email, password)
}

// Register creates the account and then tries to create its Patient. A
// failed profile is logged and does not fail the registration.
func (c *Controller) Register(ctx context.Context, email, password string, fields ProfileFields) (*gateway.User, error) {
	u, err := c.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	p := &gateway.Patient{UserID: u.ID}
	err = fields.Apply(p)
	if err == nil {
		err = c.patients.CreatePatient(ctx, p)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("patient profile not created at registration")
	}
	return u, nil
}

func (c *Controller) Logout(ctx context.Context, token string) error {
	return c.provider.SignOut(ctx, token)
}

// Current returns a copy of the stored snapshot, or the unauthenticated one.
func (c *Controller) Current(sessionID uuid.UUID) Snapshot {
	snap, _ := c.store.Get(sessionID)
	return snap
}

// SetPatient replaces the Patient in the stored snapshot after a profile edit.
func (c *Controller) SetPatient(sessionID uuid.UUID, p *gateway.Patient) {
	c.store.update(sessionID, func(s *Snapshot) { s.Patient = p })
}

func (c *Controller) UIState(snap Snapshot) shell.AuthUI {
	return shell.AuthUIFor(snap.Authenticated())
}
