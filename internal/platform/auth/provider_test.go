package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/platform/gateway"
	"github.com/carehospital/portal/internal/platform/gateway/gatewaytest"
)

func newTestProvider(t *testing.T) (*Provider, *gatewaytest.Memory) {
	t.Helper()
	mem := gatewaytest.NewMemory()
	tokens := NewTokenIssuer(testKey, "care-hospital-portal", time.Hour)
	return NewProvider(gatewaytest.NewGateway(mem), tokens, zerolog.Nop()), mem
}

type brokenAccounts struct {
	AccountStore
}

func (brokenAccounts) UserByEmail(ctx context.Context, email string) (*gateway.User, error) {
	return nil, errors.New("connection refused")
}

func TestSignUp(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	u, err := p.SignUp(ctx, " New.Patient@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if u.Email != "new.patient@example.com" {
		t.Errorf("expected normalised email, got %q", u.Email)
	}
	if u.Role != gateway.RolePatient {
		t.Errorf("expected patient role, got %q", u.Role)
	}

	if _, err := p.SignUp(ctx, "new.patient@example.com", "secret2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignUp_Validation(t *testing.T) {
	p, mem := newTestProvider(t)
	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "secret1", ErrInvalidEmail},
		{"no at sign", "patient.example.com", "secret1", ErrInvalidEmail},
		{"short password", "a@b.c", "12345", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.SignUp(context.Background(), tt.email, tt.password); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if n := mem.CallCount("users.Create"); n != 0 {
		t.Errorf("expected no user rows created, got %d calls", n)
	}
}

func TestSignIn_AndStateChanges(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "pat@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	var events []StateChange
	unsubscribe := p.OnAuthStateChange(func(sc StateChange) { events = append(events, sc) })
	defer unsubscribe()

	s, err := p.SignIn(ctx, "PAT@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if s.Token == "" || s.User == nil || s.User.Email != "pat@example.com" {
		t.Fatalf("unexpected session: %+v", s)
	}

	current, err := p.CurrentSession(ctx, s.Token)
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if current.ID != s.ID || current.User.ID != s.User.ID {
		t.Errorf("current session mismatch: %+v", current)
	}

	if err := p.SignOut(ctx, s.Token); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := p.CurrentSession(ctx, s.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected revoked session to be gone, got %v", err)
	}
	if err := p.SignOut(ctx, s.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second sign out, got %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Event != SignedIn || events[0].Session.ID != s.ID {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Event != SignedOut || events[1].Session.ID != s.ID {
		t.Errorf("unexpected second event: %+v", events[1])
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "pat@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	if _, err := p.SignIn(ctx, "pat@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := p.SignIn(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignIn_StorageFailureIsNotCredentialError(t *testing.T) {
	p := NewProvider(brokenAccounts{}, NewTokenIssuer(testKey, "", time.Hour), zerolog.Nop())

	_, err := p.SignIn(context.Background(), "pat@example.com", "secret1")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected a service error, got %v", err)
	}
}

func TestCurrentSession_Expired(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "pat@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	s, err := p.SignIn(ctx, "pat@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := p.CurrentSession(ctx, s.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for expired session, got %v", err)
	}
}

func TestOnAuthStateChange_Unsubscribe(t *testing.T) {
	p, _ := newTestProvider(t)
	calls := 0
	unsubscribe := p.OnAuthStateChange(func(StateChange) { calls++ })
	unsubscribe()

	p.emit(StateChange{Event: SignedIn})
	if calls != 0 {
		t.Errorf("expected no calls after unsubscribe, got %d", calls)
	}
}
