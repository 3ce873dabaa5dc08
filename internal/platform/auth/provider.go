package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/platform/gateway"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

type Event string

const (
	SignedIn  Event = "SIGNED_IN"
	SignedOut Event = "SIGNED_OUT"
)

// Session is an authenticated session as seen by callers.
type Session struct {
	ID        uuid.UUID     `json:"id"`
	Token     string        `json:"access_token,omitempty"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *gateway.User `json:"user"`
}

// StateChange is delivered to OnAuthStateChange listeners.
type StateChange struct {
	Event   Event
	Session *Session
}

// AccountStore is the part of the gateway the provider needs.
type AccountStore interface {
	CreateUser(ctx context.Context, u *gateway.User) error
	UserByEmail(ctx context.Context, email string) (*gateway.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*gateway.User, error)
	CreateSession(ctx context.Context, s *gateway.Session) error
	SessionByID(ctx context.Context, id uuid.UUID) (*gateway.Session, error)
	RevokeSession(ctx context.Context, id uuid.UUID) error
}

// Provider owns accounts and sessions and notifies listeners when a session
// starts or ends.
type Provider struct {
	store  AccountStore
	tokens *TokenIssuer
	log    zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	listeners map[int]func(StateChange)
	nextID    int
}

func NewProvider(store AccountStore, tokens *TokenIssuer, log zerolog.Logger) *Provider {
	return &Provider{
		store:     store,
		tokens:    tokens,
		log:       log.With().Str("component", "auth").Logger(),
		now:       time.Now,
		listeners: make(map[int]func(StateChange)),
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*gateway.User, error) {
	email = normaliseEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &gateway.User{Email: email, PasswordHash: hash, Role: gateway.RolePatient}
	if err := p.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, gateway.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}
	p.log.Info().Str("user_id", u.ID.String()).Msg("account created")
	return u, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := p.store.UserByEmail(ctx, normaliseEmail(email))
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	ok, err := CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	now := p.now()
	row := &gateway.Session{UserID: u.ID, ExpiresAt: now.Add(p.tokens.TTL())}
	if err := p.store.CreateSession(ctx, row); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	token, err := p.tokens.Issue(u.ID, row.ID, u.Role, now, row.ExpiresAt)
	if err != nil {
		return nil, err
	}

	s := &Session{ID: row.ID, Token: token, ExpiresAt: row.ExpiresAt, User: u}
	p.emit(StateChange{Event: SignedIn, Session: s})
	return s, nil
}

// SignOut revokes the session behind token. Unknown, expired or already
// revoked tokens are ErrSessionNotFound.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := p.tokens.Parse(token)
	if err != nil {
		return ErrSessionNotFound
	}
	userID, sessionID, err := claims.IDs()
	if err != nil {
		return ErrSessionNotFound
	}

	if err := p.store.RevokeSession(ctx, sessionID); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("sign out: %w", err)
	}

	p.emit(StateChange{Event: SignedOut, Session: &Session{
		ID:   sessionID,
		User: &gateway.User{ID: userID, Role: claims.Role},
	}})
	return nil
}

// CurrentSession resolves a token to its live session and user.
func (p *Provider) CurrentSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	claims, err := p.tokens.Parse(token)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	userID, sessionID, err := claims.IDs()
	if err != nil {
		return nil, ErrSessionNotFound
	}

	row, err := p.store.SessionByID(ctx, sessionID)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if row.UserID != userID || !row.Live(p.now()) {
		return nil, ErrSessionNotFound
	}

	u, err := p.store.UserByID(ctx, userID)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	return &Session{ID: row.ID, Token: token, ExpiresAt: row.ExpiresAt, User: u}, nil
}

// OnAuthStateChange registers fn for every SIGNED_IN and SIGNED_OUT event.
// Listeners run synchronously on the goroutine that caused the change.
func (p *Provider) OnAuthStateChange(fn func(StateChange)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Provider) emit(change StateChange) {
	p.mu.RLock()
	fns := make([]func(StateChange), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}
