package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carehospital/portal/internal/platform/gateway"
)

// Snapshot is the authentication state of one browser session. The zero
// value is the unauthenticated state.
type Snapshot struct {
	SessionID uuid.UUID        `json:"session_id,omitempty"`
	User      *gateway.User    `json:"user"`
	Patient   *gateway.Patient `json:"patient"`
	// ExpiresAt is when the underlying auth session ends. Zero never expires.
	ExpiresAt time.Time `json:"-"`
}

func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// HasProfile reports whether the user has a Patient record yet.
func (s Snapshot) HasProfile() bool {
	return s.User != nil && s.Patient != nil
}

// DefaultSweepInterval is how often expired snapshots are dropped.
const DefaultSweepInterval = time.Minute

// Store holds snapshots by session id. Only the Controller writes to it;
// subscribers see every change. Snapshots whose session has expired are
// swept on the next write after SweepInterval, the same way dropped
// sessions are: subscribers receive a delete.
type Store struct {
	SweepInterval time.Duration

	now       func() time.Time
	mu        sync.RWMutex
	snapshots map[uuid.UUID]Snapshot
	subs      map[int]func(Snapshot)
	nextID    int
	lastSweep time.Time
}

func NewStore() *Store {
	return &Store{
		SweepInterval: DefaultSweepInterval,
		now:           time.Now,
		snapshots:     make(map[uuid.UUID]Snapshot),
		subs:          make(map[int]func(Snapshot)),
	}
}

// Get returns a copy of the snapshot for id.
func (s *Store) Get(id uuid.UUID) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	return snap, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// Subscribe registers fn for every put and delete. A delete is delivered as
// an unauthenticated snapshot carrying only the session id.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) put(snap Snapshot) {
	s.mu.Lock()
	expired := s.expire(false)
	s.snapshots[snap.SessionID] = snap
	subs := s.subscribers()
	s.mu.Unlock()

	notifyDeleted(subs, expired)
	for _, fn := range subs {
		fn(snap)
	}
}

// Sweep drops every expired snapshot now and returns how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	expired := s.expire(true)
	subs := s.subscribers()
	s.mu.Unlock()

	notifyDeleted(subs, expired)
	return len(expired)
}

// expire must be called with mu held. Unless force is set it only scans
// once per SweepInterval.
func (s *Store) expire(force bool) []uuid.UUID {
	now := s.now()
	if !force && now.Sub(s.lastSweep) < s.SweepInterval {
		return nil
	}
	s.lastSweep = now

	var expired []uuid.UUID
	for id, snap := range s.snapshots {
		if !snap.ExpiresAt.IsZero() && !now.Before(snap.ExpiresAt) {
			delete(s.snapshots, id)
			expired = append(expired, id)
		}
	}
	return expired
}

func notifyDeleted(subs []func(Snapshot), ids []uuid.UUID) {
	for _, id := range ids {
		for _, fn := range subs {
			fn(Snapshot{SessionID: id})
		}
	}
}

func (s *Store) delete(id uuid.UUID) {
	s.mu.Lock()
	_, existed := s.snapshots[id]
	delete(s.snapshots, id)
	subs := s.subscribers()
	s.mu.Unlock()

	if !existed {
		return
	}
	notifyDeleted(subs, []uuid.UUID{id})
}

// update applies fn to the stored snapshot for id, if any.
func (s *Store) update(id uuid.UUID, fn func(*Snapshot)) bool {
	s.mu.Lock()
	snap, ok := s.snapshots[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	fn(&snap)
	s.snapshots[id] = snap
	subs := s.subscribers()
	s.mu.Unlock()

	for _, f := range subs {
		f(snap)
	}
	return true
}

// subscribers must be called with mu held.
func (s *Store) subscribers() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}
