// Package events fans domain events out to in-process subscribers: the
// Kafka forwarder and the live-update hub.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Type string

const (
	AppointmentBooked        Type = "appointment.booked"
	AppointmentStatusChanged Type = "appointment.status_changed"
	CheckedIn                Type = "checkin.checked_in"
	CheckedOut               Type = "checkin.checked_out"
	ConsultationRequested    Type = "consultation.requested"
	ConsultationResponded    Type = "consultation.responded"
)

// Event describes a committed write. SubjectID is the id of the row the
// event is about.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       Type           `json:"type"`
	PatientID  uuid.UUID      `json:"patient_id"`
	SubjectID  uuid.UUID      `json:"subject_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

type Handler func(ctx context.Context, e Event)

// Publisher is what domain services depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus delivers each event to every subscriber in turn. A panicking
// subscriber is logged and skipped.
type Bus struct {
	log zerolog.Logger

	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
}

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:      log.With().Str("component", "events").Logger(),
		handlers: make(map[int]Handler),
	}
}

func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, h, e)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn().Interface("panic", r).Str("event", string(e.Type)).Msg("event subscriber panicked")
		}
	}()
	h(ctx, e)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
