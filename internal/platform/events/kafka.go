package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer that partitions by message key, so all
// events of one patient stay ordered.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// KafkaPublisher forwards events to Kafka from a background goroutine.
// Events are dropped with a warning when the queue is full or the write
// fails; the originating write has already committed.
type KafkaPublisher struct {
	w       MessageWriter
	log     zerolog.Logger
	timeout time.Duration

	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewKafkaPublisher(w MessageWriter, log zerolog.Logger, buffer int) *KafkaPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &KafkaPublisher{
		w:       w,
		log:     log.With().Str("component", "kafka").Logger(),
		timeout: 5 * time.Second,
		queue:   make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Handle is a Bus handler. It never blocks.
func (p *KafkaPublisher) Handle(_ context.Context, e Event) {
	select {
	case p.queue <- e:
	default:
		p.log.Warn().Str("event", string(e.Type)).Str("event_id", e.ID.String()).Msg("kafka queue full, event dropped")
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		p.write(e)
	}
}

func (p *KafkaPublisher) write(e Event) {
	value, err := json.Marshal(e)
	if err != nil {
		p.log.Warn().Err(err).Str("event", string(e.Type)).Msg("marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(e.PatientID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
		Time: e.OccurredAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.log.Warn().Err(err).Str("event", string(e.Type)).Str("event_id", e.ID.String()).Msg("publish to kafka failed")
	}
}

// Close drains queued events and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.queue) })
	<-p.done
	return p.w.Close()
}
