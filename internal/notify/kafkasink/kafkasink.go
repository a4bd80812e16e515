// Package kafkasink publishes high-risk admissions as events on a Kafka topic.
package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"

	"github.com/linnemanlabs/go-core/log"

	"github.com/medcognis/triagedesk/internal/triage"
)

// EventType is set on every published event and its event-type header.
const EventType = "patient.triaged"

const source = "triagedesk"

// messageWriter is the subset of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the JSON value of each message.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Patient   *triage.Patient `json:"patient"`
}

// Sink implements triage.Notifier on a Kafka topic.
type Sink struct {
	writer messageWriter
	topic  string
	logger log.Logger
	now    func() time.Time
}

// New creates a sink writing to topic on brokers. Writes are synchronous and
// wait for all in-sync replicas.
func New(brokers []string, topic string, logger log.Logger) *Sink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newSink(w, topic, logger)
}

func newSink(w messageWriter, topic string, logger log.Logger) *Sink {
	if logger == nil {
		logger = log.Nop()
	}
	return &Sink{
		writer: w,
		topic:  topic,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Name identifies the notifier in logs and metrics.
func (s *Sink) Name() string { return "kafka" }

// Send publishes one patient.triaged event keyed by patient id, so all
// events for a patient land on the same partition.
func (s *Sink) Send(ctx context.Context, p *triage.Patient) error {
	ev := Event{
		ID:        ulid.Make().String(),
		Type:      EventType,
		Source:    source,
		Timestamp: s.now(),
		Patient:   p,
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(p.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventType)},
			{Key: "event-id", Value: []byte(ev.ID)},
			{Key: "source", Value: []byte(source)},
			{Key: "risk-level", Value: []byte(p.RiskLevel)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", s.topic, err)
	}

	s.logger.Info(ctx, "event published",
		"event_id", ev.ID,
		"event_type", EventType,
		"topic", s.topic,
		"patient_id", p.ID,
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}
