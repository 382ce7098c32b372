package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kentj-backend/internal/models"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DeadLetterSink receives events the queue gave up on.
type DeadLetterSink interface {
	Publish(ctx context.Context, events []models.EventPayload, cause error) error
}

// LogDeadLetterSink records dropped events in the log only.
type LogDeadLetterSink struct {
	log *zap.Logger
}

func NewLogDeadLetterSink(log *zap.Logger) *LogDeadLetterSink {
	return &LogDeadLetterSink{log: log}
}

func (s *LogDeadLetterSink) Publish(_ context.Context, events []models.EventPayload, cause error) error {
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.SessionID
	}
	s.log.Error("dropping undeliverable events",
		zap.Int("count", len(events)),
		zap.Strings("session_ids", ids),
		zap.NamedError("cause", cause),
	)
	return nil
}

// DeadLetter is the message published for a group of abandoned events.
type DeadLetter struct {
	Reason    string                `json:"reason"`
	Timestamp string                `json:"timestamp"`
	Events    []models.EventPayload `json:"events"`
}

// NATSDeadLetterSink publishes abandoned events to a NATS subject so another process can
// replay them.
type NATSDeadLetterSink struct {
	nc      *nats.Conn
	subject string
}

// NewNATSDeadLetterSink connects to the NATS server at url.
func NewNATSDeadLetterSink(url, subject string) (*NATSDeadLetterSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("kentj-deadletter"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSDeadLetterSink{nc: nc, subject: subject}, nil
}

func (s *NATSDeadLetterSink) Publish(ctx context.Context, events []models.EventPayload, cause error) error {
	msg := DeadLetter{
		Timestamp: models.FormatTime(time.Now()),
		Events:    events,
	}
	if cause != nil {
		msg.Reason = cause.Error()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	if err := s.nc.Publish(s.subject, data); err != nil {
		return fmt.Errorf("failed to publish dead letter to subject %s: %w", s.subject, err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.nc.FlushWithContext(flushCtx)
}

// Close closes the NATS connection.
func (s *NATSDeadLetterSink) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
