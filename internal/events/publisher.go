// Package events emits domain events at the notification boundary.
// Rendering and delivery are external collaborators; the core only
// publishes structured payloads.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/thitipong-w/slotwise/pkg/logger"
)

// Event types emitted by the scheduling core.
const (
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingCompleted = "booking.completed"
	TypeBookingCanceled  = "booking.canceled"
	TypeBookingNoShow    = "booking.no_show"
)

// Event is a structured domain event payload.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	TenantID   string         `json:"tenant_id"`
	BookingID  string         `json:"booking_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, evt *Event) error
	Close()
}

// KafkaPublisher publishes events to a Kafka topic, keyed by tenant so that
// per-tenant ordering is preserved.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	log    *logger.Logger
}

// NewKafkaPublisher connects to the given brokers.
func NewKafkaPublisher(brokers []string, clientID, topic string, log *logger.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic, log: log}, nil
}

// Publish sends the event. Delivery failures are logged and returned but
// never fail the booking operation that produced the event.
func (p *KafkaPublisher) Publish(ctx context.Context, evt *Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(evt.TenantID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.log.WithContext(ctx).Warn("event publish failed",
			zap.String("event_type", evt.Type),
			zap.String("booking_id", evt.BookingID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// NopPublisher discards events. Used in tests and cash-only deployments.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, evt *Event) error { return nil }
func (NopPublisher) Close()                                        {}

// Recorder captures published events in memory for tests.
type Recorder struct {
	Events []*Event
}

func (r *Recorder) Publish(ctx context.Context, evt *Event) error {
	r.Events = append(r.Events, evt)
	return nil
}

func (r *Recorder) Close() {}
