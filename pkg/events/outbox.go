package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Header names carried next to every relayed payload.
const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

// OutboxEntry is a stored event awaiting relay. PublishedAt stays nil until
// the relay confirms delivery.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateID   uuid.UUID
	AggregateType string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

func NewOutboxEntry(e DomainEvent) OutboxEntry {
	return OutboxEntry{
		ID:            e.EventID(),
		AggregateID:   e.AggregateID(),
		AggregateType: e.AggregateType(),
		EventType:     e.EventType(),
		Payload:       e.Payload(),
		CreatedAt:     e.OccurredAt(),
	}
}

func (o OutboxEntry) Published() bool { return o.PublishedAt != nil }

// Key partitions entries so one aggregate's events stay ordered.
func (o OutboxEntry) Key() []byte { return []byte(o.AggregateID.String()) }

func (o OutboxEntry) Headers() map[string]string {
	return map[string]string{
		HeaderEventID:       o.ID.String(),
		HeaderEventType:     o.EventType,
		HeaderAggregateType: o.AggregateType,
	}
}

// OutboxRepository reads and acknowledges pending entries.
type OutboxRepository interface {
	FetchUnpublished(ctx context.Context, batchSize int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, entries ...OutboxEntry) error
}
