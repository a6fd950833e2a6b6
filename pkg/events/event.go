package events

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is what the outbox stores and the relay publishes.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() uuid.UUID
	AggregateType() string
	OccurredAt() time.Time
	Payload() []byte
}

// Envelope identifies one event independently of its payload.
type Envelope struct {
	ID            uuid.UUID
	Type          string
	AggregateID   uuid.UUID
	AggregateType string
	At            time.Time
}

// BaseEvent is embedded by concrete events to satisfy DomainEvent.
type BaseEvent struct {
	env     Envelope
	payload []byte
}

// NewBaseEventAt stamps a fresh event id and stores at in UTC.
func NewBaseEventAt(eventType string, aggregateID uuid.UUID, aggregateType string, payload []byte, at time.Time) BaseEvent {
	return BaseEvent{
		env: Envelope{
			ID:            uuid.New(),
			Type:          eventType,
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			At:            at.UTC(),
		},
		payload: payload,
	}
}

func (e BaseEvent) Envelope() Envelope     { return e.env }
func (e BaseEvent) EventID() uuid.UUID     { return e.env.ID }
func (e BaseEvent) EventType() string      { return e.env.Type }
func (e BaseEvent) AggregateID() uuid.UUID { return e.env.AggregateID }
func (e BaseEvent) AggregateType() string  { return e.env.AggregateType }
func (e BaseEvent) OccurredAt() time.Time  { return e.env.At }
func (e BaseEvent) Payload() []byte        { return e.payload }
