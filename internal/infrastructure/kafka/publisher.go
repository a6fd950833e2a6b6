package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hennyhux/changsheng/pkg/events"
	pkgkafka "github.com/hennyhux/changsheng/pkg/kafka"
)

// TopicLedgerEvents carries every ledger mutation, keyed by contract id.
const TopicLedgerEvents = "billing.ledger.events"

// MessagePublisher is satisfied by *pkgkafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

var _ events.EventPublisher = (*Publisher)(nil)

// Publisher turns outbox entries into Kafka messages.
type Publisher struct {
	producer MessagePublisher
	logger   *slog.Logger
}

func NewPublisher(producer MessagePublisher, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// Publish sends outbox entries to topic. The entry payload is sent as is.
func (p *Publisher) Publish(ctx context.Context, topic string, entries ...events.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	messages := make([]pkgkafka.Message, len(entries))
	for i, e := range entries {
		messages[i] = pkgkafka.Message{Key: e.Key(), Value: e.Payload, Headers: e.Headers()}
	}
	p.logger.DebugContext(ctx, "publishing ledger events", "topic", topic, "count", len(entries))

	if err := p.producer.Publish(ctx, topic, messages...); err != nil {
		return fmt.Errorf("publish %d ledger event(s) to %s: %w", len(entries), topic, err)
	}
	return nil
}
