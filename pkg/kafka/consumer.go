package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// Handler processes one consumed message. A non-nil error leaves the
// message uncommitted.
type Handler func(ctx context.Context, msg Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads one topic as a member of a consumer group.
type Consumer struct {
	reader  messageReader
	topic   string
	group   string
	handler Handler
	logger  *slog.Logger
}

func NewConsumer(cfg Config, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if cfg.ConsumerGroup == "" {
		return nil, fmt.Errorf("kafka consumer for %s: consumer group is required", topic)
	}
	rc := kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	}
	if cfg.TLS || cfg.SASLEnabled {
		dialer, err := cfg.dialer()
		if err != nil {
			return nil, fmt.Errorf("kafka consumer for %s: %w", topic, err)
		}
		rc.Dialer = dialer
	}
	return newConsumer(kafkago.NewReader(rc), topic, cfg.ConsumerGroup, handler, logger), nil
}

func newConsumer(r messageReader, topic, group string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		topic:   topic,
		group:   group,
		handler: handler,
		logger:  logger.With("topic", topic, "group", group),
	}
}

// Start blocks until ctx ends, which is a clean stop, or a fetch fails.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer starting")
	for {
		m, err := c.reader.FetchMessage(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.logger.Info("consumer stopping")
			return nil
		case err != nil:
			return fmt.Errorf("fetch from %s: %w", c.topic, err)
		}
		c.consume(ctx, m)
	}
}

func (c *Consumer) consume(ctx context.Context, m kafkago.Message) {
	log := c.logger.With("partition", m.Partition, "offset", m.Offset)
	if err := c.handler(ctx, fromKafkaMessage(m)); err != nil {
		log.Error("message handler failed", "error", err)
		return
	}
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		log.Error("offset commit failed", "error", err)
	}
}

func fromKafkaMessage(m kafkago.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{Key: m.Key, Value: m.Value, Headers: headers}
}

func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("close %s reader: %w", c.topic, err)
	}
	return nil
}
