package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/pkg/events"
)

// RelayConfig controls the outbox polling loop.
type RelayConfig struct {
	Topic     string
	Interval  time.Duration
	BatchSize int
}

// OutboxRelay moves committed outbox rows to the broker. Delivery is at least
// once: a crash between publish and mark republishes the batch.
type OutboxRelay struct {
	outbox    events.OutboxRepository
	publisher events.EventPublisher
	clock     port.Clock
	logger    *slog.Logger
	cfg       RelayConfig
}

func NewOutboxRelay(outbox events.OutboxRepository, publisher events.EventPublisher, clock port.Clock, cfg RelayConfig, logger *slog.Logger) *OutboxRelay {
	if cfg.Topic == "" {
		cfg.Topic = TopicLedgerEvents
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &OutboxRelay{outbox: outbox, publisher: publisher, clock: clock, logger: logger, cfg: cfg}
}

// RelayOnce publishes one batch and returns how many entries went out.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.outbox.FetchUnpublished(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if err := r.publisher.Publish(ctx, r.cfg.Topic, entries...); err != nil {
		return 0, err
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := r.outbox.MarkPublished(ctx, ids, r.clock.Now()); err != nil {
		return 0, fmt.Errorf("failed to mark %d outbox entries published: %w", len(ids), err)
	}
	return len(entries), nil
}

// Run drains the outbox every interval until ctx is canceled. A full batch
// triggers another pass right away.
func (r *OutboxRelay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay starting",
		"topic", r.cfg.Topic,
		"interval", r.cfg.Interval,
		"batch_size", r.cfg.BatchSize,
	)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		n, err := r.RelayOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
		case n > 0:
			r.logger.DebugContext(ctx, "outbox entries published", "count", n)
			if n == r.cfg.BatchSize {
				continue
			}
		}

		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return nil
		case <-ticker.C:
		}
	}
}
