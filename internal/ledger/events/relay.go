package events

import (
	"context"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"

	"github.com/rs/zerolog"
)

// OutboxRelay drains unpublished outbox events to the message bus on a fixed
// interval. Delivery is at-least-once: an event is marked published only
// after the broker accepted it, and a publish failure stops the current batch
// so ordering within the outbox is preserved.
type OutboxRelay struct {
	outboxRepo ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	log        zerolog.Logger
}

// NewOutboxRelay creates a relay with the given polling interval and batch size.
func NewOutboxRelay(outboxRepo ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int, log zerolog.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		log:        log,
	}
}

// Run polls until ctx is cancelled. It is meant to be started as a goroutine
// from main.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().
		Dur("interval", r.interval).
		Int("batch_size", r.batchSize).
		Msg("outbox relay started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.log.Warn().Err(err).Msg("outbox flush failed")
			}
		}
	}
}

// Flush publishes one batch of unpublished events, oldest first. It returns
// on the first publish failure; the failed event and everything after it stay
// unpublished and are retried on the next tick.
func (r *OutboxRelay) Flush(ctx context.Context) error {
	events, err := r.outboxRepo.ListUnpublished(ctx, r.batchSize)
	if err != nil {
		return err
	}

	for i := range events {
		event := &events[i]
		if err := r.publisher.Publish(ctx, event); err != nil {
			return err
		}
		if err := r.outboxRepo.MarkPublished(ctx, event.ID); err != nil {
			// The event was delivered but not marked; it will be re-delivered.
			return err
		}
	}
	return nil
}
