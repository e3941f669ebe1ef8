package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepo implements ports.OutboxRepository. Events are inserted in the
// same transaction as the ledger write they describe and swept by the relay.
type OutboxRepo struct {
	pool Pool
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo(pool Pool) *OutboxRepo {
	return &OutboxRepo{pool: pool}
}

// Create inserts an outbox event within a database transaction.
func (r *OutboxRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.OutboxEvent) error {
	query := `INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, correlation_id, created_at, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.AggregateType, e.AggregateID, e.EventType,
		e.Payload, e.CorrelationID, e.CreatedAt, e.Published,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// ListUnpublished returns unpublished events oldest first.
func (r *OutboxRepo) ListUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	query := `SELECT id, aggregate_type, aggregate_id, event_type, payload, correlation_id, created_at, published
		FROM outbox_events WHERE published = false ORDER BY created_at ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished events: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType,
			&e.Payload, &e.CorrelationID, &e.CreatedAt, &e.Published); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return events, nil
}

// MarkPublished flags an event as delivered.
func (r *OutboxRepo) MarkPublished(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE outbox_events SET published = true, published_at = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	return nil
}
