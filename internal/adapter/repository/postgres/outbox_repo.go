package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expensor/approvals/internal/domain"
)

// OutboxRepository implements usecase.NotificationOutbox.
type OutboxRepository struct {
	pool pgxPool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Create stores an undelivered notification.
func (r *OutboxRepository) Create(ctx context.Context, event *domain.NotificationEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_outbox (
			id, expense_id, decision, reason, attempts, last_error,
			created_at, last_attempt_at, delivered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		event.ID,
		event.ExpenseID,
		string(event.Decision),
		event.Reason,
		event.Attempts,
		event.LastError,
		timeToPgTimestamptz(event.CreatedAt),
		timePtrToPgTimestamptz(event.LastAttemptAt),
		timePtrToPgTimestamptz(event.DeliveredAt),
	)
	if err != nil {
		return fmt.Errorf("%w: create outbox event: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// GetPending retrieves undelivered events below maxAttempts, oldest first.
func (r *OutboxRepository) GetPending(ctx context.Context, limit, maxAttempts int) ([]*domain.NotificationEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, expense_id, decision, reason, attempts, last_error,
			created_at, last_attempt_at, delivered_at
		FROM notification_outbox
		WHERE delivered_at IS NULL AND attempts < $2
		ORDER BY created_at
		LIMIT $1`,
		limit, maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: get pending: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var events []*domain.NotificationEvent
	for rows.Next() {
		var (
			e                        domain.NotificationEvent
			decision                 string
			createdAt                pgtype.Timestamptz
			lastAttemptAt, delivered pgtype.Timestamptz
		)
		if err := rows.Scan(&e.ID, &e.ExpenseID, &decision, &e.Reason, &e.Attempts, &e.LastError,
			&createdAt, &lastAttemptAt, &delivered); err != nil {
			return nil, fmt.Errorf("%w: scan outbox event: %w", domain.ErrStoreUnavailable, err)
		}
		e.Decision = domain.Decision(decision)
		e.CreatedAt = createdAt.Time.UTC()
		e.LastAttemptAt = pgTimestamptzToPtr(lastAttemptAt)
		e.DeliveredAt = pgTimestamptzToPtr(delivered)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: get pending: %w", domain.ErrStoreUnavailable, err)
	}

	return events, nil
}

// MarkDelivered marks an event as delivered.
func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox SET delivered_at = $2 WHERE id = $1`,
		id, timeToPgTimestamptz(deliveredAt),
	)
	if err != nil {
		return fmt.Errorf("%w: mark delivered: %w", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// RecordFailure bumps the attempt counter and keeps the last error.
func (r *OutboxRepository) RecordFailure(ctx context.Context, id, lastError string, attemptedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET attempts = attempts + 1, last_error = $2, last_attempt_at = $3
		WHERE id = $1`,
		id, lastError, timeToPgTimestamptz(attemptedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: record failure: %w", domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}
