package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/expensor/approvals/internal/domain"
)

// ExpenseStore is the write side of the expense store.
type ExpenseStore interface {
	FindEntryByID(ctx context.Context, expenseID string) (*domain.ExpenseEntry, error)
	// ApplyTransition writes update only if the entry is still Pending and
	// returns the number of entries modified (0 or 1).
	ApplyTransition(ctx context.Context, expenseID string, update domain.TransitionUpdate) (int64, error)
}

// ExpenseReader serves merged entry views.
type ExpenseReader interface {
	GetEntryView(ctx context.Context, expenseID string) (*domain.ExpenseView, error)
	ListEntryViews(ctx context.Context, limit, offset int) ([]*domain.ExpenseView, error)
}

// RecordWriter inserts or merges employee records. Decided entries keep
// their decision.
type RecordWriter interface {
	UpsertRecord(ctx context.Context, record *domain.ExpenseRecord) error
}

// Notifier delivers decisions to the notification service.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
	Endpoint(n domain.Notification) string
}

// NotificationOutbox keeps undelivered notifications for replay.
type NotificationOutbox interface {
	Create(ctx context.Context, event *domain.NotificationEvent) error
	GetPending(ctx context.Context, limit, maxAttempts int) ([]*domain.NotificationEvent, error)
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error
	RecordFailure(ctx context.Context, id, lastError string, attemptedAt time.Time) error
}

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// MetricsRecorder receives use case level measurements.
type MetricsRecorder interface {
	RecordTransition(decision, outcome string, elapsed time.Duration)
	RecordNotification(decision, outcome string, elapsed time.Duration)
	RecordCacheLookup(hit bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordTransition(string, string, time.Duration)   {}
func (noopMetrics) RecordNotification(string, string, time.Duration) {}
func (noopMetrics) RecordCacheLookup(bool)                           {}
