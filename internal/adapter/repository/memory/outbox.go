package memory

import (
	"context"
	"sync"
	"time"

	"github.com/expensor/approvals/internal/domain"
)

// NotificationOutbox keeps undelivered notifications in memory.
type NotificationOutbox struct {
	mu     sync.Mutex
	events []*domain.NotificationEvent
	byID   map[string]*domain.NotificationEvent
}

// NewNotificationOutbox creates an empty outbox.
func NewNotificationOutbox() *NotificationOutbox {
	return &NotificationOutbox{byID: make(map[string]*domain.NotificationEvent)}
}

func (o *NotificationOutbox) Create(ctx context.Context, event *domain.NotificationEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cp := *event
	if existing, ok := o.byID[event.ID]; ok {
		*existing = cp
		return nil
	}
	o.events = append(o.events, &cp)
	o.byID[cp.ID] = &cp
	return nil
}

// GetPending returns undelivered events below maxAttempts, oldest first.
func (o *NotificationOutbox) GetPending(ctx context.Context, limit, maxAttempts int) ([]*domain.NotificationEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []*domain.NotificationEvent
	for _, e := range o.events {
		if len(out) >= limit {
			break
		}
		if e.Delivered() || e.Attempts >= maxAttempts {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (o *NotificationOutbox) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	e, ok := o.byID[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	at := deliveredAt
	e.DeliveredAt = &at
	return nil
}

func (o *NotificationOutbox) RecordFailure(ctx context.Context, id, lastError string, attemptedAt time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	e, ok := o.byID[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	at := attemptedAt
	e.Attempts++
	e.LastError = lastError
	e.LastAttemptAt = &at
	return nil
}
