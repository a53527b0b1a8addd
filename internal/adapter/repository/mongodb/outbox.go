package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/expensor/approvals/internal/domain"
)

type outboxDocument struct {
	ID            string     `bson:"_id"`
	ExpenseID     string     `bson:"expenseId"`
	Decision      string     `bson:"decision"`
	Reason        string     `bson:"reason"`
	Attempts      int        `bson:"attempts"`
	LastError     string     `bson:"lastError,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt"`
	LastAttemptAt *time.Time `bson:"lastAttemptAt,omitempty"`
	DeliveredAt   *time.Time `bson:"deliveredAt,omitempty"`
}

func (d *outboxDocument) toDomain() *domain.NotificationEvent {
	e := &domain.NotificationEvent{
		ID:        d.ID,
		ExpenseID: d.ExpenseID,
		Decision:  domain.Decision(d.Decision),
		Reason:    d.Reason,
		Attempts:  d.Attempts,
		LastError: d.LastError,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.LastAttemptAt != nil {
		t := d.LastAttemptAt.UTC()
		e.LastAttemptAt = &t
	}
	if d.DeliveredAt != nil {
		t := d.DeliveredAt.UTC()
		e.DeliveredAt = &t
	}
	return e
}

// Outbox implements usecase.NotificationOutbox on a collection.
type Outbox struct {
	coll *mongo.Collection
}

// NewOutbox creates a new Outbox on db.
func NewOutbox(db *mongo.Database) *Outbox {
	return &Outbox{coll: db.Collection(OutboxCollection)}
}

// EnsureIndexes creates the index used by GetPending.
func (o *Outbox) EnsureIndexes(ctx context.Context) error {
	_, err := o.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "deliveredAt", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("%w: ensure outbox indexes: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Create stores an undelivered notification. Re-inserting an id is a no-op.
func (o *Outbox) Create(ctx context.Context, event *domain.NotificationEvent) error {
	doc := outboxDocument{
		ID:            event.ID,
		ExpenseID:     event.ExpenseID,
		Decision:      string(event.Decision),
		Reason:        event.Reason,
		Attempts:      event.Attempts,
		LastError:     event.LastError,
		CreatedAt:     event.CreatedAt.UTC(),
		LastAttemptAt: event.LastAttemptAt,
		DeliveredAt:   event.DeliveredAt,
	}
	if _, err := o.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("%w: create outbox event: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// GetPending retrieves undelivered events below maxAttempts, oldest first.
func (o *Outbox) GetPending(ctx context.Context, limit, maxAttempts int) ([]*domain.NotificationEvent, error) {
	filter := bson.D{
		{Key: "deliveredAt", Value: bson.D{{Key: "$exists", Value: false}}},
		{Key: "attempts", Value: bson.D{{Key: "$lt", Value: maxAttempts}}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := o.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: get pending: %w", domain.ErrStoreUnavailable, err)
	}
	defer cur.Close(ctx)

	var docs []outboxDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode pending: %w", domain.ErrStoreUnavailable, err)
	}

	events := make([]*domain.NotificationEvent, 0, len(docs))
	for i := range docs {
		events = append(events, docs[i].toDomain())
	}
	return events, nil
}

// MarkDelivered marks an event as delivered.
func (o *Outbox) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	res, err := o.coll.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "deliveredAt", Value: deliveredAt.UTC()},
	}}})
	if err != nil {
		return fmt.Errorf("%w: mark delivered: %w", domain.ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// RecordFailure bumps the attempt counter and keeps the last error.
func (o *Outbox) RecordFailure(ctx context.Context, id, lastError string, attemptedAt time.Time) error {
	res, err := o.coll.UpdateByID(ctx, id, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "attempts", Value: 1}}},
		{Key: "$set", Value: bson.D{
			{Key: "lastError", Value: lastError},
			{Key: "lastAttemptAt", Value: attemptedAt.UTC()},
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: record failure: %w", domain.ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}
