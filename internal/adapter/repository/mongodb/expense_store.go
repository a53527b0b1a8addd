package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/expensor/approvals/internal/domain"
)

// Default collection names.
const (
	ExpensesCollection = "EmployeeExpenses"
	OutboxCollection   = "NotificationOutbox"
)

// ExpenseStore keeps one document per employee with the expenses embedded.
type ExpenseStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewExpenseStore creates a new ExpenseStore on db.
func NewExpenseStore(client *mongo.Client, db *mongo.Database) *ExpenseStore {
	return &ExpenseStore{client: client, coll: db.Collection(ExpensesCollection)}
}

// EnsureIndexes creates the unique index that keeps expense ids distinct
// across employees.
func (s *ExpenseStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "employeeId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expenses.expenseId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return storeError("ensure indexes", err)
	}
	return nil
}

// FindEntryByID returns one entry.
func (s *ExpenseStore) FindEntryByID(ctx context.Context, expenseID string) (*domain.ExpenseEntry, error) {
	view, err := s.GetEntryView(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	entry := view.ExpenseEntry
	return &entry, nil
}

// ApplyTransition updates the entry only while it is still Pending.
func (s *ExpenseStore) ApplyTransition(ctx context.Context, expenseID string, update domain.TransitionUpdate) (int64, error) {
	res, err := s.coll.UpdateOne(ctx, pendingEntryFilter(expenseID), transitionUpdateDoc(update))
	if err != nil {
		return 0, storeError("apply transition", err)
	}
	return res.ModifiedCount, nil
}

// UpsertRecord merges one employee's document entry by entry. A Pending
// entry is replaced, a decided entry only takes the descriptive fields, and
// an unknown entry is appended. Entries absent from record are kept.
func (s *ExpenseStore) UpsertRecord(ctx context.Context, record *domain.ExpenseRecord) error {
	if record == nil || record.EmployeeID == "" {
		return fmt.Errorf("%w: employee id is required", domain.ErrValidation)
	}

	seen := make(map[string]struct{}, len(record.Expenses))
	for i := range record.Expenses {
		id := record.Expenses[i].ExpenseID
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateExpenseID, id)
		}
		seen[id] = struct{}{}
	}

	owner := bson.D{{Key: "employeeId", Value: record.EmployeeID}}
	_, err := s.coll.UpdateOne(ctx, owner,
		bson.D{
			{Key: "$set", Value: bson.D{{Key: "departmentId", Value: record.DepartmentID}}},
			{Key: "$setOnInsert", Value: bson.D{{Key: "expenses", Value: bson.A{}}}},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return storeError("upsert record", err)
	}

	for i := range record.Expenses {
		if err := s.upsertEntry(ctx, record.EmployeeID, toEntryDocument(&record.Expenses[i])); err != nil {
			return err
		}
	}
	return nil
}

func (s *ExpenseStore) upsertEntry(ctx context.Context, employeeID string, doc entryDocument) error {
	res, err := s.coll.UpdateOne(ctx,
		ownedPendingEntryFilter(employeeID, doc.ExpenseID),
		bson.D{{Key: "$set", Value: bson.D{{Key: "expenses.$", Value: doc}}}},
	)
	if err != nil {
		return upsertError(doc.ExpenseID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	res, err = s.coll.UpdateOne(ctx,
		bson.D{
			{Key: "employeeId", Value: employeeID},
			{Key: "expenses.expenseId", Value: doc.ExpenseID},
		},
		bson.D{{Key: "$set", Value: descriptiveSet(doc)}},
	)
	if err != nil {
		return upsertError(doc.ExpenseID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	res, err = s.coll.UpdateOne(ctx,
		bson.D{
			{Key: "employeeId", Value: employeeID},
			{Key: "expenses.expenseId", Value: bson.D{{Key: "$ne", Value: doc.ExpenseID}}},
		},
		bson.D{{Key: "$push", Value: bson.D{{Key: "expenses", Value: doc}}}},
	)
	if err != nil {
		return upsertError(doc.ExpenseID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateExpenseID, doc.ExpenseID)
	}
	return nil
}

func upsertError(expenseID string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateExpenseID, expenseID)
	}
	return storeError("upsert entry", err)
}

// GetEntryView returns the entry merged with its employee fields.
func (s *ExpenseStore) GetEntryView(ctx context.Context, expenseID string) (*domain.ExpenseView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "expenses.expenseId", Value: expenseID}}}},
		{{Key: "$unwind", Value: "$expenses"}},
		{{Key: "$match", Value: bson.D{{Key: "expenses.expenseId", Value: expenseID}}}},
		viewProjection(),
		{{Key: "$limit", Value: 1}},
	}

	views, err := s.aggregateViews(ctx, pipeline, "get entry view")
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, domain.ErrExpenseNotFound
	}
	return views[0], nil
}

// ListEntryViews returns a page of flattened entries in natural order.
func (s *ExpenseStore) ListEntryViews(ctx context.Context, limit, offset int) ([]*domain.ExpenseView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$unwind", Value: "$expenses"}},
		viewProjection(),
		{{Key: "$skip", Value: int64(offset)}},
		{{Key: "$limit", Value: int64(limit)}},
	}
	return s.aggregateViews(ctx, pipeline, "list entry views")
}

// Ping checks connectivity.
func (s *ExpenseStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *ExpenseStore) aggregateViews(ctx context.Context, pipeline mongo.Pipeline, op string) ([]*domain.ExpenseView, error) {
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer cur.Close(ctx)

	var views []*domain.ExpenseView
	for cur.Next(ctx) {
		var doc viewDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, storeError(op, err)
		}
		view, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	if err := cur.Err(); err != nil {
		return nil, storeError(op, err)
	}
	return views, nil
}

// viewProjection flattens an unwound entry and its owner into one document.
func viewProjection() bson.D {
	return bson.D{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: bson.D{
		{Key: "$mergeObjects", Value: bson.A{
			"$expenses",
			bson.D{
				{Key: "employeeId", Value: "$employeeId"},
				{Key: "departmentId", Value: "$departmentId"},
			},
		}},
	}}}}}
}

// storeError maps driver errors onto domain errors.
func storeError(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrExpenseNotFound
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
