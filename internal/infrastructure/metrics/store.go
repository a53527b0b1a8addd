package metrics

import (
	"context"

	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/usecase"
)

// Store is the full surface of an expense store backend.
type Store interface {
	usecase.ExpenseStore
	usecase.ExpenseReader
	usecase.RecordWriter
	Ping(ctx context.Context) error
}

// InstrumentedStore counts every call made to the wrapped Store.
type InstrumentedStore struct {
	next    Store
	metrics *Metrics
}

// InstrumentStore wraps next. A nil m records nothing.
func InstrumentStore(next Store, m *Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, metrics: m}
}

func (s *InstrumentedStore) FindEntryByID(ctx context.Context, expenseID string) (*domain.ExpenseEntry, error) {
	e, err := s.next.FindEntryByID(ctx, expenseID)
	s.metrics.RecordStoreOperation("find_entry", err)
	return e, err
}

func (s *InstrumentedStore) ApplyTransition(ctx context.Context, expenseID string, update domain.TransitionUpdate) (int64, error) {
	n, err := s.next.ApplyTransition(ctx, expenseID, update)
	s.metrics.RecordStoreOperation("apply_transition", err)
	return n, err
}

func (s *InstrumentedStore) GetEntryView(ctx context.Context, expenseID string) (*domain.ExpenseView, error) {
	v, err := s.next.GetEntryView(ctx, expenseID)
	s.metrics.RecordStoreOperation("get_view", err)
	return v, err
}

func (s *InstrumentedStore) ListEntryViews(ctx context.Context, limit, offset int) ([]*domain.ExpenseView, error) {
	v, err := s.next.ListEntryViews(ctx, limit, offset)
	s.metrics.RecordStoreOperation("list_views", err)
	return v, err
}

func (s *InstrumentedStore) UpsertRecord(ctx context.Context, record *domain.ExpenseRecord) error {
	err := s.next.UpsertRecord(ctx, record)
	s.metrics.RecordStoreOperation("upsert_record", err)
	return err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
