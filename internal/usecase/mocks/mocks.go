package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/usecase"
)

// FakeExpenseStore is an in-memory ExpenseStore and ExpenseReader with
// overridable behaviour.
type FakeExpenseStore struct {
	mu      sync.Mutex
	entries map[string]*domain.ExpenseView

	FindEntryByIDFunc   func(ctx context.Context, expenseID string) (*domain.ExpenseEntry, error)
	ApplyTransitionFunc func(ctx context.Context, expenseID string, update domain.TransitionUpdate) (int64, error)
	GetEntryViewFunc    func(ctx context.Context, expenseID string) (*domain.ExpenseView, error)

	ApplyCalls int
}

func NewFakeExpenseStore(views ...*domain.ExpenseView) *FakeExpenseStore {
	s := &FakeExpenseStore{entries: make(map[string]*domain.ExpenseView)}
	for _, v := range views {
		s.Put(v)
	}
	return s
}

// Put stores a copy of v.
func (m *FakeExpenseStore) Put(v *domain.ExpenseView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	cp.ExpenseEntry = *v.ExpenseEntry.Clone()
	m.entries[v.ExpenseID] = &cp
}

// Entry returns a copy of the stored entry, or nil.
func (m *FakeExpenseStore) Entry(expenseID string) *domain.ExpenseEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.entries[expenseID]; ok {
		return v.ExpenseEntry.Clone()
	}
	return nil
}

func (m *FakeExpenseStore) FindEntryByID(ctx context.Context, expenseID string) (*domain.ExpenseEntry, error) {
	if m.FindEntryByIDFunc != nil {
		return m.FindEntryByIDFunc(ctx, expenseID)
	}
	if e := m.Entry(expenseID); e != nil {
		return e, nil
	}
	return nil, domain.ErrExpenseNotFound
}

func (m *FakeExpenseStore) ApplyTransition(ctx context.Context, expenseID string, update domain.TransitionUpdate) (int64, error) {
	m.mu.Lock()
	m.ApplyCalls++
	m.mu.Unlock()

	if m.ApplyTransitionFunc != nil {
		return m.ApplyTransitionFunc(ctx, expenseID, update)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[expenseID]
	if !ok || v.Status != domain.StatusPending {
		return 0, nil
	}
	v.Apply(update)
	return 1, nil
}

func (m *FakeExpenseStore) GetEntryView(ctx context.Context, expenseID string) (*domain.ExpenseView, error) {
	if m.GetEntryViewFunc != nil {
		return m.GetEntryViewFunc(ctx, expenseID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[expenseID]
	if !ok {
		return nil, domain.ErrExpenseNotFound
	}
	cp := *v
	cp.ExpenseEntry = *v.ExpenseEntry.Clone()
	return &cp, nil
}

func (m *FakeExpenseStore) ListEntryViews(ctx context.Context, limit, offset int) ([]*domain.ExpenseView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*domain.ExpenseView
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) == limit {
			break
		}
		cp := *m.entries[id]
		out = append(out, &cp)
	}
	return out, nil
}

// FakeRecordWriter records upserted records.
type FakeRecordWriter struct {
	mu      sync.Mutex
	Records []*domain.ExpenseRecord

	UpsertRecordFunc func(ctx context.Context, record *domain.ExpenseRecord) error
}

func (m *FakeRecordWriter) UpsertRecord(ctx context.Context, record *domain.ExpenseRecord) error {
	if m.UpsertRecordFunc != nil {
		return m.UpsertRecordFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, record)
	return nil
}

// FakeNotifier records notifications and returns NotifyFunc's result.
type FakeNotifier struct {
	mu   sync.Mutex
	Sent []domain.Notification

	NotifyFunc func(ctx context.Context, n domain.Notification) error
}

func (m *FakeNotifier) Notify(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, n)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, n)
	}
	return nil
}

func (m *FakeNotifier) Endpoint(n domain.Notification) string {
	return fmt.Sprintf("http://notify.test/expenses/%s/%s", n.ExpenseID, n.Decision.NotifyAction())
}

// Calls returns a copy of the notifications sent so far.
func (m *FakeNotifier) Calls() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.Sent...)
}

// FakeOutbox is an in-memory NotificationOutbox.
type FakeOutbox struct {
	mu     sync.Mutex
	events []*domain.NotificationEvent

	CreateFunc     func(ctx context.Context, event *domain.NotificationEvent) error
	GetPendingFunc func(ctx context.Context, limit, maxAttempts int) ([]*domain.NotificationEvent, error)
}

func (m *FakeOutbox) Create(ctx context.Context, event *domain.NotificationEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *event
	m.events = append(m.events, &cp)
	return nil
}

func (m *FakeOutbox) GetPending(ctx context.Context, limit, maxAttempts int) ([]*domain.NotificationEvent, error) {
	if m.GetPendingFunc != nil {
		return m.GetPendingFunc(ctx, limit, maxAttempts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.NotificationEvent
	for _, e := range m.events {
		if e.Delivered() || e.Attempts >= maxAttempts {
			continue
		}
		if len(out) == limit {
			break
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *FakeOutbox) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			at := deliveredAt
			e.DeliveredAt = &at
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

func (m *FakeOutbox) RecordFailure(ctx context.Context, id, lastError string, attemptedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			at := attemptedAt
			e.Attempts++
			e.LastError = lastError
			e.LastAttemptAt = &at
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

// Events returns copies of every stored event.
func (m *FakeOutbox) Events() []domain.NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.NotificationEvent, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out
}

// FakeCache is an in-memory Cache.
type FakeCache struct {
	mu    sync.Mutex
	items map[string][]byte

	Deleted   []string
	DeleteErr error
}

func NewFakeCache() *FakeCache {
	return &FakeCache{items: make(map[string][]byte)}
}

func (m *FakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, usecase.ErrCacheMiss
	}
	return v, nil
}

func (m *FakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *FakeCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, key)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.items, key)
	return nil
}

// SequentialIDGenerator is a deterministic IDGenerator.
type SequentialIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func (m *SequentialIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// FakeIdempotencyStore is a mock implementation of IdempotencyStore.
type FakeIdempotencyStore struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

func NewFakeIdempotencyStore() *FakeIdempotencyStore {
	return &FakeIdempotencyStore{keys: make(map[string][]byte)}
}

func (m *FakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.keys[key]; ok {
		return true, existing, nil
	}
	m.keys[key] = response
	return false, nil, nil
}

func (m *FakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = response
	return nil
}

func (m *FakeIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

var (
	_ usecase.ExpenseStore       = (*FakeExpenseStore)(nil)
	_ usecase.ExpenseReader      = (*FakeExpenseStore)(nil)
	_ usecase.RecordWriter       = (*FakeRecordWriter)(nil)
	_ usecase.Notifier           = (*FakeNotifier)(nil)
	_ usecase.NotificationOutbox = (*FakeOutbox)(nil)
	_ usecase.Cache              = (*FakeCache)(nil)
	_ usecase.IDGenerator        = (*SequentialIDGenerator)(nil)
	_ usecase.IdempotencyStore   = (*FakeIdempotencyStore)(nil)
)
