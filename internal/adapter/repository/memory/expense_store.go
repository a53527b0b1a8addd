// Package memory holds mutex-guarded in-process adapters for local runs
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/expensor/approvals/internal/domain"
)

// ExpenseStore keeps employee records in memory. A single write lock makes
// the check-and-set in ApplyTransition atomic.
type ExpenseStore struct {
	mu      sync.RWMutex
	records map[string]*domain.ExpenseRecord
	order   []string
	owners  map[string]string // expenseID -> employeeID
}

// NewExpenseStore creates an empty ExpenseStore.
func NewExpenseStore() *ExpenseStore {
	return &ExpenseStore{
		records: make(map[string]*domain.ExpenseRecord),
		owners:  make(map[string]string),
	}
}

// FindEntryByID returns a copy of the entry.
func (s *ExpenseStore) FindEntryByID(ctx context.Context, expenseID string) (*domain.ExpenseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, _ := s.locate(expenseID)
	if entry == nil {
		return nil, domain.ErrExpenseNotFound
	}
	return entry.Clone(), nil
}

// ApplyTransition writes update if the entry is still Pending.
func (s *ExpenseStore) ApplyTransition(ctx context.Context, expenseID string, update domain.TransitionUpdate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, _ := s.locate(expenseID)
	if entry == nil || entry.Status != domain.StatusPending {
		return 0, nil
	}
	entry.Apply(update)
	return 1, nil
}

// UpsertRecord inserts or merges the record of one employee. Entries that
// already left Pending keep their decision, and entries missing from record
// are kept.
func (s *ExpenseStore) UpsertRecord(ctx context.Context, record *domain.ExpenseRecord) error {
	if record == nil || record.EmployeeID == "" {
		return fmt.Errorf("%w: employee id is required", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(record.Expenses))
	for i := range record.Expenses {
		id := record.Expenses[i].ExpenseID
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateExpenseID, id)
		}
		seen[id] = struct{}{}
		if owner, ok := s.owners[id]; ok && owner != record.EmployeeID {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateExpenseID, id)
		}
	}

	old, exists := s.records[record.EmployeeID]
	if !exists {
		s.order = append(s.order, record.EmployeeID)
	}

	stored := &domain.ExpenseRecord{
		EmployeeID:   record.EmployeeID,
		DepartmentID: record.DepartmentID,
		Expenses:     make([]domain.ExpenseEntry, 0, len(record.Expenses)),
	}
	for i := range record.Expenses {
		entry := record.Expenses[i].Clone()
		if exists {
			entry.KeepDecision(findEntry(old, entry.ExpenseID))
		}
		stored.Expenses = append(stored.Expenses, *entry)
		s.owners[entry.ExpenseID] = record.EmployeeID
	}
	if exists {
		for i := range old.Expenses {
			if _, ok := seen[old.Expenses[i].ExpenseID]; !ok {
				stored.Expenses = append(stored.Expenses, old.Expenses[i])
			}
		}
	}
	s.records[record.EmployeeID] = stored

	return nil
}

// GetEntryView returns the entry merged with its owner's identity.
func (s *ExpenseStore) GetEntryView(ctx context.Context, expenseID string) (*domain.ExpenseView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, record := s.locate(expenseID)
	if entry == nil {
		return nil, domain.ErrExpenseNotFound
	}
	return view(record, entry), nil
}

// ListEntryViews flattens all records in insertion order.
func (s *ExpenseStore) ListEntryViews(ctx context.Context, limit, offset int) ([]*domain.ExpenseView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ExpenseView, 0, limit)
	idx := 0
	for _, employeeID := range s.order {
		record := s.records[employeeID]
		for i := range record.Expenses {
			if idx >= offset && len(out) < limit {
				out = append(out, view(record, &record.Expenses[i]))
			}
			idx++
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Ping always succeeds.
func (s *ExpenseStore) Ping(ctx context.Context) error {
	return nil
}

func (s *ExpenseStore) locate(expenseID string) (*domain.ExpenseEntry, *domain.ExpenseRecord) {
	owner, ok := s.owners[expenseID]
	if !ok {
		return nil, nil
	}
	record := s.records[owner]
	for i := range record.Expenses {
		if record.Expenses[i].ExpenseID == expenseID {
			return &record.Expenses[i], record
		}
	}
	return nil, nil
}

func findEntry(record *domain.ExpenseRecord, expenseID string) *domain.ExpenseEntry {
	for i := range record.Expenses {
		if record.Expenses[i].ExpenseID == expenseID {
			return &record.Expenses[i]
		}
	}
	return nil
}

func view(record *domain.ExpenseRecord, entry *domain.ExpenseEntry) *domain.ExpenseView {
	return &domain.ExpenseView{
		EmployeeID:   record.EmployeeID,
		DepartmentID: record.DepartmentID,
		ExpenseEntry: *entry.Clone(),
	}
}
