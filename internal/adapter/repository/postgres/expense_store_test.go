package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/usecase"
)

var (
	_ usecase.ExpenseStore       = (*ExpenseStore)(nil)
	_ usecase.ExpenseReader      = (*ExpenseStore)(nil)
	_ usecase.RecordWriter       = (*ExpenseStore)(nil)
	_ usecase.NotificationOutbox = (*OutboxRepository)(nil)
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func assertExpectations(t *testing.T, pool pgxmock.PgxPoolIface) {
	t.Helper()
	if err := pool.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations were not met: %v", err)
	}
}

func approveUpdate() domain.TransitionUpdate {
	return domain.NewTransitionUpdate(domain.DecisionApprove, "mgr-1", "", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestExpenseStore_ApplyTransitionReportsRowsAffected(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
	}{
		{"pending entry updated", 1},
		{"already transitioned or missing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newMockPool(t)
			pool.ExpectExec(`UPDATE expense_entries`).
				WithArgs("exp-1", "Approved", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "").
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			store := newExpenseStore(pool, fastRetrier(nil))
			n, err := store.ApplyTransition(context.Background(), "exp-1", approveUpdate())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != tt.affected {
				t.Fatalf("expected %d rows, got %d", tt.affected, n)
			}
			assertExpectations(t, pool)
		})
	}
}

func TestExpenseStore_ApplyTransitionRetriesDeadlock(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec(`UPDATE expense_entries`).
		WillReturnError(&pgconn.PgError{Code: pgErrDeadlock})
	pool.ExpectExec(`UPDATE expense_entries`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	retries := 0
	store := newExpenseStore(pool, fastRetrier(func() { retries++ }))

	n, err := store.ApplyTransition(context.Background(), "exp-1", approveUpdate())
	if err != nil || n != 1 {
		t.Fatalf("expected 1 row after retry, got %d, %v", n, err)
	}
	if retries != 1 {
		t.Fatalf("expected one retry, got %d", retries)
	}
	assertExpectations(t, pool)
}

func TestExpenseStore_ApplyTransitionConnectivityFailure(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec(`UPDATE expense_entries`).
		WillReturnError(errors.New("dial tcp: connection refused"))

	store := newExpenseStore(pool, fastRetrier(nil))

	_, err := store.ApplyTransition(context.Background(), "exp-1", approveUpdate())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestExpenseStore_FindEntryByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(`FROM expense_entries e WHERE e.expense_id`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"expense_id"}))

	store := newExpenseStore(pool, fastRetrier(nil))

	_, err := store.FindEntryByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrExpenseNotFound) {
		t.Fatalf("expected ErrExpenseNotFound, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestExpenseStore_UpsertRecordRejectsDuplicateWithinRecord(t *testing.T) {
	pool := newMockPool(t)
	store := newExpenseStore(pool, fastRetrier(nil))

	err := store.UpsertRecord(context.Background(), &domain.ExpenseRecord{
		EmployeeID: "emp-1",
		Expenses: []domain.ExpenseEntry{
			{ExpenseID: "exp-1", Status: domain.StatusPending},
			{ExpenseID: "exp-1", Status: domain.StatusPending},
		},
	})
	if !errors.Is(err, domain.ErrDuplicateExpenseID) {
		t.Fatalf("expected ErrDuplicateExpenseID, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestExpenseStore_UpsertRecordRejectsForeignOwner(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectBegin()
	pool.ExpectExec(`INSERT INTO employees`).
		WithArgs("emp-2", "dep-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(`INSERT INTO expense_entries`).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	pool.ExpectRollback()

	store := newExpenseStore(pool, fastRetrier(nil))

	err := store.UpsertRecord(context.Background(), &domain.ExpenseRecord{
		EmployeeID:   "emp-2",
		DepartmentID: "dep-1",
		Expenses: []domain.ExpenseEntry{
			{ExpenseID: "exp-1", Status: domain.StatusPending, Amount: decimal.RequireFromString("42.5")},
		},
	})
	if !errors.Is(err, domain.ErrDuplicateExpenseID) {
		t.Fatalf("expected ErrDuplicateExpenseID, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestExpenseStore_UpsertRecordNeverDeletes(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectBegin()
	pool.ExpectExec(`INSERT INTO employees`).
		WithArgs("emp-1", "dep-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(`INSERT INTO expense_entries`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectCommit()

	store := newExpenseStore(pool, fastRetrier(nil))

	err := store.UpsertRecord(context.Background(), &domain.ExpenseRecord{
		EmployeeID:   "emp-1",
		DepartmentID: "dep-1",
		Expenses:     []domain.ExpenseEntry{{ExpenseID: "exp-1", Status: domain.StatusPending}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, pool)
}

func TestUpsertEntrySQLKeepsDecidedColumns(t *testing.T) {
	for _, col := range []string{"status", "approved_by", "approval_date", "rejection_reason", "updated_at"} {
		guarded := col + " = CASE WHEN expense_entries.status = 'Pending'"
		if !strings.Contains(upsertEntrySQL, guarded) {
			t.Fatalf("%s must only follow the import while the row is Pending", col)
		}
	}
}

func TestNumericConversionsRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "42.5", "150.00", "-3.125", "123456789.987654321"} {
		d := decimal.RequireFromString(s)
		got := numericToDecimal(decimalToNumeric(d))
		if !got.Equal(d) {
			t.Fatalf("round trip of %s produced %s", s, got)
		}
	}
}

func TestItemDetailsRoundTrip(t *testing.T) {
	items := []domain.ItemDetail{
		{Name: "Hotel", Price: decimal.RequireFromString("120.50")},
		{Name: "Taxi", Price: decimal.RequireFromString("29.5")},
	}

	raw, err := encodeItemDetails(items)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := decodeItemDetails(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Name != "Hotel" || !decoded[1].Price.Equal(items[1].Price) {
		t.Fatalf("unexpected items %+v", decoded)
	}

	legacy, err := decodeItemDetails([]byte(`[{"item":"Lunch","amount":{"$numberDouble":"12.75"}}]`))
	if err != nil {
		t.Fatalf("decode of wrapped price failed: %v", err)
	}
	if !legacy[0].Price.Equal(decimal.RequireFromString("12.75")) {
		t.Fatalf("expected 12.75, got %s", legacy[0].Price)
	}
}
