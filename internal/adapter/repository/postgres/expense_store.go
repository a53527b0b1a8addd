package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expensor/approvals/internal/domain"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

const entryColumns = `e.expense_id, e.expense_type, e.description, e.vendor, e.expense_date,
	e.bill_number, e.receipt_image, e.ai_summary, e.categories, e.item_details,
	e.amount, e.fraud_score, e.is_anomaly, e.status, e.approved_by,
	e.approval_date, e.rejection_reason, e.created_at, e.updated_at`

const applyTransitionSQL = `
	UPDATE expense_entries
	SET status = $2, approved_by = $3, approval_date = $4, updated_at = $5, rejection_reason = $6
	WHERE expense_id = $1 AND status = 'Pending'`

const upsertEmployeeSQL = `
	INSERT INTO employees (employee_id, department_id)
	VALUES ($1, $2)
	ON CONFLICT (employee_id) DO UPDATE
	SET department_id = EXCLUDED.department_id, updated_at = now()`

// The WHERE clause leaves rows owned by another employee untouched, so a
// zero row count means the id is taken. Transition columns only follow the
// import while the stored row is still Pending.
const upsertEntrySQL = `
	INSERT INTO expense_entries (
		expense_id, employee_id, position, expense_type, description, vendor,
		expense_date, bill_number, receipt_image, ai_summary, categories,
		item_details, amount, fraud_score, is_anomaly, status, approved_by,
		approval_date, rejection_reason, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, COALESCE($20, now()), COALESCE($21, now())
	)
	ON CONFLICT (expense_id) DO UPDATE SET
		position = EXCLUDED.position,
		expense_type = EXCLUDED.expense_type,
		description = EXCLUDED.description,
		vendor = EXCLUDED.vendor,
		expense_date = EXCLUDED.expense_date,
		bill_number = EXCLUDED.bill_number,
		receipt_image = EXCLUDED.receipt_image,
		ai_summary = EXCLUDED.ai_summary,
		categories = EXCLUDED.categories,
		item_details = EXCLUDED.item_details,
		amount = EXCLUDED.amount,
		fraud_score = EXCLUDED.fraud_score,
		is_anomaly = EXCLUDED.is_anomaly,
		status = CASE WHEN expense_entries.status = 'Pending'
			THEN EXCLUDED.status ELSE expense_entries.status END,
		approved_by = CASE WHEN expense_entries.status = 'Pending'
			THEN EXCLUDED.approved_by ELSE expense_entries.approved_by END,
		approval_date = CASE WHEN expense_entries.status = 'Pending'
			THEN EXCLUDED.approval_date ELSE expense_entries.approval_date END,
		rejection_reason = CASE WHEN expense_entries.status = 'Pending'
			THEN EXCLUDED.rejection_reason ELSE expense_entries.rejection_reason END,
		updated_at = CASE WHEN expense_entries.status = 'Pending'
			THEN EXCLUDED.updated_at ELSE expense_entries.updated_at END
	WHERE expense_entries.employee_id = EXCLUDED.employee_id`

// ExpenseStore implements the expense store on PostgreSQL.
type ExpenseStore struct {
	pool    pgxPool
	retrier *Retrier
}

// NewExpenseStore creates a new ExpenseStore.
func NewExpenseStore(pool *pgxpool.Pool, retrier *Retrier) *ExpenseStore {
	return newExpenseStore(pool, retrier)
}

func newExpenseStore(pool pgxPool, retrier *Retrier) *ExpenseStore {
	return &ExpenseStore{pool: pool, retrier: retrier}
}

// FindEntryByID returns one entry.
func (s *ExpenseStore) FindEntryByID(ctx context.Context, expenseID string) (*domain.ExpenseEntry, error) {
	var row entryRow
	err := s.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM expense_entries e WHERE e.expense_id = $1`,
		expenseID,
	).Scan(row.dest()...)
	if err != nil {
		return nil, storeError("find entry", err)
	}
	return row.toDomain()
}

// ApplyTransition performs the conditional update and reports rows affected.
func (s *ExpenseStore) ApplyTransition(ctx context.Context, expenseID string, update domain.TransitionUpdate) (int64, error) {
	var affected int64

	err := s.retrier.Retry(ctx, func() error {
		tag, err := s.pool.Exec(ctx, applyTransitionSQL,
			expenseID,
			string(update.Status),
			stringPtrToPgText(update.ApprovedBy),
			timeToPgTimestamptz(update.ApprovalDate),
			timeToPgTimestamptz(update.UpdatedAt),
			update.RejectionReason,
		)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, storeError("apply transition", err)
	}

	return affected, nil
}

// UpsertRecord merges one employee's record inside a transaction. Entries
// absent from record are kept and decided entries keep their decision.
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeError("begin upsert", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, upsertEmployeeSQL, record.EmployeeID, record.DepartmentID); err != nil {
		return storeError("upsert employee", err)
	}

	for i := range record.Expenses {
		e := &record.Expenses[i]

		items, err := encodeItemDetails(e.ItemDetails)
		if err != nil {
			return err
		}

		categories := e.Categories
		if categories == nil {
			categories = []string{}
		}

		tag, err := tx.Exec(ctx, upsertEntrySQL,
			e.ExpenseID,
			record.EmployeeID,
			i,
			e.ExpenseType,
			e.Description,
			e.Vendor,
			e.Date,
			e.BillNumber,
			e.ReceiptImage,
			e.AISummary,
			categories,
			items,
			decimalToNumeric(e.Amount),
			decimalToNumeric(e.FraudScore),
			e.IsAnomaly,
			string(e.Status),
			stringPtrToPgText(e.ApprovedBy),
			timePtrToPgTimestamptz(e.ApprovalDate),
			e.RejectionReason,
			timeToPgTimestamptz(e.CreatedAt),
			timeToPgTimestamptz(e.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateExpenseID, e.ExpenseID)
			}
			return storeError("upsert entry", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateExpenseID, e.ExpenseID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storeError("commit upsert", err)
	}
	return nil
}

// GetEntryView returns the entry merged with its employee.
func (s *ExpenseStore) GetEntryView(ctx context.Context, expenseID string) (*domain.ExpenseView, error) {
	var (
		view domain.ExpenseView
		row  entryRow
	)
	dest := append([]any{&view.EmployeeID, &view.DepartmentID}, row.dest()...)

	err := s.pool.QueryRow(ctx,
		`SELECT emp.employee_id, emp.department_id, `+entryColumns+`
		FROM expense_entries e
		JOIN employees emp ON emp.employee_id = e.employee_id
		WHERE e.expense_id = $1`,
		expenseID,
	).Scan(dest...)
	if err != nil {
		return nil, storeError("get entry view", err)
	}

	entry, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	view.ExpenseEntry = *entry
	return &view, nil
}

// ListEntryViews returns a page of flattened entries.
func (s *ExpenseStore) ListEntryViews(ctx context.Context, limit, offset int) ([]*domain.ExpenseView, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT emp.employee_id, emp.department_id, `+entryColumns+`
		FROM expense_entries e
		JOIN employees emp ON emp.employee_id = e.employee_id
		ORDER BY emp.created_at, emp.employee_id, e.position
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, storeError("list entry views", err)
	}
	defer rows.Close()

	views := make([]*domain.ExpenseView, 0, limit)
	for rows.Next() {
		var (
			view domain.ExpenseView
			row  entryRow
		)
		dest := append([]any{&view.EmployeeID, &view.DepartmentID}, row.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, storeError("scan entry view", err)
		}
		entry, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		view.ExpenseEntry = *entry
		views = append(views, &view)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list entry views", err)
	}

	return views, nil
}

// Ping checks connectivity.
func (s *ExpenseStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// entryRow holds scan targets for entryColumns.
type entryRow struct {
	entry        domain.ExpenseEntry
	status       string
	categories   []string
	itemDetails  []byte
	amount       pgtype.Numeric
	fraudScore   pgtype.Numeric
	approvedBy   pgtype.Text
	approvalDate pgtype.Timestamptz
	createdAt    pgtype.Timestamptz
	updatedAt    pgtype.Timestamptz
}

func (r *entryRow) dest() []any {
	return []any{
		&r.entry.ExpenseID,
		&r.entry.ExpenseType,
		&r.entry.Description,
		&r.entry.Vendor,
		&r.entry.Date,
		&r.entry.BillNumber,
		&r.entry.ReceiptImage,
		&r.entry.AISummary,
		&r.categories,
		&r.itemDetails,
		&r.amount,
		&r.fraudScore,
		&r.entry.IsAnomaly,
		&r.status,
		&r.approvedBy,
		&r.approvalDate,
		&r.entry.RejectionReason,
		&r.createdAt,
		&r.updatedAt,
	}
}

func (r *entryRow) toDomain() (*domain.ExpenseEntry, error) {
	items, err := decodeItemDetails(r.itemDetails)
	if err != nil {
		return nil, err
	}

	e := r.entry
	e.Status = domain.Status(r.status)
	e.Categories = r.categories
	e.ItemDetails = items
	e.Amount = numericToDecimal(r.amount)
	e.FraudScore = numericToDecimal(r.fraudScore)
	e.ApprovedBy = pgTextToPtr(r.approvedBy)
	e.ApprovalDate = pgTimestamptzToPtr(r.approvalDate)
	if r.createdAt.Valid {
		e.CreatedAt = r.createdAt.Time.UTC()
	}
	if r.updatedAt.Valid {
		e.UpdatedAt = r.updatedAt.Time.UTC()
	}
	return &e, nil
}

// storeError maps driver errors onto domain errors.
func storeError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrExpenseNotFound
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
