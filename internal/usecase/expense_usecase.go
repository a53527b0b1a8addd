package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/expensor/approvals/internal/domain"
)

// ExpenseUseCase handles expense reads and record imports.
type ExpenseUseCase struct {
	reader   ExpenseReader
	writer   RecordWriter
	cache    Cache
	metrics  MetricsRecorder
	logger   zerolog.Logger
	cacheTTL time.Duration
}

// NewExpenseUseCase creates a new ExpenseUseCase. cache and metrics may be nil.
func NewExpenseUseCase(
	reader ExpenseReader,
	writer RecordWriter,
	cache Cache,
	metrics MetricsRecorder,
	logger zerolog.Logger,
	cacheTTL time.Duration,
) *ExpenseUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultViewCacheTTL
	}
	return &ExpenseUseCase{
		reader:   reader,
		writer:   writer,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// GetExpense returns the merged view of one entry.
func (uc *ExpenseUseCase) GetExpense(ctx context.Context, expenseID string) (*domain.ExpenseView, error) {
	if err := domain.ValidateExpenseID(expenseID); err != nil {
		return nil, err
	}

	if view, ok := uc.cachedView(ctx, expenseID); ok {
		return view, nil
	}

	view, err := uc.reader.GetEntryView(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	uc.storeView(ctx, view)

	return view, nil
}

// ListExpensesInput represents pagination for listing entries.
type ListExpensesInput struct {
	Limit  int
	Offset int
}

// ListExpenses returns a page of merged views.
func (uc *ExpenseUseCase) ListExpenses(ctx context.Context, input ListExpensesInput) ([]*domain.ExpenseView, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.reader.ListEntryViews(ctx, limit, offset)
}

// ImportRecords upserts whole employee records after checking every entry.
// It stops at the first failure and returns how many were stored.
func (uc *ExpenseUseCase) ImportRecords(ctx context.Context, records []*domain.ExpenseRecord) (int, error) {
	if uc.writer == nil {
		return 0, errors.New("record import is not configured")
	}
	for i, record := range records {
		for j := range record.Expenses {
			if err := record.Expenses[j].CheckInvariants(); err != nil {
				return i, err
			}
		}
		if err := uc.writer.UpsertRecord(ctx, record); err != nil {
			return i, err
		}
		if uc.cache != nil {
			for j := range record.Expenses {
				id := record.Expenses[j].ExpenseID
				if err := uc.cache.Delete(context.WithoutCancel(ctx), ViewCacheKey(id)); err != nil {
					uc.logger.Warn().Err(err).Str("expense_id", id).Msg("failed to invalidate cached view")
				}
			}
		}
	}
	return len(records), nil
}

func (uc *ExpenseUseCase) cachedView(ctx context.Context, expenseID string) (*domain.ExpenseView, bool) {
	if uc.cache == nil {
		return nil, false
	}

	data, err := uc.cache.Get(ctx, ViewCacheKey(expenseID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			uc.logger.Warn().Err(err).Str("expense_id", expenseID).Msg("cache read failed")
		}
		uc.metrics.RecordCacheLookup(false)
		return nil, false
	}

	var view domain.ExpenseView
	if err := json.Unmarshal(data, &view); err != nil {
		uc.logger.Warn().Err(err).Str("expense_id", expenseID).Msg("discarding undecodable cached view")
		uc.metrics.RecordCacheLookup(false)
		return nil, false
	}

	uc.metrics.RecordCacheLookup(true)
	return &view, true
}

// storeView caches decided views only. A Pending view read just before a
// transition commits could otherwise land in the cache after the
// transition's invalidation.
func (uc *ExpenseUseCase) storeView(ctx context.Context, view *domain.ExpenseView) {
	if uc.cache == nil || !view.Status.IsTerminal() {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := uc.cache.Set(ctx, ViewCacheKey(view.ExpenseID), data, uc.cacheTTL); err != nil {
		uc.logger.Warn().Err(err).Str("expense_id", view.ExpenseID).Msg("cache write failed")
	}
}
