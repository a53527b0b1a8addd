package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/expensor/approvals/internal/domain"
)

// NotifyStatus describes what happened to the notification of a transition.
type NotifyStatus string

const (
	NotifyDelivered NotifyStatus = "delivered"
	NotifyFailed    NotifyStatus = "failed"
	NotifyPending   NotifyStatus = "pending"
	NotifyDisabled  NotifyStatus = "disabled"
)

// TransitionConfig wires a TransitionUseCase.
type TransitionConfig struct {
	Store         ExpenseStore
	Notifier      Notifier           // nil disables notifications
	Outbox        NotificationOutbox // nil drops failed notifications after logging
	Cache         Cache              // nil disables view invalidation
	IDGen         IDGenerator
	Metrics       MetricsRecorder
	Logger        zerolog.Logger
	Now           Clock
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
}

// TransitionUseCase moves pending expenses to Approved or Declined.
type TransitionUseCase struct {
	store         ExpenseStore
	notifier      Notifier
	outbox        NotificationOutbox
	cache         Cache
	idGen         IDGenerator
	metrics       MetricsRecorder
	logger        zerolog.Logger
	now           Clock
	storeTimeout  time.Duration
	notifyTimeout time.Duration

	inflight sync.WaitGroup
}

// NewTransitionUseCase creates a new TransitionUseCase.
func NewTransitionUseCase(cfg TransitionConfig) *TransitionUseCase {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreWriteTimeout
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}

	return &TransitionUseCase{
		store:         cfg.Store,
		notifier:      cfg.Notifier,
		outbox:        cfg.Outbox,
		cache:         cfg.Cache,
		idGen:         cfg.IDGen,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		now:           cfg.Now,
		storeTimeout:  cfg.StoreTimeout,
		notifyTimeout: cfg.NotifyTimeout,
	}
}

// TransitionInput represents input for deciding on an expense.
type TransitionInput struct {
	ExpenseID string
	Decision  domain.Decision
	Reason    string
}

// TransitionResult is returned once the new status is durable.
type TransitionResult struct {
	ExpenseID    string
	Status       domain.Status
	NotifyStatus NotifyStatus
	NotifyError  string
	Success      bool
	Notified     bool
}

// Approve approves a pending expense on behalf of the actor in ctx.
func (uc *TransitionUseCase) Approve(ctx context.Context, expenseID, reason string) (*TransitionResult, error) {
	return uc.Transition(ctx, TransitionInput{ExpenseID: expenseID, Decision: domain.DecisionApprove, Reason: reason})
}

// Decline declines a pending expense; reason is required.
func (uc *TransitionUseCase) Decline(ctx context.Context, expenseID, reason string) (*TransitionResult, error) {
	return uc.Transition(ctx, TransitionInput{ExpenseID: expenseID, Decision: domain.DecisionDecline, Reason: reason})
}

// Transition applies a decision. The store write is atomic and conditional
// on the entry still being Pending. Notification happens after commit and
// never changes the outcome of a committed transition.
func (uc *TransitionUseCase) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	start := time.Now()
	decision := string(input.Decision)

	actor, ok := domain.UserFromContext(ctx)
	if !ok {
		uc.metrics.RecordTransition(decision, "unauthorized", time.Since(start))
		return nil, domain.ErrUnauthorized
	}
	if !actor.Role.CanDecide() {
		uc.metrics.RecordTransition(decision, "forbidden", time.Since(start))
		return nil, domain.ErrInsufficientRole
	}

	if err := domain.ValidateExpenseID(input.ExpenseID); err != nil {
		uc.metrics.RecordTransition(decision, "invalid", time.Since(start))
		return nil, err
	}
	if err := domain.ValidateDecision(input.Decision, input.Reason); err != nil {
		uc.metrics.RecordTransition(decision, "invalid", time.Since(start))
		return nil, err
	}

	update := domain.NewTransitionUpdate(input.Decision, actor.ID, input.Reason, uc.now())

	modified, err := uc.applyTransition(ctx, input.ExpenseID, update)
	if err != nil {
		uc.logger.Error().Err(err).
			Str("expense_id", input.ExpenseID).
			Str("decision", decision).
			Msg("store write failed")
		uc.metrics.RecordTransition(decision, "store_unavailable", time.Since(start))
		return nil, err
	}
	if modified == 0 {
		uc.metrics.RecordTransition(decision, "not_found", time.Since(start))
		return nil, domain.ErrNotFoundOrAlreadyTransitioned
	}

	uc.logger.Info().
		Str("expense_id", input.ExpenseID).
		Str("status", string(update.Status)).
		Str("actor", actor.ID).
		Msg("expense transitioned")

	uc.invalidateView(ctx, input.ExpenseID)

	result := &TransitionResult{
		Success:   true,
		ExpenseID: input.ExpenseID,
		Status:    update.Status,
	}
	result.NotifyStatus, result.NotifyError = uc.notify(ctx, input)
	result.Notified = result.NotifyStatus == NotifyDelivered

	uc.metrics.RecordTransition(decision, "success", time.Since(start))

	return result, nil
}

// Wait blocks until detached notifications have finished.
func (uc *TransitionUseCase) Wait() {
	uc.inflight.Wait()
}

func (uc *TransitionUseCase) applyTransition(ctx context.Context, expenseID string, update domain.TransitionUpdate) (int64, error) {
	// A started write is not abandoned when the caller goes away.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.storeTimeout)
	defer cancel()

	modified, err := uc.store.ApplyTransition(writeCtx, expenseID, update)
	if err != nil {
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		return 0, err
	}
	return modified, nil
}

func (uc *TransitionUseCase) invalidateView(ctx context.Context, expenseID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(context.WithoutCancel(ctx), ViewCacheKey(expenseID)); err != nil {
		uc.logger.Warn().Err(err).Str("expense_id", expenseID).Msg("failed to invalidate cached view")
	}
}

// notify runs the notification detached from ctx and waits for it until
// ctx is done. A notification still in flight at that point keeps running
// and is reported as pending.
func (uc *TransitionUseCase) notify(ctx context.Context, input TransitionInput) (NotifyStatus, string) {
	if uc.notifier == nil {
		return NotifyDisabled, ""
	}

	n := domain.Notification{
		ID:        uc.idGen.Generate(),
		ExpenseID: input.ExpenseID,
		Decision:  input.Decision,
		Reason:    domain.NotificationReason(input.Decision, input.Reason),
	}

	done := make(chan error, 1)
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.notifyTimeout)

	uc.inflight.Add(1)
	go func() {
		defer uc.inflight.Done()
		defer cancel()

		started := time.Now()
		err := uc.notifier.Notify(notifyCtx, n)
		uc.recordNotification(n, err, time.Since(started))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return NotifyFailed, err.Error()
		}
		return NotifyDelivered, ""
	case <-ctx.Done():
		return NotifyPending, "notification still in flight: " + ctx.Err().Error()
	}
}

func (uc *TransitionUseCase) recordNotification(n domain.Notification, err error, elapsed time.Duration) {
	endpoint := uc.notifier.Endpoint(n)

	if err == nil {
		uc.metrics.RecordNotification(string(n.Decision), "delivered", elapsed)
		uc.logger.Info().
			Str("expense_id", n.ExpenseID).
			Str("decision", string(n.Decision)).
			Str("endpoint", endpoint).
			Dur("elapsed", elapsed).
			Msg("notification delivered")
		return
	}

	uc.metrics.RecordNotification(string(n.Decision), "failed", elapsed)
	uc.logger.Warn().Err(err).
		Str("expense_id", n.ExpenseID).
		Str("decision", string(n.Decision)).
		Str("endpoint", endpoint).
		Dur("elapsed", elapsed).
		Msg("notification failed")

	if uc.outbox == nil {
		return
	}

	now := uc.now().UTC()
	event := &domain.NotificationEvent{
		ID:            n.ID,
		ExpenseID:     n.ExpenseID,
		Decision:      n.Decision,
		Reason:        n.Reason,
		Attempts:      1,
		LastError:     err.Error(),
		CreatedAt:     now,
		LastAttemptAt: &now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultOutboxWriteTimeout)
	defer cancel()

	if oerr := uc.outbox.Create(ctx, event); oerr != nil {
		uc.logger.Error().Err(oerr).
			Str("expense_id", n.ExpenseID).
			Str("notification_id", n.ID).
			Msg("failed to queue notification for replay")
	}
}
