package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/expensor/approvals/internal/domain"
)

// ReplayMetrics receives replay measurements.
type ReplayMetrics interface {
	RecordReplay(outcome string)
	SetOutboxPending(n int)
}

// NotificationConfig wires a NotificationUseCase.
type NotificationConfig struct {
	Outbox      NotificationOutbox
	Notifier    Notifier
	Metrics     ReplayMetrics
	Logger      zerolog.Logger
	Now         Clock
	BatchSize   int
	MaxAttempts int
	// Per-event retry inside one pass.
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMaxRetries      uint64
}

// NotificationUseCase inspects and replays undelivered notifications.
type NotificationUseCase struct {
	outbox      NotificationOutbox
	notifier    Notifier
	metrics     ReplayMetrics
	logger      zerolog.Logger
	now         Clock
	batchSize   int
	maxAttempts int

	retryInitial    time.Duration
	retryMax        time.Duration
	retryMaxRetries uint64
}

// NewNotificationUseCase creates a new NotificationUseCase.
func NewNotificationUseCase(cfg NotificationConfig) *NotificationUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 200 * time.Millisecond
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = 2 * time.Second
	}

	return &NotificationUseCase{
		outbox:          cfg.Outbox,
		notifier:        cfg.Notifier,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		now:             cfg.Now,
		batchSize:       cfg.BatchSize,
		maxAttempts:     cfg.MaxAttempts,
		retryInitial:    cfg.RetryInitialInterval,
		retryMax:        cfg.RetryMaxInterval,
		retryMaxRetries: cfg.RetryMaxRetries,
	}
}

// ReplayReport summarizes one replay pass.
type ReplayReport struct {
	Attempted int
	Delivered int
	Failed    int
}

// ListPending returns undelivered notifications that are still retried.
func (uc *NotificationUseCase) ListPending(ctx context.Context, limit int) ([]*domain.NotificationEvent, error) {
	if limit <= 0 || limit > uc.batchSize {
		limit = uc.batchSize
	}
	return uc.outbox.GetPending(ctx, limit, uc.maxAttempts)
}

// ReplayPending re-sends one batch of pending notifications. A failing
// event does not stop the pass.
func (uc *NotificationUseCase) ReplayPending(ctx context.Context) (ReplayReport, error) {
	var report ReplayReport

	events, err := uc.outbox.GetPending(ctx, uc.batchSize, uc.maxAttempts)
	if err != nil {
		return report, err
	}
	if uc.metrics != nil {
		uc.metrics.SetOutboxPending(len(events))
	}
	if len(events) == 0 {
		return report, nil
	}

	uc.logger.Info().Int("count", len(events)).Msg("replaying notifications")

	for _, event := range events {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Attempted++

		sendErr := uc.deliver(ctx, event)
		at := uc.now().UTC()

		if sendErr != nil {
			report.Failed++
			uc.recordReplay("failed")
			uc.logger.Warn().Err(sendErr).
				Str("notification_id", event.ID).
				Str("expense_id", event.ExpenseID).
				Str("decision", string(event.Decision)).
				Str("endpoint", uc.notifier.Endpoint(event.Notification())).
				Int("attempts", event.Attempts+1).
				Msg("notification replay failed")

			if err := uc.outbox.RecordFailure(ctx, event.ID, sendErr.Error(), at); err != nil {
				uc.logger.Error().Err(err).Str("notification_id", event.ID).Msg("failed to record replay failure")
			}
			continue
		}

		report.Delivered++
		uc.recordReplay("delivered")
		uc.logger.Info().
			Str("notification_id", event.ID).
			Str("expense_id", event.ExpenseID).
			Msg("notification replayed")

		if err := uc.outbox.MarkDelivered(ctx, event.ID, at); err != nil {
			// Left pending; the receiver de-duplicates on the idempotency key.
			uc.logger.Error().Err(err).Str("notification_id", event.ID).Msg("failed to mark notification delivered")
		}
	}

	return report, nil
}

func (uc *NotificationUseCase) deliver(ctx context.Context, event *domain.NotificationEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = uc.retryInitial
	b.MaxInterval = uc.retryMax
	b.MaxElapsedTime = 0

	n := event.Notification()
	return backoff.Retry(func() error {
		return uc.notifier.Notify(ctx, n)
	}, backoff.WithContext(backoff.WithMaxRetries(b, uc.retryMaxRetries), ctx))
}

func (uc *NotificationUseCase) recordReplay(outcome string) {
	if uc.metrics != nil {
		uc.metrics.RecordReplay(outcome)
	}
}
