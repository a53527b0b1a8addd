package replayer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/expensor/approvals/internal/usecase"
)

// Replayer runs one replay pass over the notification outbox.
type Replayer interface {
	ReplayPending(ctx context.Context) (usecase.ReplayReport, error)
}

// Config for Worker.
type Config struct {
	Replayer Replayer
	Logger   zerolog.Logger
	Interval time.Duration // Polling interval
}

// Worker periodically re-sends undelivered notifications.
type Worker struct {
	replayer Replayer
	logger   zerolog.Logger
	interval time.Duration
}

// NewWorker creates a new Worker.
func NewWorker(cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Worker{
		replayer: cfg.Replayer,
		logger:   cfg.Logger.With().Str("component", "replayer").Logger(),
		interval: cfg.Interval,
	}
}

// Start runs replay passes until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.interval).Msg("notification replayer started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("notification replayer shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	report, err := w.replayer.ReplayPending(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error().Err(err).Msg("notification replay pass failed")
		return
	}
	if report.Attempted > 0 {
		w.logger.Info().
			Int("attempted", report.Attempted).
			Int("delivered", report.Delivered).
			Int("failed", report.Failed).
			Msg("notification replay pass finished")
	}
}
