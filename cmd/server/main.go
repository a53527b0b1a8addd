package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/expensor/approvals/internal/adapter/http"
	"github.com/expensor/approvals/internal/adapter/http/handler"
	"github.com/expensor/approvals/internal/adapter/http/middleware"
	"github.com/expensor/approvals/internal/adapter/notifier"
	postgresRepo "github.com/expensor/approvals/internal/adapter/repository/postgres"
	redisRepo "github.com/expensor/approvals/internal/adapter/repository/redis"
	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/infrastructure/auth"
	"github.com/expensor/approvals/internal/infrastructure/config"
	"github.com/expensor/approvals/internal/infrastructure/logger"
	"github.com/expensor/approvals/internal/infrastructure/metrics"
	"github.com/expensor/approvals/internal/infrastructure/redis"
	"github.com/expensor/approvals/internal/infrastructure/replayer"
	"github.com/expensor/approvals/internal/infrastructure/seed"
	"github.com/expensor/approvals/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// app is the wired service.
type app struct {
	handler     http.Handler
	transitions *usecase.TransitionUseCase
	expenses    *usecase.ExpenseUseCase
	worker      *replayer.Worker
	closers     []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := newApp(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.SeedFile != "" {
		if err := importSeed(ctx, a.expenses, cfg.SeedFile, log); err != nil {
			return err
		}
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if a.worker != nil {
			_ = a.worker.Start(workerCtx)
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		stopWorker()
		<-workerDone
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	stopWorker()
	<-workerDone

	// Notifications detached from finished requests may still be running.
	a.transitions.Wait()

	log.Info().Msg("server stopped")
	return nil
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer) (*app, error) {
	appMetrics := metrics.New(reg)

	be, err := openBackend(ctx, cfg, log, appMetrics)
	if err != nil {
		return nil, err
	}
	a := &app{closers: []func(){be.close}}

	store := metrics.InstrumentStore(be.store, appMetrics)
	checks := be.checks
	idGen := postgresRepo.NewULIDGenerator()

	var (
		cache       usecase.Cache
		idempotency usecase.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		log.Info().Msg("connected to redis")

		cache = redisRepo.NewCache(client, "")
		idempotency = redisRepo.NewIdempotencyStore(client)
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: redisPing(client)})
	}

	var notify usecase.Notifier
	if cfg.NotificationsEnabled() {
		notify = notifier.NewWebhookNotifier(cfg.NotifyBaseURL, cfg.NotifyTimeout, log)
	} else {
		log.Warn().Msg("NOTIFY_BASE_URL not set, notifications disabled")
	}

	a.transitions = usecase.NewTransitionUseCase(usecase.TransitionConfig{
		Store:         store,
		Notifier:      notify,
		Outbox:        be.outbox,
		Cache:         cache,
		IDGen:         idGen,
		Metrics:       appMetrics,
		Logger:        log.With().Str("component", "transitions").Logger(),
		StoreTimeout:  cfg.StoreWriteTimeout,
		NotifyTimeout: cfg.NotifyTimeout,
	})
	a.expenses = usecase.NewExpenseUseCase(store, store, cache, appMetrics, log, cfg.ViewCacheTTL)

	var notificationHandler *handler.NotificationHandler
	if notify != nil {
		notifications := usecase.NewNotificationUseCase(usecase.NotificationConfig{
			Outbox:      be.outbox,
			Notifier:    notify,
			Metrics:     appMetrics,
			Logger:      log.With().Str("component", "notifications").Logger(),
			BatchSize:   cfg.ReplayBatchSize,
			MaxAttempts: cfg.ReplayMaxAttempts,
		})
		notificationHandler = handler.NewNotificationHandler(notifications)

		if cfg.ReplayEnabled {
			a.worker = replayer.NewWorker(replayer.Config{
				Replayer: notifications,
				Logger:   log,
				Interval: cfg.ReplayInterval,
			})
		}
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	var jwtManager *auth.JWTManager
	if cfg.AuthEnabled {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiration)
	}

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		ExpenseHandler:      handler.NewExpenseHandler(a.transitions, a.expenses),
		NotificationHandler: notificationHandler,
		HealthHandler:       handler.NewHealthHandler(checks...),
		IdempotencyStore:    idempotency,
		IdempotencyTTL:      cfg.IdempotencyTTL,
		JWTManager:          jwtManager,
		AuthEnabled:         cfg.AuthEnabled,
		DefaultActor:        defaultActor(cfg),
		RateLimiter:         rateLimiter,
		Metrics:             middleware.NewMetrics(reg),
		MetricsHandler:      metricsHandler(reg),
		Logger:              log,
		RequestTimeout:      cfg.RequestTimeout,
	})

	return a, nil
}

// defaultActor is the principal used when authentication is disabled.
func defaultActor(cfg *config.Config) *domain.User {
	if cfg.AuthEnabled {
		return nil
	}
	return &domain.User{
		ID:   cfg.DefaultActorID,
		Name: cfg.DefaultActorID,
		Role: domain.Role(cfg.DefaultActorRole),
	}
}

func importSeed(ctx context.Context, expenses *usecase.ExpenseUseCase, path string, log zerolog.Logger) error {
	ids := postgresRepo.NewULIDGenerator()
	records, err := seed.NewLoader(ids.Generate, time.Now).LoadFile(path)
	if err != nil {
		return fmt.Errorf("load seed file: %w", err)
	}

	n, err := expenses.ImportRecords(ctx, records)
	if err != nil {
		return fmt.Errorf("import seed record %d: %w", n, err)
	}

	log.Info().Str("file", path).Int("records", n).Msg("seed data imported")
	return nil
}

func metricsHandler(reg prometheus.Registerer) http.Handler {
	if g, ok := reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

func redisPing(client *goredis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
