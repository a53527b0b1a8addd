package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/expensor/approvals/internal/adapter/http/handler"
	"github.com/expensor/approvals/internal/adapter/repository/memory"
	mongoRepo "github.com/expensor/approvals/internal/adapter/repository/mongodb"
	postgresRepo "github.com/expensor/approvals/internal/adapter/repository/postgres"
	"github.com/expensor/approvals/internal/infrastructure/config"
	"github.com/expensor/approvals/internal/infrastructure/metrics"
	"github.com/expensor/approvals/internal/infrastructure/mongodb"
	"github.com/expensor/approvals/internal/infrastructure/postgres"
	"github.com/expensor/approvals/internal/usecase"
)

// backend is the store and outbox selected by STORE_BACKEND.
type backend struct {
	store  metrics.Store
	outbox usecase.NotificationOutbox
	checks []handler.HealthCheck
	close  func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) (*backend, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return openPostgres(ctx, cfg, logger, m)
	case config.BackendMongo:
		return openMongo(ctx, cfg, logger)
	default:
		store := memory.NewExpenseStore()
		return &backend{
			store:  store,
			outbox: memory.NewNotificationOutbox(),
			checks: []handler.HealthCheck{{Name: "store", Ping: store.Ping}},
			close:  func() {},
		}, nil
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) (*backend, error) {
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("connected to postgres")

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	retrier := postgresRepo.NewRetrier(logger, m.RecordStoreRetry)
	store := postgresRepo.NewExpenseStore(pool, retrier)

	return &backend{
		store:  store,
		outbox: postgresRepo.NewOutboxRepository(pool),
		checks: []handler.HealthCheck{{Name: "postgres", Ping: store.Ping}},
		close:  pool.Close,
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	client, err := mongodb.NewClient(ctx, mongodb.ClientConfig{
		URI:            cfg.MongoURI,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongodb")

	disconnect := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("mongodb disconnect failed")
		}
	}

	db := client.Database(cfg.MongoDatabase)
	store := mongoRepo.NewExpenseStore(client, db)
	outbox := mongoRepo.NewOutbox(db)

	if err := store.EnsureIndexes(ctx); err != nil {
		disconnect()
		return nil, fmt.Errorf("expenses indexes: %w", err)
	}
	if err := outbox.EnsureIndexes(ctx); err != nil {
		disconnect()
		return nil, fmt.Errorf("outbox indexes: %w", err)
	}

	return &backend{
		store:  store,
		outbox: outbox,
		checks: []handler.HealthCheck{{Name: "mongodb", Ping: store.Ping}},
		close:  disconnect,
	}, nil
}
