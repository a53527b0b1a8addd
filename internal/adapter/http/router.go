package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/expensor/approvals/internal/adapter/http/handler"
	"github.com/expensor/approvals/internal/adapter/http/middleware"
	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/infrastructure/auth"
	"github.com/expensor/approvals/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	ExpenseHandler      *handler.ExpenseHandler
	NotificationHandler *handler.NotificationHandler
	HealthHandler       *handler.HealthHandler

	// IdempotencyStore enables Idempotency-Key handling on transitions.
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	// JWTManager authenticates requests when AuthEnabled is set. Otherwise
	// DefaultActor is attached to every request.
	JWTManager   *auth.JWTManager
	AuthEnabled  bool
	DefaultActor *domain.User

	RateLimiter    *middleware.RateLimiter
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		}
		if cfg.AuthEnabled {
			r.Use(middleware.AuthMiddleware(cfg.JWTManager))
		} else if cfg.DefaultActor != nil {
			r.Use(middleware.DefaultActor(cfg.DefaultActor))
		}

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", cfg.ExpenseHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleManager))
				if cfg.IdempotencyStore != nil {
					r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
				}
				r.Put("/{expenseId}", cfg.ExpenseHandler.Transition)
			})
		})

		if cfg.NotificationHandler != nil {
			r.Route("/notifications", func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleManager))
				r.Get("/pending", cfg.NotificationHandler.ListPending)
				r.Post("/replay", cfg.NotificationHandler.Replay)
			})
		}
	})

	return r
}
