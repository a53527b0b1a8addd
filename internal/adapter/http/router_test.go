package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensor/approvals/internal/adapter/http/handler"
	apimiddleware "github.com/expensor/approvals/internal/adapter/http/middleware"
	"github.com/expensor/approvals/internal/adapter/repository/memory"
	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/infrastructure/auth"
	"github.com/expensor/approvals/internal/usecase"
	"github.com/expensor/approvals/internal/usecase/mocks"
)

type testEnv struct {
	router   http.Handler
	store    *memory.ExpenseStore
	outbox   *memory.NotificationOutbox
	notifier *mocks.FakeNotifier
	failing  *atomic.Bool
}

func newTestEnv(t *testing.T, opts ...func(*RouterConfig)) *testEnv {
	t.Helper()

	store := memory.NewExpenseStore()
	require.NoError(t, store.UpsertRecord(context.Background(), &domain.ExpenseRecord{
		EmployeeID:   "emp-1",
		DepartmentID: "dep-1",
		Expenses: []domain.ExpenseEntry{
			{ExpenseID: "E1", Status: domain.StatusPending, Amount: decimal.RequireFromString("150.00")},
			{ExpenseID: "E2", Status: domain.StatusPending, Amount: decimal.RequireFromString("42.5")},
		},
	}))

	failing := &atomic.Bool{}
	notifier := &mocks.FakeNotifier{NotifyFunc: func(ctx context.Context, n domain.Notification) error {
		if failing.Load() {
			return domain.ErrNotifyFailed
		}
		return nil
	}}
	outbox := memory.NewNotificationOutbox()
	logger := zerolog.Nop()

	transitions := usecase.NewTransitionUseCase(usecase.TransitionConfig{
		Store:    store,
		Notifier: notifier,
		Outbox:   outbox,
		IDGen:    &mocks.SequentialIDGenerator{},
		Logger:   logger,
	})
	t.Cleanup(transitions.Wait)

	expenses := usecase.NewExpenseUseCase(store, store, nil, nil, logger, 0)
	notifications := usecase.NewNotificationUseCase(usecase.NotificationConfig{
		Outbox:               outbox,
		Notifier:             notifier,
		Logger:               logger,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     time.Millisecond,
	})

	cfg := RouterConfig{
		ExpenseHandler:      handler.NewExpenseHandler(transitions, expenses),
		NotificationHandler: handler.NewNotificationHandler(notifications),
		HealthHandler:       handler.NewHealthHandler(handler.HealthCheck{Name: "store", Ping: store.Ping}),
		DefaultActor:        &domain.User{ID: "mgr-1", Role: domain.RoleManager},
		Logger:              logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testEnv{
		router:   NewRouter(cfg),
		store:    store,
		outbox:   outbox,
		notifier: notifier,
		failing:  failing,
	}
}

func (e *testEnv) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ready", "").Code)
}

func TestNewRouter_ApproveThenSecondDecisionIs404(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/expenses/E1", `{"status":"Approved"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[map[string]any](t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Approved", resp["status"])
	assert.Equal(t, true, resp["notified"])
	assert.Equal(t, "delivered", resp["notifyStatus"])

	calls := env.notifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.DefaultApproveReason, calls[0].Reason)

	rec = env.do(http.MethodPut, "/expenses/E1", `{"status":"Declined","reason":"late"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	view := decode[map[string]any](t, env.do(http.MethodGet, "/expenses?id=E1", ""))
	assert.Equal(t, "Approved", view["status"])
	assert.Equal(t, "mgr-1", view["approvedBy"])
	assert.Equal(t, "emp-1", view["employeeId"])
}

func TestNewRouter_DeclineRequiresReason(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/expenses/E2", `{"status":"Declined"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, "/expenses/E2", `{"status":"Declined","reason":"missing receipt"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entry, err := env.store.FindEntryByID(context.Background(), "E2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeclined, entry.Status)
	assert.Equal(t, "missing receipt", entry.RejectionReason)
	assert.Nil(t, entry.ApprovedBy)
}

func TestNewRouter_RejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"status":"Pending"}`, `{"status":"Rejected"}`, `not json`} {
		rec := env.do(http.MethodPut, "/expenses/E1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	entry, err := env.store.FindEntryByID(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, entry.Status)
}

func TestNewRouter_UnknownExpenseIs404(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/expenses/nope", `{"status":"Approved"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/expenses?id=nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewRouter_FailedNotificationIsQueuedAndReplayed(t *testing.T) {
	env := newTestEnv(t)
	env.failing.Store(true)

	rec := env.do(http.MethodPut, "/expenses/E1", `{"status":"Approved"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "failed", resp["notifyStatus"])
	assert.Equal(t, false, resp["notified"])

	pending := decode[[]map[string]any](t, env.do(http.MethodGet, "/notifications/pending", ""))
	require.Len(t, pending, 1)
	assert.Equal(t, "E1", pending[0]["expenseId"])

	env.failing.Store(false)
	report := decode[map[string]any](t, env.do(http.MethodPost, "/notifications/replay", ""))
	assert.EqualValues(t, 1, report["delivered"])

	pending = decode[[]map[string]any](t, env.do(http.MethodGet, "/notifications/pending", ""))
	assert.Empty(t, pending)
}

func TestNewRouter_ListExpenses(t *testing.T) {
	env := newTestEnv(t)

	list := decode[[]map[string]any](t, env.do(http.MethodGet, "/expenses?limit=1&offset=1", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "E2", list[0]["expenseId"])
}

func TestNewRouter_EmployeeCannotDecide(t *testing.T) {
	env := newTestEnv(t, func(cfg *RouterConfig) {
		cfg.DefaultActor = &domain.User{ID: "emp-1", Role: domain.RoleEmployee}
	})

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPut, "/expenses/E1", `{"status":"Approved"}`).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/notifications/replay", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/expenses", "").Code)
}

func TestNewRouter_AuthEnabled(t *testing.T) {
	mgr := auth.NewJWTManager("secret", "approvals", time.Hour)
	env := newTestEnv(t, func(cfg *RouterConfig) {
		cfg.AuthEnabled = true
		cfg.JWTManager = mgr
	})

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/expenses", "").Code)

	token, err := mgr.Generate(&domain.User{ID: "mgr-9", Role: domain.RoleManager})
	require.NoError(t, err)

	rec := env.do(http.MethodPut, "/expenses/E1", `{"status":"Approved"}`, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entry, err := env.store.FindEntryByID(context.Background(), "E1")
	require.NoError(t, err)
	require.NotNil(t, entry.ApprovedBy)
	assert.Equal(t, "mgr-9", *entry.ApprovedBy)
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	env := newTestEnv(t, func(cfg *RouterConfig) {
		cfg.RateLimiter = apimiddleware.NewRateLimiter(0.001, 1)
	})

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(http.MethodGet, "/health", "").Code)
}

func TestNewRouter_IdempotentRetryReplaysResponse(t *testing.T) {
	store := mocks.NewFakeIdempotencyStore()
	env := newTestEnv(t, func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	})

	first := env.do(http.MethodPut, "/expenses/E1", `{"status":"Approved"}`, apimiddleware.IdempotencyKeyHeader, "k-1")
	require.Equal(t, http.StatusOK, first.Code)

	second := env.do(http.MethodPut, "/expenses/E1", `{"status":"Approved"}`, apimiddleware.IdempotencyKeyHeader, "k-1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replay"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Len(t, env.notifier.Calls(), 1)
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	env := newTestEnv(t, func(cfg *RouterConfig) {
		cfg.Metrics = apimiddleware.NewMetrics(reg)
		cfg.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	})

	env.do(http.MethodPut, "/expenses/E1", `{"status":"Approved"}`)

	rec := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/expenses/:id"`)
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	env := newTestEnv(t)

	chiRoutes, ok := env.router.(chi.Routes)
	require.True(t, ok, "router does not implement chi.Routes")

	seen := map[string]bool{}
	err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)

	for _, route := range []string{
		"GET /health",
		"GET /ready",
		"GET /expenses/",
		"PUT /expenses/{expenseId}",
		"GET /notifications/pending",
		"POST /notifications/replay",
	} {
		assert.True(t, seen[route], "expected route %s to be registered", route)
	}
}

func TestNewRouter_StoreFailureIs503(t *testing.T) {
	env := newTestEnv(t, func(cfg *RouterConfig) {
		store := mocks.NewFakeExpenseStore()
		store.ApplyTransitionFunc = func(ctx context.Context, expenseID string, update domain.TransitionUpdate) (int64, error) {
			return 0, errors.New("connection refused")
		}
		transitions := usecase.NewTransitionUseCase(usecase.TransitionConfig{Store: store, Logger: zerolog.Nop()})
		cfg.ExpenseHandler = handler.NewExpenseHandler(transitions, usecase.NewExpenseUseCase(store, nil, nil, nil, zerolog.Nop(), 0))
	})

	rec := env.do(http.MethodPut, "/expenses/E1", `{"status":"Approved"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
