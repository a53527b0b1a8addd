package handler

import (
	"context"
	"net/http"

	"github.com/expensor/approvals/internal/adapter/http/dto"
	"github.com/expensor/approvals/internal/domain"
	"github.com/expensor/approvals/internal/usecase"
)

// NotificationService exposes the notification outbox.
type NotificationService interface {
	ListPending(ctx context.Context, limit int) ([]*domain.NotificationEvent, error)
	ReplayPending(ctx context.Context) (usecase.ReplayReport, error)
}

// NotificationHandler handles outbox inspection and manual replay.
type NotificationHandler struct {
	notifications NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListPending lists undelivered notifications.
func (h *NotificationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	events, err := h.notifications.ListPending(r.Context(), parseIntQuery(r, "limit", 0))
	if err != nil {
		writeDomainError(w, "failed to list notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NotificationsFromDomain(events))
}

// Replay runs one replay pass.
func (h *NotificationHandler) Replay(w http.ResponseWriter, r *http.Request) {
	report, err := h.notifications.ReplayPending(r.Context())
	if err != nil {
		writeDomainError(w, "failed to replay notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReplayResponse{
		Attempted: report.Attempted,
		Delivered: report.Delivered,
		Failed:    report.Failed,
	})
}
