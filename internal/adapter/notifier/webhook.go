package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/expensor/approvals/internal/domain"
)

// maxResponseBody caps how much of a response body is read.
const maxResponseBody = 64 << 10

type notifyRequest struct {
	Reason string `json:"reason"`
}

// notifyResponse holds the optional delivery flags the service reports.
type notifyResponse struct {
	Message       string `json:"message,omitempty"`
	EmployeeEmail *bool  `json:"employee_email,omitempty"`
	AdminEmail    *bool  `json:"admin_email,omitempty"`
}

// WebhookNotifier posts decisions to the downstream workflow service.
type WebhookNotifier struct {
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewWebhookNotifier creates a notifier for baseURL. timeout bounds each call.
func NewWebhookNotifier(baseURL string, timeout time.Duration, logger zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "notifier").Logger(),
	}
}

// Endpoint returns the URL a notification is posted to.
func (w *WebhookNotifier) Endpoint(n domain.Notification) string {
	return fmt.Sprintf("%s/expenses/%s/%s", w.baseURL, url.PathEscape(n.ExpenseID), n.Decision.NotifyAction())
}

// Notify posts n and fails with domain.ErrNotifyFailed on any transport
// error, non-2xx status or malformed body.
func (w *WebhookNotifier) Notify(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(notifyRequest{Reason: n.Reason})
	if err != nil {
		return fmt.Errorf("%w: encode request: %w", domain.ErrNotifyFailed, err)
	}

	endpoint := w.Endpoint(n)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", domain.ErrNotifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if n.ID != "" {
		req.Header.Set("Idempotency-Key", n.ID)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotifyFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", domain.ErrNotifyFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d", domain.ErrNotifyFailed, resp.StatusCode)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		w.logger.Debug().Str("expense_id", n.ExpenseID).Int("status", resp.StatusCode).Msg("notification accepted")
		return nil
	}

	var parsed notifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: malformed response: %w", domain.ErrNotifyFailed, err)
	}

	ev := w.logger.Info().
		Str("expense_id", n.ExpenseID).
		Str("decision", string(n.Decision)).
		Int("status", resp.StatusCode)
	if parsed.EmployeeEmail != nil {
		ev = ev.Bool("employee_email", *parsed.EmployeeEmail)
	}
	if parsed.AdminEmail != nil {
		ev = ev.Bool("admin_email", *parsed.AdminEmail)
	}
	if parsed.Message != "" {
		ev = ev.Str("message", parsed.Message)
	}
	ev.Msg("notification delivered")

	return nil
}
