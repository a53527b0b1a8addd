package main

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
)

// apiClient talks to the approvals HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx answer from the API.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// do sends body as JSON and returns the raw response body.
func (c *apiClient) do(ctx context.Context, method, path string, body any, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
			if e.Message != "" {
				msg += ": " + e.Message
			}
		}
		return nil, &apiError{Status: resp.StatusCode, Message: msg}
	}

	return raw, nil
}

func (c *apiClient) getExpense(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/expenses?id="+url.QueryEscape(id), nil, nil)
}

func (c *apiClient) listExpenses(ctx context.Context, limit, offset int) ([]byte, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))
	return c.do(ctx, http.MethodGet, "/expenses?"+q.Encode(), nil, nil)
}

type transitionBody struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (c *apiClient) transition(ctx context.Context, id, status, reason, idempotencyKey string) ([]byte, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	return c.do(ctx, http.MethodPut, "/expenses/"+url.PathEscape(id), transitionBody{Status: status, Reason: reason}, headers)
}

func (c *apiClient) pendingNotifications(ctx context.Context, limit int) ([]byte, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/notifications/pending?limit=%d", limit), nil, nil)
}

func (c *apiClient) replayNotifications(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/notifications/replay", nil, nil)
}
