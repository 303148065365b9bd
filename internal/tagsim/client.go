package tagsim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// client wraps http.Client with the service base URL.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// do sends body as JSON (when non-nil) and decodes a 2xx answer into out.
func (c *client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return resp.StatusCode, apiErr
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *client) health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

func (c *client) login(ctx context.Context, analyst, password string) (Snapshot, error) {
	var s Snapshot
	_, err := c.do(ctx, http.MethodPost, "/api/session/login",
		map[string]string{"analyst_id": analyst, "password": password}, &s)
	return s, err
}

func (c *client) logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/session/logout", nil, nil)
	return err
}

func (c *client) session(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	_, err := c.do(ctx, http.MethodGet, "/api/session", nil, &s)
	return s, err
}

func (c *client) roster(ctx context.Context) (Roster, error) {
	var r Roster
	_, err := c.do(ctx, http.MethodGet, "/api/roster", nil, &r)
	return r, err
}

func (c *client) eventTypes(ctx context.Context) ([]EventType, error) {
	var types []EventType
	_, err := c.do(ctx, http.MethodGet, "/api/event-types", nil, &types)
	return types, err
}

func (c *client) choose(ctx context.Context, what, id string) error {
	_, err := c.do(ctx, http.MethodPut, "/api/setup/"+what, map[string]string{"id": id}, nil)
	return err
}

func (c *client) details(ctx context.Context, details string) error {
	_, err := c.do(ctx, http.MethodPut, "/api/setup/details", map[string]string{"details": details}, nil)
	return err
}

func (c *client) start(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	_, err := c.do(ctx, http.MethodPost, "/api/match/start", nil, &s)
	return s, err
}

func (c *client) end(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	_, err := c.do(ctx, http.MethodPost, "/api/match/end", nil, &s)
	return s, err
}

func (c *client) attackingThird(ctx context.Context, enabled bool) error {
	_, err := c.do(ctx, http.MethodPost, "/api/match/attacking-third", map[string]bool{"enabled": enabled}, nil)
	return err
}

func (c *client) record(ctx context.Context, teamID, eventType, eventID string) (Receipt, error) {
	var rc Receipt
	body := map[string]string{"team_id": teamID, "event_type": eventType}
	if eventID != "" {
		body["event_id"] = eventID
	}
	_, err := c.do(ctx, http.MethodPost, "/api/match/events", body, &rc)
	return rc, err
}

// isAPIError reports whether err came back from the service with the given code.
func isAPIError(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
