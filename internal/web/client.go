package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xucongyong/duet/internal/config"
	"github.com/xucongyong/duet/internal/constants"
)

// ErrUnreachable is returned when the panel cannot be contacted.
var ErrUnreachable = errors.New("control panel unreachable")

// Client talks to a running control panel.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewClient creates a client for the panel at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: constants.ClientTimeout},
	}
}

// WithAuth sets basic auth credentials and returns the client.
func (c *Client) WithAuth(username, password string) *Client {
	c.username = username
	c.password = password
	return c
}

// BaseURL returns the panel URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Logs returns the current log snapshot.
func (c *Client) Logs(ctx context.Context) ([]string, error) {
	var resp LogsResponse
	if err := c.do(ctx, http.MethodGet, "/logs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lines, nil
}

// Status returns the panel status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start asks the panel to start the worker, applying overrides first.
func (c *Client) Start(ctx context.Context, overrides WorkerPayload) (*ActionResponse, error) {
	return c.action(ctx, "/api/start", overrides)
}

// Stop asks the panel to stop the worker.
func (c *Client) Stop(ctx context.Context) (*ActionResponse, error) {
	return c.action(ctx, "/api/stop", WorkerPayload{})
}

// Restart asks the panel to restart the worker, applying overrides first.
func (c *Client) Restart(ctx context.Context, overrides WorkerPayload) (*ActionResponse, error) {
	return c.action(ctx, "/api/restart", overrides)
}

// SaveConfig updates the chat defaults.
func (c *Client) SaveConfig(ctx context.Context, p WorkerPayload) (*ActionResponse, error) {
	return c.action(ctx, "/api/config", p)
}

// Config returns the chat defaults.
func (c *Client) Config(ctx context.Context) (*WorkerPayload, error) {
	var resp WorkerPayload
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Schedule returns the current window.
func (c *Client) Schedule(ctx context.Context) (*ScheduleResponse, error) {
	var resp ScheduleResponse
	if err := c.do(ctx, http.MethodGet, "/api/schedule", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetSchedule replaces the window. A zero Window disables scheduling.
func (c *Client) SetSchedule(ctx context.Context, w config.Window) (*ScheduleResponse, error) {
	var resp ScheduleResponse
	if err := c.do(ctx, http.MethodPost, "/api/schedule", w, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) action(ctx context.Context, path string, p WorkerPayload) (*ActionResponse, error) {
	var body any
	if !p.Empty() {
		body = p
	}
	var resp ActionResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s: %v", ErrUnreachable, c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %s (HTTP %d)", method, path, e.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
