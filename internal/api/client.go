package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the HTTP client the CLI uses to talk to a running daemon.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the daemon listening at bind. An empty
// token disables the Authorization header.
func NewClient(bind, token string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthy reports whether the daemon answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	var payload map[string]string
	return c.do(ctx, http.MethodGet, "/api/health", nil, &payload) == nil
}

// Status fetches the daemon's full status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Items lists the book's items in order.
func (c *Client) Items(ctx context.Context) ([]ItemView, error) {
	var resp ItemListResponse
	if err := c.do(ctx, http.MethodGet, "/api/items", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AddItem appends an item from a daemon-local file to the book.
func (c *Client) AddItem(ctx context.Context, sourcePath, title string) (*ItemView, error) {
	var view ItemView
	if err := c.do(ctx, http.MethodPost, "/api/items", AddItemRequest{SourcePath: sourcePath, Title: title}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Plan fetches the current chunk plan.
func (c *Client) Plan(ctx context.Context) (*PlanResponse, error) {
	var resp PlanResponse
	if err := c.do(ctx, http.MethodGet, "/api/plan", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncState fetches per-chunk sync records.
func (c *Client) SyncState(ctx context.Context) (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.do(ctx, http.MethodGet, "/api/sync", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveItem deletes one item by id.
func (c *Client) RemoveItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+id, nil, nil)
}

// MoveItem moves an item to a new 1-based position.
func (c *Client) MoveItem(ctx context.Context, id string, position int) error {
	return c.do(ctx, http.MethodPost, "/api/items/"+id+"/move", MoveRequest{Position: position}, nil)
}

// Settings fetches the current bundle settings.
func (c *Client) Settings(ctx context.Context) (*SettingsPayload, error) {
	var payload SettingsPayload
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// UpdateSettings applies new bundle settings.
func (c *Client) UpdateSettings(ctx context.Context, payload SettingsPayload) error {
	return c.do(ctx, http.MethodPut, "/api/settings", payload, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
