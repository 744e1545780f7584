// Package crudclient is a thin typed HTTP client for the external CRUD
// layer (spec.md §6): projects, servers, users, and incident reports.
// The core treats these records as a read-mostly cache it never owns;
// mutations go through this client so the external system remains the
// single source of truth.
package crudclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/forgeworks/sdo/internal/errs"
)

// Client is a narrow REST client over the external CRUD API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a Client. baseURL must not have a trailing slash.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crudclient: failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("crudclient: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindTransient, fmt.Errorf("crudclient: request to %s %s failed: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return errs.New(errs.KindTransient, "crudclient: %s %s returned %d", method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return errs.New(errs.KindUserActionable, "crudclient: %s %s returned %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("crudclient: failed to decode response from %s %s: %w", method, path, err)
	}
	return nil
}
