package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ModernClient talks to the resource-oriented REST backend. One resource
// family per domain service, JSON bodies, bearer authorization.
type ModernClient struct {
	baseURL string
	exec    *Executor
}

// NewModernClient creates a client rooted at baseURL (e.g.
// "https://api.example.com/v1").
func NewModernClient(baseURL string, exec *Executor) *ModernClient {
	return &ModernClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		exec:    exec,
	}
}

// BaseURL returns the configured base URL.
func (c *ModernClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET on the resource path.
func (c *ModernClient) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST with a JSON payload.
func (c *ModernClient) Post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, payload)
}

// Put performs a PUT with a JSON payload.
func (c *ModernClient) Put(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, payload)
}

// Delete performs a DELETE on the resource path.
func (c *ModernClient) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *ModernClient) do(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, &UnreachableError{Endpoint: "(modern)", Err: fmt.Errorf("no modern base URL configured")}
	}

	req := &Request{
		Method: method,
		URL:    c.baseURL + "/" + strings.TrimLeft(path, "/"),
	}

	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s payload: %w", method, path, err)
		}
		req.Body = body
		req.ContentType = "application/json"
	}

	resp, err := c.exec.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	return decodeEnvelope(resp)
}
