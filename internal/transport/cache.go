package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// CacheClient drops resource classes from the modern backend's server-side
// response cache. Only mutations served by the modern transport need it; the
// legacy backend keeps no separate cache.
type CacheClient struct {
	endpoint string
	exec     *Executor
}

// NewCacheClient creates a client for the cache invalidation endpoint.
func NewCacheClient(endpoint string, exec *Executor) *CacheClient {
	return &CacheClient{endpoint: endpoint, exec: exec}
}

// invalidateRequest is the invalidation endpoint request body.
type invalidateRequest struct {
	Resources []string `json:"resources"`
}

// Invalidate asks the backend cache to drop the given resource classes
// (e.g. "tasks"). Callers treat it as fire-and-forget: failures are logged
// and swallowed, never surfaced to the user-visible operation.
func (c *CacheClient) Invalidate(ctx context.Context, resources ...string) error {
	if c.endpoint == "" {
		return fmt.Errorf("no cache invalidation endpoint configured")
	}
	if len(resources) == 0 {
		return nil
	}

	body, err := json.Marshal(invalidateRequest{Resources: resources})
	if err != nil {
		return fmt.Errorf("failed to encode invalidation request: %w", err)
	}

	resp, err := c.exec.Do(ctx, &Request{
		Method:      http.MethodPost,
		URL:         c.endpoint,
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("cache invalidation call failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	return nil
}
