package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// LegacyClient talks to the single-endpoint script backend. Every business
// operation is multiplexed through one URL via the action field; the token
// travels inside the request body (or query), not only the bearer header.
type LegacyClient struct {
	endpoint string
	exec     *Executor
}

// NewLegacyClient creates a client for the legacy endpoint.
func NewLegacyClient(endpoint string, exec *Executor) *LegacyClient {
	return &LegacyClient{endpoint: endpoint, exec: exec}
}

// Endpoint returns the configured endpoint URL.
func (c *LegacyClient) Endpoint() string {
	return c.endpoint
}

// legacyRequest is the POST body of the legacy protocol.
type legacyRequest struct {
	Action     string        `json:"action"`
	Parameters []interface{} `json:"parameters"`
	Token      string        `json:"token"`
}

// Call invokes one legacy action with positional parameters.
//
// A reachable endpoint answering a well-formed envelope with success:false is
// a business failure, not a transport failure; it must surface to the caller
// untouched. Anything else non-2xx or undecodable is transport-level.
func (c *LegacyClient) Call(ctx context.Context, action string, parameters []interface{}) (json.RawMessage, error) {
	if c.endpoint == "" {
		return nil, &UnreachableError{Endpoint: "(legacy)", Err: fmt.Errorf("no legacy endpoint configured")}
	}
	if parameters == nil {
		parameters = []interface{}{}
	}

	req := &Request{
		Method: http.MethodPost,
		URL:    c.endpoint,
		// The script backend only reads text/plain bodies; it parses the
		// JSON itself.
		ContentType: "text/plain;charset=utf-8",
		BodyForToken: func(token string) ([]byte, error) {
			return json.Marshal(legacyRequest{
				Action:     action,
				Parameters: parameters,
				Token:      token,
			})
		},
	}

	resp, err := c.exec.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	return decodeEnvelope(resp)
}

// Query invokes a read-only legacy action through a query-encoded GET.
func (c *LegacyClient) Query(ctx context.Context, action string, params url.Values) (json.RawMessage, error) {
	if c.endpoint == "" {
		return nil, &UnreachableError{Endpoint: "(legacy)", Err: fmt.Errorf("no legacy endpoint configured")}
	}

	query := url.Values{}
	query.Set("action", action)
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	resp, err := c.exec.Do(ctx, &Request{
		Method: http.MethodGet,
		URL:    c.endpoint,
		Query:  query,
	})
	if err != nil {
		return nil, err
	}

	return decodeEnvelope(resp)
}

// decodeEnvelope maps a raw response into data, a BusinessError, or a
// transport-level error.
func decodeEnvelope(resp *Response) (json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		// No usable body at all (proxy error page, truncated response).
		// Classified as transport-level so the invoker can fall back.
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	if !env.Success {
		// 2xx or not: a well-formed failure envelope is a business failure.
		if env.Message != "" || env.Error != "" {
			return nil, &BusinessError{Message: env.FailureMessage()}
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	return env.Data, nil
}
