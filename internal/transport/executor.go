package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/logging"
)

// maxAttempts bounds the 401 refresh-and-retry: the original send plus at
// most one resend with a refreshed token.
const maxAttempts = 2

// DefaultTimeout is the per-call network timeout when none is configured.
const DefaultTimeout = 15 * time.Second

// Credentials is the slice of the auth manager the executor needs.
type Credentials interface {
	// Token returns a usable access token, refreshing first if expired.
	Token(ctx context.Context) (string, error)

	// Refresh forces a token refresh.
	Refresh(ctx context.Context) error

	// Logout terminally destroys the session.
	Logout(reason error)
}

// Request describes one outbound call.
type Request struct {
	Method      string
	URL         string
	Query       url.Values
	ContentType string

	// Body is the static request body. Ignored when BodyForToken is set.
	Body []byte

	// BodyForToken builds the body for the given bearer token. Transports
	// that embed the credential in the body (the legacy protocol) use this
	// so a retried request carries the refreshed token, not the stale one.
	BodyForToken func(token string) ([]byte, error)
}

// Response is the raw result of an executed request.
type Response struct {
	StatusCode int
	Body       []byte
}

// Executor performs authenticated requests with bounded 401 recovery.
type Executor struct {
	creds      Credentials
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// NewExecutor creates an Executor. httpClient may be nil; timeout zero means
// DefaultTimeout.
func NewExecutor(creds Credentials, httpClient *http.Client, timeout time.Duration, logger *slog.Logger) *Executor {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		creds:      creds,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logging.WithService(logger, "executor"),
	}
}

// Do executes the request with bearer authentication.
//
// The token is checked for expiry up front (avoiding a guaranteed-failing
// round trip); a 401 mid-flight triggers exactly one refresh and one resend.
// A second consecutive 401 terminates with ErrAuthExpired and a forced
// logout. Every other response, including non-401 failures, is returned
// as-is for the caller to interpret.
func (e *Executor) Do(ctx context.Context, req *Request) (*Response, error) {
	token, err := e.creds.Token(ctx)
	if err != nil {
		return nil, e.authExpired(err)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := e.send(ctx, req, token)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}

		if attempt == maxAttempts {
			break
		}

		e.logger.Debug("received 401, refreshing token",
			slog.String("url", req.URL),
			slog.Int("attempt", attempt))

		if err := e.creds.Refresh(ctx); err != nil {
			return nil, e.authExpired(err)
		}
		token, err = e.creds.Token(ctx)
		if err != nil {
			return nil, e.authExpired(err)
		}
	}

	e.creds.Logout(ErrAuthExpired)
	return nil, fmt.Errorf("request to %s: %w", req.URL, ErrAuthExpired)
}

// send performs one HTTP round trip under the per-call timeout.
func (e *Executor) send(ctx context.Context, req *Request, token string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body := req.Body
	if req.BodyForToken != nil {
		built, err := req.BodyForToken(token)
		if err != nil {
			return nil, fmt.Errorf("failed to build request body: %w", err)
		}
		body = built
	}

	callURL := req.URL
	if len(req.Query) > 0 {
		callURL = req.URL + "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, callURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UnreachableError{Endpoint: req.URL, Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &UnreachableError{Endpoint: req.URL, Err: err}
	}

	return &Response{StatusCode: httpResp.StatusCode, Body: data}, nil
}

// authExpired normalizes auth-manager failures into the taxonomy and makes
// sure the session is destroyed. Transient network trouble during a refresh
// is not a credential rejection and passes through untouched.
func (e *Executor) authExpired(err error) error {
	switch {
	case errors.Is(err, auth.ErrNoRefreshToken),
		errors.Is(err, auth.ErrRefreshRejected),
		errors.Is(err, auth.ErrLoggedOut),
		errors.Is(err, auth.ErrNotSignedIn):
		return fmt.Errorf("%w: %v", ErrAuthExpired, err)
	default:
		return err
	}
}
