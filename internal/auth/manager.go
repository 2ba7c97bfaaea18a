package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/taskdeck/taskdeck/internal/instrumentation"
	"github.com/taskdeck/taskdeck/internal/logging"
	"github.com/taskdeck/taskdeck/internal/session"
)

// State is the lifecycle state of the managed session.
type State int

const (
	// StateValid means the access token is believed to be usable.
	StateValid State = iota
	// StateExpired means the access token has outlived its validity.
	StateExpired
	// StateRefreshing means a refresh call is in flight.
	StateRefreshing
	// StateLoggedOut is terminal; the session has been destroyed.
	StateLoggedOut
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	case StateRefreshing:
		return "refreshing"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// LogoutListener is notified exactly once when the session terminally dies.
// The reason explains what killed it (e.g. a rejected refresh token).
type LogoutListener func(reason error)

// Config holds the dependencies and settings for a Manager.
type Config struct {
	// Store is the persistent session record. Required.
	Store session.Store

	// RefreshURL is the token refresh endpoint. Required for refreshes.
	RefreshURL string

	// HTTPClient performs the refresh call. Defaults to a client with a
	// 15 second timeout.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional; nil records nothing.
	Metrics *instrumentation.Metrics

	// Now allows tests to control the clock. Defaults to time.Now.
	Now func() time.Time
}

// Manager owns expiry detection and refresh for the user session.
type Manager struct {
	store      session.Store
	refreshURL string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	now        func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	current   *session.Session
	state     State
	listeners []LogoutListener
	loggedOut bool
}

// NewManager creates a Manager for the session held in cfg.Store.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{
		store:      cfg.Store,
		refreshURL: cfg.RefreshURL,
		httpClient: cfg.HTTPClient,
		logger:     logging.WithService(cfg.Logger, "auth"),
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		state:      StateValid,
	}, nil
}

// OnLogout registers a listener for terminal session failure.
func (m *Manager) OnLogout(fn LogoutListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the managed session, loading it from the store on first use.
func (m *Manager) Session() (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionLocked()
}

func (m *Manager) sessionLocked() (*session.Session, error) {
	if m.loggedOut {
		return nil, ErrLoggedOut
	}
	if m.current != nil {
		return m.current, nil
	}

	s, err := m.store.Load()
	if err != nil {
		if err == session.ErrNoSession {
			return nil, ErrNotSignedIn
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	m.current = s
	return s, nil
}

// IsExpired reports whether the session's access token has outlived its
// validity. If the access token is a decodable JWT, its embedded exp claim
// wins over the issue-time arithmetic.
func (m *Manager) IsExpired(s *session.Session) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}

	if exp, ok := tokenExpiry(s.AccessToken); ok {
		return !m.now().Before(exp)
	}

	if s.ExpiresIn <= 0 {
		return false
	}
	return s.Age(m.now()) >= time.Duration(s.ExpiresIn)*time.Second
}

// tokenExpiry extracts the exp claim from a JWT access token.
// The signature is deliberately not verified; the client only needs the
// expiry hint, the server remains the authority on validity.
func tokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Token returns a usable access token, refreshing first when the current one
// is expired.
func (m *Manager) Token(ctx context.Context) (string, error) {
	s, err := m.Session()
	if err != nil {
		return "", err
	}

	if !m.IsExpired(s) {
		return s.AccessToken, nil
	}

	if err := m.Refresh(ctx); err != nil {
		return "", err
	}

	s, err = m.Session()
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}

// refreshRequest is the refresh endpoint request body.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse is the refresh endpoint response body.
type refreshResponse struct {
	Success bool `json:"success"`
	Tokens  *struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token,omitempty"`
		ExpiresIn    int64  `json:"expires_in"`
		TokenType    string `json:"token_type"`
	} `json:"tokens,omitempty"`
}

// Refresh exchanges the refresh credential for a new access token and
// persists the updated session. Concurrent callers share one in-flight
// refresh; they all observe the same outcome.
//
// A missing refresh credential or a rejection by the server terminates the
// session: the persisted record is cleared and logout listeners fire once.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	s, err := m.sessionLocked()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	key := "refresh:" + s.UserID
	m.mu.Unlock()

	_, err, _ = m.group.Do(key, func() (interface{}, error) {
		return nil, m.doRefresh(ctx)
	})
	return err
}

func (m *Manager) doRefresh(ctx context.Context) error {
	m.mu.Lock()
	s, err := m.sessionLocked()
	if err != nil {
		m.mu.Unlock()
		return err
	}

	if s.RefreshToken == "" {
		m.mu.Unlock()
		m.logger.Warn("refresh requested without refresh token",
			logging.UserHash(s.Email))
		m.metrics.RecordTokenRefresh(ctx, instrumentation.ResultExpired)
		m.logout(ErrNoRefreshToken)
		return ErrNoRefreshToken
	}

	m.state = StateRefreshing
	refreshToken := s.RefreshToken
	m.mu.Unlock()

	resp, err := m.callRefreshEndpoint(ctx, refreshToken)
	if err != nil {
		// Network-level trouble is not a credential rejection; the session
		// stays alive and the caller may retry later.
		m.mu.Lock()
		m.state = StateExpired
		m.mu.Unlock()
		m.metrics.RecordTokenRefresh(ctx, instrumentation.ResultFailure)
		return fmt.Errorf("refresh call failed: %w", err)
	}

	if !resp.Success || resp.Tokens == nil || resp.Tokens.AccessToken == "" {
		m.metrics.RecordTokenRefresh(ctx, instrumentation.ResultFailure)
		m.logout(ErrRefreshRejected)
		return ErrRefreshRejected
	}

	m.mu.Lock()
	s.ApplyTokens(resp.Tokens.AccessToken, resp.Tokens.RefreshToken, resp.Tokens.ExpiresIn, m.now())
	m.state = StateValid
	saveErr := m.store.Save(s)
	m.mu.Unlock()

	if saveErr != nil {
		// The in-memory session already carries the new token; losing the
		// persisted copy only costs a re-login after restart.
		m.logger.Warn("failed to persist refreshed session", logging.Err(saveErr))
	}

	m.logger.Info("access token refreshed",
		logging.UserHash(s.Email),
		slog.String("token", logging.SanitizeToken(s.AccessToken)))
	m.metrics.RecordTokenRefresh(ctx, instrumentation.ResultSuccess)
	return nil
}

func (m *Manager) callRefreshEndpoint(ctx context.Context, refreshToken string) (*refreshResponse, error) {
	if m.refreshURL == "" {
		return nil, fmt.Errorf("no refresh endpoint configured")
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.refreshURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh endpoint unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response: %w", err)
	}

	var parsed refreshResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		// A non-2xx with an unparseable body counts as rejection only for
		// auth-level statuses; anything else is a transport problem.
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &refreshResponse{Success: false}, nil
		}
		return nil, fmt.Errorf("unexpected refresh response (status %d): %w", resp.StatusCode, err)
	}

	return &parsed, nil
}

// Logout destroys the session: the persisted record is cleared and every
// registered listener fires exactly once. Safe to call repeatedly.
func (m *Manager) Logout(reason error) {
	m.logout(reason)
}

func (m *Manager) logout(reason error) {
	m.mu.Lock()
	if m.loggedOut {
		m.mu.Unlock()
		return
	}
	m.loggedOut = true
	m.state = StateLoggedOut
	m.current = nil
	listeners := make([]LogoutListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Error("failed to clear persisted session", logging.Err(err))
	}

	m.logger.Info("session terminated", logging.Err(reason))
	if reason != nil {
		m.metrics.RecordAuthExpired(context.Background())
	}

	for _, fn := range listeners {
		fn(reason)
	}
}
