package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/auth"
)

// fakeCreds is a test double for the auth manager.
type fakeCreds struct {
	mu           sync.Mutex
	token        string
	tokenErr     error
	refreshErr   error
	refreshCount int
	logoutCount  int
	logoutReason error
}

func (f *fakeCreds) Token(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return f.token, nil
}

func (f *fakeCreds) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCount++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.token = "refreshed-token"
	return nil
}

func (f *fakeCreds) Logout(reason error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCount++
	f.logoutReason = reason
}

func (f *fakeCreds) snapshot() (refreshes, logouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCount, f.logoutCount
}

func TestExecutor_AttachesBearerHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	creds := &fakeCreds{token: "access-1"}
	exec := NewExecutor(creds, nil, 0, nil)

	resp, err := exec.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer access-1", gotAuth)
}

func TestExecutor_401RefreshRetryOnce(t *testing.T) {
	// Scenario C: valid at request time, 401 mid-flight, one refresh, one
	// retry, success.
	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("Authorization"))
		if len(tokens) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	creds := &fakeCreds{token: "stale-token"}
	exec := NewExecutor(creds, nil, 0, nil)

	resp, err := exec.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	refreshes, logouts := creds.snapshot()
	assert.Equal(t, 1, refreshes, "exactly one refresh attempt")
	assert.Equal(t, 0, logouts)
	require.Len(t, tokens, 2, "exactly one retry of the original request")
	assert.Equal(t, "Bearer stale-token", tokens[0])
	assert.Equal(t, "Bearer refreshed-token", tokens[1])
}

func TestExecutor_SecondConsecutive401IsTerminal(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	creds := &fakeCreds{token: "t"}
	exec := NewExecutor(creds, nil, 0, nil)

	_, err := exec.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	assert.ErrorIs(t, err, ErrAuthExpired)
	assert.Equal(t, 2, requests, "never more than two attempts")

	refreshes, logouts := creds.snapshot()
	assert.Equal(t, 1, refreshes)
	assert.Equal(t, 1, logouts)
	assert.ErrorIs(t, creds.logoutReason, ErrAuthExpired)
}

func TestExecutor_RefreshFailureAfter401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	creds := &fakeCreds{token: "t", refreshErr: auth.ErrRefreshRejected}
	exec := NewExecutor(creds, nil, 0, nil)

	_, err := exec.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	assert.ErrorIs(t, err, ErrAuthExpired)
}

func TestExecutor_NotSignedInMapsToAuthExpired(t *testing.T) {
	creds := &fakeCreds{tokenErr: auth.ErrNotSignedIn}
	exec := NewExecutor(creds, nil, 0, nil)

	_, err := exec.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://unused.invalid"})
	assert.ErrorIs(t, err, ErrAuthExpired)
}

func TestExecutor_Non401PassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"message":"duplicate"}`))
	}))
	t.Cleanup(srv.Close)

	creds := &fakeCreds{token: "t"}
	exec := NewExecutor(creds, nil, 0, nil)

	resp, err := exec.Do(context.Background(), &Request{Method: http.MethodPost, URL: srv.URL})
	require.NoError(t, err, "non-401 responses are returned as-is")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	refreshes, _ := creds.snapshot()
	assert.Equal(t, 0, refreshes)
}

func TestExecutor_TimeoutIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	creds := &fakeCreds{token: "t"}
	exec := NewExecutor(creds, nil, 20*time.Millisecond, nil)

	_, err := exec.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)

	assert.True(t, IsTransportFailure(err), "timeouts count as transport failures")
}

func TestExecutor_ConnectionRefusedIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	creds := &fakeCreds{token: "t"}
	exec := NewExecutor(creds, nil, 0, nil)

	_, err := exec.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)
	assert.True(t, IsTransportFailure(err))
}
