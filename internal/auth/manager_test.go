package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/session"
)

func testSession(issuedAgo time.Duration, expiresIn int64, now time.Time) *session.Session {
	return &session.Session{
		UserID:        "user-1",
		Email:         "user@example.com",
		AccessToken:   "opaque-access-token",
		RefreshToken:  "refresh-token",
		TokenIssuedAt: now.Add(-issuedAgo),
		ExpiresIn:     expiresIn,
	}
}

func newTestManager(t *testing.T, s *session.Session, refreshURL string, now time.Time) (*Manager, session.Store) {
	t.Helper()

	store := session.NewMemoryStore()
	if s != nil {
		require.NoError(t, store.Save(s))
	}

	m, err := NewManager(Config{
		Store:      store,
		RefreshURL: refreshURL,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	return m, store
}

func refreshServer(t *testing.T, calls *atomic.Int64, respond func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req refreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.RefreshToken)

		respond(w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func grantTokens(access, refresh string, expiresIn int64) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"tokens": map[string]interface{}{
				"access_token":  access,
				"refresh_token": refresh,
				"expires_in":    expiresIn,
				"token_type":    "Bearer",
			},
		})
	}
}

func TestIsExpired_FreshAndElapsed(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		session *session.Session
		want    bool
	}{
		{name: "just issued", session: testSession(10*time.Second, 3600, now), want: false},
		{name: "validity elapsed", session: testSession(3700*time.Second, 3600, now), want: true},
		{name: "exactly at boundary", session: testSession(3600*time.Second, 3600, now), want: true},
		{name: "no expiry hint", session: testSession(24*time.Hour, 0, now), want: false},
		{name: "nil session", session: nil, want: true},
		{name: "empty token", session: &session.Session{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, nil, "", now)
			assert.Equal(t, tt.want, m.IsExpired(tt.session))
		})
	}
}

func TestIsExpired_PrefersJWTClaim(t *testing.T) {
	now := time.Now()

	makeJWT := func(exp time.Time) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "user-1",
			"exp": exp.Unix(),
		})
		signed, err := token.SignedString([]byte("test-key"))
		require.NoError(t, err)
		return signed
	}

	m, _ := newTestManager(t, nil, "", now)

	// Issue-time arithmetic says valid, embedded claim says expired.
	s := testSession(10*time.Second, 3600, now)
	s.AccessToken = makeJWT(now.Add(-time.Minute))
	assert.True(t, m.IsExpired(s))

	// Issue-time arithmetic says expired, embedded claim says valid.
	s = testSession(3700*time.Second, 3600, now)
	s.AccessToken = makeJWT(now.Add(time.Hour))
	assert.False(t, m.IsExpired(s))
}

func TestRefresh_Success(t *testing.T) {
	now := time.Now()
	var calls atomic.Int64
	srv := refreshServer(t, &calls, grantTokens("new-access", "", 1800))

	s := testSession(3700*time.Second, 3600, now)
	m, store := newTestManager(t, s, srv.URL, now)

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, StateValid, m.State())

	got, err := m.Session()
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "refresh-token", got.RefreshToken, "old refresh token kept when none returned")
	assert.Equal(t, int64(1800), got.ExpiresIn)
	assert.Equal(t, now, got.TokenIssuedAt)

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "new-access", persisted.AccessToken)
}

func TestRefresh_ReplacesRefreshTokenWhenReturned(t *testing.T) {
	now := time.Now()
	var calls atomic.Int64
	srv := refreshServer(t, &calls, grantTokens("new-access", "new-refresh", 3600))

	m, _ := newTestManager(t, testSession(0, 3600, now), srv.URL, now)
	require.NoError(t, m.Refresh(context.Background()))

	got, err := m.Session()
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", got.RefreshToken)
}

func TestRefresh_NoRefreshToken_NoNetworkCall(t *testing.T) {
	now := time.Now()
	var calls atomic.Int64
	srv := refreshServer(t, &calls, grantTokens("x", "", 3600))

	s := testSession(3700*time.Second, 3600, now)
	s.RefreshToken = ""
	m, store := newTestManager(t, s, srv.URL, now)

	var logoutCount atomic.Int64
	m.OnLogout(func(reason error) {
		logoutCount.Add(1)
		assert.ErrorIs(t, reason, ErrNoRefreshToken)
	})

	err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Equal(t, int64(0), calls.Load(), "no network call may be attempted")
	assert.Equal(t, int64(1), logoutCount.Load())
	assert.Equal(t, StateLoggedOut, m.State())

	_, err = store.Load()
	assert.ErrorIs(t, err, session.ErrNoSession, "persisted session must be cleared")
}

func TestRefresh_Rejected_LogoutExactlyOnce(t *testing.T) {
	now := time.Now()
	var calls atomic.Int64
	srv := refreshServer(t, &calls, func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false})
	})

	m, store := newTestManager(t, testSession(3700*time.Second, 3600, now), srv.URL, now)

	var logoutCount atomic.Int64
	m.OnLogout(func(reason error) { logoutCount.Add(1) })

	err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshRejected)

	// A second logout (e.g. racing executor) must not re-notify.
	m.Logout(ErrRefreshRejected)
	assert.Equal(t, int64(1), logoutCount.Load())

	_, err = store.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = m.Session()
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestRefresh_RejectedWithoutListeners_StillSurfaced(t *testing.T) {
	now := time.Now()
	var calls atomic.Int64
	srv := refreshServer(t, &calls, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	m, _ := newTestManager(t, testSession(3700*time.Second, 3600, now), srv.URL, now)
	assert.ErrorIs(t, m.Refresh(context.Background()), ErrRefreshRejected)
}

func TestRefresh_NetworkFailureKeepsSession(t *testing.T) {
	now := time.Now()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	m, store := newTestManager(t, testSession(3700*time.Second, 3600, now), srv.URL, now)

	err := m.Refresh(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRefreshRejected)
	assert.Equal(t, StateExpired, m.State())

	// Session survives a transient network failure.
	persisted, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, "opaque-access-token", persisted.AccessToken)
}

func TestRefresh_SingleFlight(t *testing.T) {
	now := time.Now()
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond) // widen the race window
		grantTokens("new-access", "", 3600)(w)
	}))
	t.Cleanup(srv.Close)

	m, _ := newTestManager(t, testSession(3700*time.Second, 3600, now), srv.URL, now)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Refresh(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), calls.Load(), "concurrent refreshes must collapse into one call")
}

func TestToken_RefreshesWhenExpired(t *testing.T) {
	now := time.Now()
	var calls atomic.Int64
	srv := refreshServer(t, &calls, grantTokens("fresh-access", "", 3600))

	// Scenario B: 3700s old with 3600s validity and a valid refresh token.
	m, _ := newTestManager(t, testSession(3700*time.Second, 3600, now), srv.URL, now)

	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token)
	assert.Equal(t, int64(1), calls.Load())
}

func TestToken_ValidSessionSkipsRefresh(t *testing.T) {
	now := time.Now()
	var calls atomic.Int64
	srv := refreshServer(t, &calls, grantTokens("fresh-access", "", 3600))

	// Scenario A: 10s old with 3600s validity.
	m, _ := newTestManager(t, testSession(10*time.Second, 3600, now), srv.URL, now)

	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opaque-access-token", token)
	assert.Equal(t, int64(0), calls.Load())
}

func TestSession_NotSignedIn(t *testing.T) {
	m, _ := newTestManager(t, nil, "", time.Now())

	_, err := m.Session()
	assert.ErrorIs(t, err, ErrNotSignedIn)
}
