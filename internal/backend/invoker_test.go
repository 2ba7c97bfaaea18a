package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/transport"
)

type staticCreds struct{ token string }

func (c *staticCreds) Token(ctx context.Context) (string, error) { return c.token, nil }
func (c *staticCreds) Refresh(ctx context.Context) error         { return nil }
func (c *staticCreds) Logout(reason error)                       {}

func newModernClient(t *testing.T, handler http.HandlerFunc) *transport.ModernClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	exec := transport.NewExecutor(&staticCreds{token: "t"}, nil, 0, nil)
	return transport.NewModernClient(srv.URL, exec)
}

func newLegacyClient(t *testing.T, handler http.HandlerFunc) *transport.LegacyClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	exec := transport.NewExecutor(&staticCreds{token: "t"}, nil, 0, nil)
	return transport.NewLegacyClient(srv.URL, exec)
}

// deadModernClient points at a server that is already closed, so every call
// fails at the connection level.
func deadModernClient(t *testing.T) *transport.ModernClient {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	exec := transport.NewExecutor(&staticCreds{token: "t"}, nil, 0, nil)
	return transport.NewModernClient(srv.URL, exec)
}

func deadLegacyClient(t *testing.T) *transport.LegacyClient {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	exec := transport.NewExecutor(&staticCreds{token: "t"}, nil, 0, nil)
	return transport.NewLegacyClient(srv.URL, exec)
}

func listOp() *Operation {
	return &Operation{
		Name:     "tasks.list",
		Resource: "tasks",
		Method:   http.MethodGet,
		Path:     "/tasks",
		Action:   "listTasks",
		Substitute: func() (json.RawMessage, error) {
			return json.RawMessage(`[]`), nil
		},
	}
}

func TestInvoker_ModernServes(t *testing.T) {
	modern := newModernClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"t1"}]}`))
	})

	inv := NewInvoker(Config{Modern: modern, PreferModern: true, FallbackEnabled: true})

	result, err := inv.Invoke(context.Background(), listOp())
	require.NoError(t, err)
	assert.Equal(t, TransportModern, result.Transport)
	assert.False(t, result.Degraded)
	assert.JSONEq(t, `[{"id":"t1"}]`, string(result.Data))
	assert.True(t, inv.Health(TransportModern).Healthy)
}

func TestInvoker_FallsBackToLegacy(t *testing.T) {
	legacyCalled := false
	legacy := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		legacyCalled = true
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"t-server","title":"Buy milk"}}`))
	})

	op := &Operation{
		Name:       "tasks.create",
		Resource:   "tasks",
		Mutating:   true,
		Method:     http.MethodPost,
		Path:       "/tasks",
		Payload:    map[string]string{"title": "Buy milk"},
		Action:     "createTask",
		Parameters: []interface{}{map[string]string{"title": "Buy milk"}},
	}

	inv := NewInvoker(Config{
		Modern:          deadModernClient(t),
		Legacy:          legacy,
		PreferModern:    true,
		FallbackEnabled: true,
	})

	result, err := inv.Invoke(context.Background(), op)
	require.NoError(t, err)
	assert.True(t, legacyCalled)
	assert.Equal(t, TransportLegacy, result.Transport)
	assert.False(t, result.Degraded, "a real legacy response is not degraded data")
	assert.JSONEq(t, `{"id":"t-server","title":"Buy milk"}`, string(result.Data))

	assert.False(t, inv.Health(TransportModern).Healthy)
	assert.True(t, inv.Health(TransportLegacy).Healthy)
}

func TestInvoker_RoundTripEquivalence(t *testing.T) {
	// Both transports answer the same payload; the caller must not be able
	// to tell them apart except through Result.Transport.
	payload := `{"id":"t9","title":"Call dentist","completed":false}`

	modern := newModernClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":` + payload + `}`))
	})
	legacy := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":` + payload + `}`))
	})

	op := &Operation{
		Name:     "tasks.get",
		Resource: "tasks",
		Method:   http.MethodGet,
		Path:     "/tasks/t9",
		Action:   "getTask",
	}

	viaModern := NewInvoker(Config{Modern: modern, Legacy: legacy, PreferModern: true, FallbackEnabled: true})
	viaLegacy := NewInvoker(Config{Legacy: legacy, FallbackEnabled: true})

	m, err := viaModern.Invoke(context.Background(), op)
	require.NoError(t, err)
	l, err := viaLegacy.Invoke(context.Background(), op)
	require.NoError(t, err)

	assert.JSONEq(t, string(m.Data), string(l.Data))
	assert.Equal(t, TransportModern, m.Transport)
	assert.Equal(t, TransportLegacy, l.Transport)
}

func TestInvoker_LegacyReadsUseQueryEncoding(t *testing.T) {
	legacy := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method, "legacy reads go through the GET handler")
		assert.Equal(t, "listTasks", r.URL.Query().Get("action"))
		assert.Equal(t, []string{"p1", "7"}, r.URL.Query()["parameters"])
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"t1"}]}`))
	})

	op := &Operation{
		Name:       "tasks.list",
		Resource:   "tasks",
		Action:     "listTasks",
		Parameters: []interface{}{"p1", 7},
	}

	inv := NewInvoker(Config{Legacy: legacy, FallbackEnabled: true})

	result, err := inv.Invoke(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, TransportLegacy, result.Transport)
	assert.JSONEq(t, `[{"id":"t1"}]`, string(result.Data))
}

func TestInvoker_LegacyMutationsUsePostBody(t *testing.T) {
	legacy := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method, "legacy mutations carry a POST body")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"t-server"}}`))
	})

	op := &Operation{
		Name:       "tasks.create",
		Resource:   "tasks",
		Mutating:   true,
		Action:     "createTask",
		Parameters: []interface{}{map[string]string{"title": "Buy milk"}},
	}

	inv := NewInvoker(Config{Legacy: legacy, FallbackEnabled: true})

	result, err := inv.Invoke(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, TransportLegacy, result.Transport)
}

func TestInvoker_BusinessFailureDoesNotFallBack(t *testing.T) {
	modern := newModernClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"success":false,"error":"project has open tasks"}`))
	})
	legacyCalled := false
	legacy := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		legacyCalled = true
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	op := &Operation{
		Name:     "projects.delete",
		Resource: "projects",
		Mutating: true,
		Method:   http.MethodDelete,
		Path:     "/projects/p1",
		Action:   "deleteProject",
	}

	inv := NewInvoker(Config{Modern: modern, Legacy: legacy, PreferModern: true, FallbackEnabled: true})

	_, err := inv.Invoke(context.Background(), op)
	require.Error(t, err)

	var businessErr *transport.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, "project has open tasks", businessErr.Message)
	assert.False(t, legacyCalled, "business failures must not reach the other transport")
	assert.True(t, inv.Health(TransportModern).Healthy, "a business failure is not a transport outage")
}

func TestInvoker_DegradedWhenAllTransportsDown(t *testing.T) {
	inv := NewInvoker(Config{
		Modern:          deadModernClient(t),
		Legacy:          deadLegacyClient(t),
		PreferModern:    true,
		FallbackEnabled: true,
	})

	result, err := inv.Invoke(context.Background(), listOp())
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, TransportDegraded, result.Transport)
	assert.JSONEq(t, `[]`, string(result.Data))
}

func TestInvoker_NoSubstitutePropagatesLastError(t *testing.T) {
	op := &Operation{
		Name:     "tasks.create",
		Resource: "tasks",
		Mutating: true,
		Method:   http.MethodPost,
		Path:     "/tasks",
		Action:   "createTask",
	}

	inv := NewInvoker(Config{
		Modern:          deadModernClient(t),
		Legacy:          deadLegacyClient(t),
		PreferModern:    true,
		FallbackEnabled: true,
	})

	_, err := inv.Invoke(context.Background(), op)
	require.Error(t, err)
	assert.True(t, transport.IsTransportFailure(err))
}

func TestInvoker_FallbackDisabledPropagatesModernError(t *testing.T) {
	legacyCalled := false
	legacy := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		legacyCalled = true
	})

	inv := NewInvoker(Config{
		Modern:       deadModernClient(t),
		Legacy:       legacy,
		PreferModern: true,
	})

	_, err := inv.Invoke(context.Background(), listOp())
	require.Error(t, err)
	assert.True(t, transport.IsTransportFailure(err))
	assert.False(t, legacyCalled)
}

func TestInvoker_StickyHealthSkipsModernUntilCooldown(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	modernCalls := 0
	modernDown := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		modernCalls++
		if modernDown {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("down"))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	t.Cleanup(srv.Close)
	modern := transport.NewModernClient(srv.URL, transport.NewExecutor(&staticCreds{token: "t"}, nil, 0, nil))

	legacy := newLegacyClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	})

	inv := NewInvoker(Config{
		Modern:          modern,
		Legacy:          legacy,
		PreferModern:    true,
		FallbackEnabled: true,
		ProbeCooldown:   30 * time.Second,
		Now:             clock,
	})

	// First call probes modern, fails, falls back.
	result, err := inv.Invoke(context.Background(), listOp())
	require.NoError(t, err)
	assert.Equal(t, TransportLegacy, result.Transport)
	assert.Equal(t, 1, modernCalls)

	// Within the cooldown modern is not re-probed.
	result, err = inv.Invoke(context.Background(), listOp())
	require.NoError(t, err)
	assert.Equal(t, TransportLegacy, result.Transport)
	assert.Equal(t, 1, modernCalls)

	// After the cooldown the next request re-probes a recovered modern.
	modernDown = false
	now = now.Add(31 * time.Second)

	result, err = inv.Invoke(context.Background(), listOp())
	require.NoError(t, err)
	assert.Equal(t, TransportModern, result.Transport)
	assert.Equal(t, 2, modernCalls)
	assert.True(t, inv.Health(TransportModern).Healthy)
}

func TestInvoker_NilOperation(t *testing.T) {
	inv := NewInvoker(Config{})

	_, err := inv.Invoke(context.Background(), nil)
	require.Error(t, err)

	var validationErr *transport.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
