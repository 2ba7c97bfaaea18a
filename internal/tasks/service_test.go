package tasks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/backend"
	"github.com/taskdeck/taskdeck/internal/transport"
)

type staticCreds struct{ token string }

func (c *staticCreds) Token(ctx context.Context) (string, error) { return c.token, nil }
func (c *staticCreds) Refresh(ctx context.Context) error         { return nil }
func (c *staticCreds) Logout(reason error)                       {}

type invalidations struct {
	calls     int
	resources []string
}

// testEnv wires a Service to three httptest servers: modern backend, legacy
// backend, and the cache invalidation endpoint. Nil handlers get a server
// that is already closed, so calls to it fail at the connection level.
func testEnv(t *testing.T, modern, legacy http.HandlerFunc) (*Service, *invalidations) {
	t.Helper()

	exec := transport.NewExecutor(&staticCreds{token: "t"}, nil, 0, nil)

	serverFor := func(h http.HandlerFunc) string {
		srv := httptest.NewServer(h)
		if h == nil {
			srv.Close()
			return srv.URL
		}
		t.Cleanup(srv.Close)
		return srv.URL
	}

	inv := &invalidations{}
	cacheSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Resources []string `json:"resources"`
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		inv.calls++
		inv.resources = append(inv.resources, req.Resources...)
	}))
	t.Cleanup(cacheSrv.Close)

	invoker := backend.NewInvoker(backend.Config{
		Modern:          transport.NewModernClient(serverFor(modern), exec),
		Legacy:          transport.NewLegacyClient(serverFor(legacy), exec),
		PreferModern:    true,
		FallbackEnabled: true,
	})

	svc := NewService(Config{
		Invoker: invoker,
		Cache:   transport.NewCacheClient(cacheSrv.URL, exec),
		NewID:   func() string { return "fixed-id" },
	})
	return svc, inv
}

func TestService_List(t *testing.T) {
	svc, inv := testEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"t1","title":"Water plants"},{"id":"t2","title":"Buy milk"}]}`))
	}, nil)

	tasks, meta, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, meta.Degraded)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Water plants", tasks[0].Title)
	assert.Equal(t, 0, inv.calls, "reads never invalidate the cache")
}

func TestService_ListByProject(t *testing.T) {
	svc, _ := testEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "p1", r.URL.Query().Get("projectId"))
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	}, nil)

	tasks, _, err := svc.List(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestService_CreateValidatesBeforeNetwork(t *testing.T) {
	called := false
	svc, inv := testEnv(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, nil)

	_, _, err := svc.Create(context.Background(), TaskInput{Title: "   "})
	require.Error(t, err)

	var validationErr *transport.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.False(t, called, "validation failures must not reach the network")
	assert.Equal(t, 0, inv.calls)
}

func TestService_CreateInvalidatesCacheExactlyOnce(t *testing.T) {
	svc, inv := testEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"t-new","title":"Buy milk","position":3}}`))
	}, nil)

	task, meta, err := svc.Create(context.Background(), TaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	assert.False(t, meta.Degraded)
	assert.Equal(t, "t-new", task.ID)
	assert.Equal(t, 3, task.Position)

	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, []string{"tasks"}, inv.resources)
}

func TestService_CreateViaLegacySkipsInvalidation(t *testing.T) {
	svc, inv := testEnv(t, nil, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"t-server","title":"Buy milk"}}`))
	})

	task, meta, err := svc.Create(context.Background(), TaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	assert.False(t, meta.Degraded)
	assert.Equal(t, "t-server", task.ID, "legacy creates still return the server-assigned id")
	assert.Equal(t, 0, inv.calls, "only the modern backend keeps a response cache")
}

func TestService_CreateDegradedEchoesInput(t *testing.T) {
	svc, inv := testEnv(t, nil, nil)

	task, meta, err := svc.Create(context.Background(), TaskInput{Title: "Buy milk", Notes: "oat"})
	require.NoError(t, err)
	assert.True(t, meta.Degraded, "substitute data must be visibly flagged")
	assert.Equal(t, "offline-fixed-id", task.ID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, "oat", task.Notes)
	assert.Equal(t, 0, inv.calls)
}

func TestService_ListDegradedReturnsEmptySet(t *testing.T) {
	svc, _ := testEnv(t, nil, nil)

	tasks, meta, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, meta.Degraded)
	assert.Empty(t, tasks)
}

func TestService_CompleteBusinessFailurePropagates(t *testing.T) {
	svc, inv := testEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"success":false,"error":"task already completed"}`))
	}, nil)

	_, _, err := svc.Complete(context.Background(), "t1")
	require.Error(t, err)

	var businessErr *transport.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, "task already completed", businessErr.Message)
	assert.Equal(t, 0, inv.calls, "failed mutations must not invalidate the cache")
}

func TestService_DeleteInvalidatesCache(t *testing.T) {
	svc, inv := testEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		_, _ = w.Write([]byte(`{"success":true}`))
	}, nil)

	meta, err := svc.Delete(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, meta.Degraded)
	assert.Equal(t, 1, inv.calls)
}

func TestService_ReorderValidation(t *testing.T) {
	svc, _ := testEnv(t, nil, nil)

	_, err := svc.Reorder(context.Background(), "t1", -1)
	require.Error(t, err)

	var validationErr *transport.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = svc.Reorder(context.Background(), "", 2)
	assert.ErrorAs(t, err, &validationErr)
}
