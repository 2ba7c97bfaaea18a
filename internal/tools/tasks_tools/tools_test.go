package tasks_tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/backend"
	"github.com/taskdeck/taskdeck/internal/optimistic"
	"github.com/taskdeck/taskdeck/internal/server"
	"github.com/taskdeck/taskdeck/internal/tasks"
	"github.com/taskdeck/taskdeck/internal/transport"
)

type staticCreds struct{}

func (c *staticCreds) Token(ctx context.Context) (string, error) { return "t", nil }
func (c *staticCreds) Refresh(ctx context.Context) error         { return nil }
func (c *staticCreds) Logout(reason error)                       {}

// coordinatedContext wires a ServerContext the way serve does: a real task
// service over the modern backend plus an optimistic coordinator.
func coordinatedContext(t *testing.T, modern http.HandlerFunc) *server.ServerContext {
	t.Helper()
	srv := httptest.NewServer(modern)
	t.Cleanup(srv.Close)

	exec := transport.NewExecutor(&staticCreds{}, nil, 0, nil)
	invoker := backend.NewInvoker(backend.Config{
		Modern:       transport.NewModernClient(srv.URL, exec),
		PreferModern: true,
	})

	sc := server.NewServerContext(context.Background(), server.Services{
		Tasks:       tasks.NewService(tasks.Config{Invoker: invoker}),
		Coordinator: optimistic.NewCoordinator(optimistic.Config{}),
	})
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestApplyTaskMutation_CreateCommitsServerTask(t *testing.T) {
	sc := coordinatedContext(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"t-server","title":"Buy milk"}}`))
	})

	input := tasks.TaskInput{Title: "Buy milk"}
	task, meta, err := applyTaskMutation(context.Background(), sc, "", input, func(ctx context.Context) (*tasks.Task, backend.Meta, error) {
		return sc.Tasks().Create(ctx, input)
	})
	require.NoError(t, err)
	assert.False(t, meta.Degraded)
	assert.Equal(t, "t-server", task.ID)

	value, ok := sc.Coordinator().Store().Get("tasks", "t-server")
	require.True(t, ok, "the committed create lands in the local cache under the server id")
	assert.Contains(t, string(value), "Buy milk")
}

func TestApplyTaskMutation_RollbackRestoresLocalTask(t *testing.T) {
	sc := coordinatedContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"success":false,"error":"task is locked"}`))
	})

	original := []byte(`{"id":"t1","title":"Water plants","notes":"balcony"}`)
	sc.Coordinator().Store().Put("tasks", "t1", original)

	input := tasks.TaskInput{Title: "Renamed"}
	_, _, err := applyTaskMutation(context.Background(), sc, "t1", input, func(ctx context.Context) (*tasks.Task, backend.Meta, error) {
		return sc.Tasks().Update(ctx, "t1", input)
	})
	require.Error(t, err)

	var businessErr *transport.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, "task is locked", businessErr.Message)

	restored, ok := sc.Coordinator().Store().Get("tasks", "t1")
	require.True(t, ok)
	assert.Equal(t, original, restored, "a failed write restores the snapshot byte for byte")
}

func TestApplyTaskMutation_UnresolvedCreateBlocksDependents(t *testing.T) {
	sc := coordinatedContext(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("a dependent action on a temporary id must not reach the backend")
	})

	_, _, err := applyTaskMutation(context.Background(), sc, "tmp-123", tasks.Task{ID: "tmp-123", Completed: true}, func(ctx context.Context) (*tasks.Task, backend.Meta, error) {
		return sc.Tasks().Complete(ctx, "tmp-123")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimistic.ErrStillCreating))
}

func TestApplyTaskMutation_WithoutCoordinatorDispatchesDirectly(t *testing.T) {
	called := false
	sc := server.NewServerContext(context.Background(), server.Services{})
	t.Cleanup(func() { _ = sc.Shutdown() })

	task, _, err := applyTaskMutation(context.Background(), sc, "t1", tasks.TaskInput{Title: "Direct"}, func(ctx context.Context) (*tasks.Task, backend.Meta, error) {
		called = true
		return &tasks.Task{ID: "t1", Title: "Direct"}, backend.Meta{}, nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "Direct", task.Title)
}

func TestTaskInputFromArgs(t *testing.T) {
	args := map[string]interface{}{
		"title":     "Write report",
		"notes":     "Quarterly numbers",
		"projectId": "proj-1",
		"due":       "2026-09-01T09:00:00Z",
	}

	input, errResult := taskInputFromArgs(args)
	require.Nil(t, errResult)

	assert.Equal(t, "Write report", input.Title)
	assert.Equal(t, "Quarterly numbers", input.Notes)
	assert.Equal(t, "proj-1", input.ProjectID)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), input.Due)
}

func TestTaskInputFromArgs_OptionalFieldsMayBeMissing(t *testing.T) {
	input, errResult := taskInputFromArgs(map[string]interface{}{
		"title": "Buy milk",
	})
	require.Nil(t, errResult)

	assert.Equal(t, "Buy milk", input.Title)
	assert.Empty(t, input.Notes)
	assert.Empty(t, input.ProjectID)
	assert.True(t, input.Due.IsZero())
}

func TestTaskInputFromArgs_RejectsBadDueDate(t *testing.T) {
	_, errResult := taskInputFromArgs(map[string]interface{}{
		"title": "Buy milk",
		"due":   "next tuesday",
	})
	require.NotNil(t, errResult)
	assert.True(t, errResult.IsError)
}
