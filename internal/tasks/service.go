package tasks

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck/internal/backend"
	"github.com/taskdeck/taskdeck/internal/instrumentation"
	"github.com/taskdeck/taskdeck/internal/logging"
	"github.com/taskdeck/taskdeck/internal/transport"
)

const resource = "tasks"

// Config holds the service dependencies.
type Config struct {
	Invoker *backend.Invoker
	Cache   *transport.CacheClient
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics

	// NewID fabricates ids for degraded create echoes. Defaults to uuid.
	NewID func() string
}

// Service exposes the task operations of the access layer.
type Service struct {
	invoker *backend.Invoker
	cache   *transport.CacheClient
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	newID   func() string
}

// NewService creates a task service on top of the dual-backend invoker.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	return &Service{
		invoker: cfg.Invoker,
		cache:   cfg.Cache,
		logger:  logging.WithService(cfg.Logger, "tasks"),
		metrics: cfg.Metrics,
		newID:   cfg.NewID,
	}
}

// List returns all tasks, optionally scoped to a project.
func (s *Service) List(ctx context.Context, projectID string) ([]Task, backend.Meta, error) {
	path := "/tasks"
	params := []interface{}{}
	if projectID != "" {
		path += "?projectId=" + url.QueryEscape(projectID)
		params = append(params, projectID)
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "tasks.list",
		Resource:   resource,
		Method:     http.MethodGet,
		Path:       path,
		Action:     "listTasks",
		Parameters: params,
		Substitute: emptyList,
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}

	var out []Task
	if err := res.Decode(&out); err != nil {
		return nil, backend.Meta{}, err
	}
	return out, res.Meta(), nil
}

// Get returns a single task by id.
func (s *Service) Get(ctx context.Context, id string) (*Task, backend.Meta, error) {
	if err := requireID(id); err != nil {
		return nil, backend.Meta{}, err
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "tasks.get",
		Resource:   resource,
		Method:     http.MethodGet,
		Path:       "/tasks/" + url.PathEscape(id),
		Action:     "getTask",
		Parameters: []interface{}{id},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}

	task := &Task{}
	if err := res.Decode(task); err != nil {
		return nil, backend.Meta{}, err
	}
	return task, res.Meta(), nil
}

// Create adds a new task. A degraded response echoes the input with a
// locally fabricated id; the flag in Meta tells the caller it is not a
// server-assigned entity.
func (s *Service) Create(ctx context.Context, input TaskInput) (*Task, backend.Meta, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("task title must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "tasks.create",
		Resource:   resource,
		Mutating:   true,
		Method:     http.MethodPost,
		Path:       "/tasks",
		Payload:    input,
		Action:     "createTask",
		Parameters: []interface{}{input},
		Substitute: func() (json.RawMessage, error) {
			return json.Marshal(Task{
				ID:        "offline-" + s.newID(),
				Title:     input.Title,
				Notes:     input.Notes,
				ProjectID: input.ProjectID,
				Due:       input.Due,
			})
		},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res)

	task := &Task{}
	if err := res.Decode(task); err != nil {
		return nil, backend.Meta{}, err
	}
	return task, res.Meta(), nil
}

// Update replaces the caller-editable fields of a task.
func (s *Service) Update(ctx context.Context, id string, input TaskInput) (*Task, backend.Meta, error) {
	if err := requireID(id); err != nil {
		return nil, backend.Meta{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("task title must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "tasks.update",
		Resource:   resource,
		Mutating:   true,
		Method:     http.MethodPut,
		Path:       "/tasks/" + url.PathEscape(id),
		Payload:    input,
		Action:     "updateTask",
		Parameters: []interface{}{id, input},
		Substitute: func() (json.RawMessage, error) {
			return json.Marshal(Task{
				ID:        id,
				Title:     input.Title,
				Notes:     input.Notes,
				ProjectID: input.ProjectID,
				Due:       input.Due,
			})
		},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res)

	task := &Task{}
	if err := res.Decode(task); err != nil {
		return nil, backend.Meta{}, err
	}
	return task, res.Meta(), nil
}

// Delete removes a task. Deletions have no degraded substitute; pretending
// a delete happened would hide data loss.
func (s *Service) Delete(ctx context.Context, id string) (backend.Meta, error) {
	if err := requireID(id); err != nil {
		return backend.Meta{}, err
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "tasks.delete",
		Resource:   resource,
		Mutating:   true,
		Method:     http.MethodDelete,
		Path:       "/tasks/" + url.PathEscape(id),
		Action:     "deleteTask",
		Parameters: []interface{}{id},
	})
	if err != nil {
		return backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res)

	return res.Meta(), nil
}

// Complete marks a task as done.
func (s *Service) Complete(ctx context.Context, id string) (*Task, backend.Meta, error) {
	if err := requireID(id); err != nil {
		return nil, backend.Meta{}, err
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "tasks.complete",
		Resource:   resource,
		Mutating:   true,
		Method:     http.MethodPost,
		Path:       "/tasks/" + url.PathEscape(id) + "/complete",
		Action:     "completeTask",
		Parameters: []interface{}{id},
		Substitute: func() (json.RawMessage, error) {
			return json.Marshal(Task{ID: id, Completed: true})
		},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res)

	task := &Task{}
	if err := res.Decode(task); err != nil {
		return nil, backend.Meta{}, err
	}
	return task, res.Meta(), nil
}

// Reorder moves a task to a new position within its project. Reorders have
// no degraded substitute.
func (s *Service) Reorder(ctx context.Context, id string, position int) (backend.Meta, error) {
	if err := requireID(id); err != nil {
		return backend.Meta{}, err
	}
	if position < 0 {
		return backend.Meta{}, transport.NewValidationError("position must not be negative")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "tasks.reorder",
		Resource:   resource,
		Mutating:   true,
		Method:     http.MethodPut,
		Path:       "/tasks/" + url.PathEscape(id) + "/position",
		Payload:    map[string]int{"position": position},
		Action:     "reorderTask",
		Parameters: []interface{}{id, position},
	})
	if err != nil {
		return backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res)

	return res.Meta(), nil
}

// invalidateAfter drops the tasks resource class from the server-side cache
// after a mutation served by the modern transport. Legacy and degraded
// responses need no invalidation. Failures are logged and swallowed.
func (s *Service) invalidateAfter(ctx context.Context, res *backend.Result) {
	if res.Transport != backend.TransportModern || s.cache == nil {
		return
	}

	if err := s.cache.Invalidate(ctx, resource); err != nil {
		s.logger.Warn("cache invalidation failed",
			logging.EntityKind(resource),
			logging.Err(err))
		s.metrics.RecordCacheInvalidation(ctx, resource, instrumentation.ResultFailure)
		return
	}
	s.metrics.RecordCacheInvalidation(ctx, resource, instrumentation.ResultSuccess)
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return transport.NewValidationError("task id must not be empty")
	}
	return nil
}

func emptyList() (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}
