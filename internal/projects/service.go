package projects

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

const (
	resourceProjects = "projects"
	resourceAreas    = "areas"
)

// Config holds the service dependencies.
type Config struct {
	Invoker *backend.Invoker
	Cache   *transport.CacheClient
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics

	// NewID fabricates ids for degraded create echoes. Defaults to uuid.
	NewID func() string
}

// Service exposes project and area operations.
type Service struct {
	invoker *backend.Invoker
	cache   *transport.CacheClient
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	newID   func() string
}

// NewService creates a project service on top of the dual-backend invoker.
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
		logger:  logging.WithService(cfg.Logger, "projects"),
		metrics: cfg.Metrics,
		newID:   cfg.NewID,
	}
}

// ListProjects returns all projects.
func (s *Service) ListProjects(ctx context.Context) ([]Project, backend.Meta, error) {
	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "projects.list",
		Resource:   resourceProjects,
		Method:     http.MethodGet,
		Path:       "/projects",
		Action:     "listProjects",
		Substitute: emptyList,
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}

	var out []Project
	if err := res.Decode(&out); err != nil {
		return nil, backend.Meta{}, err
	}
	return out, res.Meta(), nil
}

// CreateProject adds a new project.
func (s *Service) CreateProject(ctx context.Context, input ProjectInput) (*Project, backend.Meta, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("project name must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "projects.create",
		Resource:   resourceProjects,
		Mutating:   true,
		Method:     http.MethodPost,
		Path:       "/projects",
		Payload:    input,
		Action:     "createProject",
		Parameters: []interface{}{input},
		Substitute: func() (json.RawMessage, error) {
			return json.Marshal(Project{
				ID:     "offline-" + s.newID(),
				Name:   input.Name,
				AreaID: input.AreaID,
				Notes:  input.Notes,
			})
		},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res, resourceProjects)

	project := &Project{}
	if err := res.Decode(project); err != nil {
		return nil, backend.Meta{}, err
	}
	return project, res.Meta(), nil
}

// UpdateProject replaces the caller-editable fields of a project.
func (s *Service) UpdateProject(ctx context.Context, id string, input ProjectInput) (*Project, backend.Meta, error) {
	if err := requireID(id, "project"); err != nil {
		return nil, backend.Meta{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("project name must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "projects.update",
		Resource:   resourceProjects,
		Mutating:   true,
		Method:     http.MethodPut,
		Path:       "/projects/" + url.PathEscape(id),
		Payload:    input,
		Action:     "updateProject",
		Parameters: []interface{}{id, input},
		Substitute: func() (json.RawMessage, error) {
			return json.Marshal(Project{
				ID:     id,
				Name:   input.Name,
				AreaID: input.AreaID,
				Notes:  input.Notes,
			})
		},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res, resourceProjects)

	project := &Project{}
	if err := res.Decode(project); err != nil {
		return nil, backend.Meta{}, err
	}
	return project, res.Meta(), nil
}

// DeleteProject removes a project. The backend refuses to delete projects
// with open tasks; that arrives here as a business failure and propagates.
func (s *Service) DeleteProject(ctx context.Context, id string) (backend.Meta, error) {
	if err := requireID(id, "project"); err != nil {
		return backend.Meta{}, err
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "projects.delete",
		Resource:   resourceProjects,
		Mutating:   true,
		Method:     http.MethodDelete,
		Path:       "/projects/" + url.PathEscape(id),
		Action:     "deleteProject",
		Parameters: []interface{}{id},
	})
	if err != nil {
		return backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res, resourceProjects)

	return res.Meta(), nil
}

// ListAreas returns all areas.
func (s *Service) ListAreas(ctx context.Context) ([]Area, backend.Meta, error) {
	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "areas.list",
		Resource:   resourceAreas,
		Method:     http.MethodGet,
		Path:       "/areas",
		Action:     "listAreas",
		Substitute: emptyList,
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}

	var out []Area
	if err := res.Decode(&out); err != nil {
		return nil, backend.Meta{}, err
	}
	return out, res.Meta(), nil
}

// CreateArea adds a new area.
func (s *Service) CreateArea(ctx context.Context, input AreaInput) (*Area, backend.Meta, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("area name must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "areas.create",
		Resource:   resourceAreas,
		Mutating:   true,
		Method:     http.MethodPost,
		Path:       "/areas",
		Payload:    input,
		Action:     "createArea",
		Parameters: []interface{}{input},
		Substitute: func() (json.RawMessage, error) {
			return json.Marshal(Area{ID: "offline-" + s.newID(), Name: input.Name})
		},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res, resourceAreas)

	area := &Area{}
	if err := res.Decode(area); err != nil {
		return nil, backend.Meta{}, err
	}
	return area, res.Meta(), nil
}

// UpdateArea renames an area.
func (s *Service) UpdateArea(ctx context.Context, id string, input AreaInput) (*Area, backend.Meta, error) {
	if err := requireID(id, "area"); err != nil {
		return nil, backend.Meta{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("area name must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "areas.update",
		Resource:   resourceAreas,
		Mutating:   true,
		Method:     http.MethodPut,
		Path:       "/areas/" + url.PathEscape(id),
		Payload:    input,
		Action:     "updateArea",
		Parameters: []interface{}{id, input},
		Substitute: func() (json.RawMessage, error) {
			return json.Marshal(Area{ID: id, Name: input.Name})
		},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res, resourceAreas)

	area := &Area{}
	if err := res.Decode(area); err != nil {
		return nil, backend.Meta{}, err
	}
	return area, res.Meta(), nil
}

// DeleteArea removes an area.
func (s *Service) DeleteArea(ctx context.Context, id string) (backend.Meta, error) {
	if err := requireID(id, "area"); err != nil {
		return backend.Meta{}, err
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "areas.delete",
		Resource:   resourceAreas,
		Mutating:   true,
		Method:     http.MethodDelete,
		Path:       "/areas/" + url.PathEscape(id),
		Action:     "deleteArea",
		Parameters: []interface{}{id},
	})
	if err != nil {
		return backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res, resourceAreas)

	return res.Meta(), nil
}

func (s *Service) invalidateAfter(ctx context.Context, res *backend.Result, resource string) {
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

func requireID(id, kind string) error {
	if strings.TrimSpace(id) == "" {
		return transport.NewValidationError("%s id must not be empty", kind)
	}
	return nil
}

func emptyList() (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}
