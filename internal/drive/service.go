package drive

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/taskdeck/taskdeck/internal/backend"
	"github.com/taskdeck/taskdeck/internal/instrumentation"
	"github.com/taskdeck/taskdeck/internal/logging"
	"github.com/taskdeck/taskdeck/internal/transport"
)

const resource = "files"

// Config holds the service dependencies.
type Config struct {
	Invoker *backend.Invoker
	Cache   *transport.CacheClient
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Service exposes the file and folder operations of the access layer.
// Folder creation and document generation are performed by the backend; the
// service only triggers them and reports the resulting metadata.
type Service struct {
	invoker *backend.Invoker
	cache   *transport.CacheClient
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewService creates a drive service on top of the dual-backend invoker.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		invoker: cfg.Invoker,
		cache:   cfg.Cache,
		logger:  logging.WithService(cfg.Logger, "drive"),
		metrics: cfg.Metrics,
	}
}

// ListFiles returns the entries of a folder, or the root listing when
// folderID is empty.
func (s *Service) ListFiles(ctx context.Context, folderID string) ([]FileInfo, backend.Meta, error) {
	path := "/files"
	params := []interface{}{}
	if folderID != "" {
		path += "?folderId=" + url.QueryEscape(folderID)
		params = append(params, folderID)
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "files.list",
		Resource:   resource,
		Method:     http.MethodGet,
		Path:       path,
		Action:     "listFiles",
		Parameters: params,
		Substitute: func() (json.RawMessage, error) {
			return json.RawMessage(`[]`), nil
		},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}

	var out []FileInfo
	if err := res.Decode(&out); err != nil {
		return nil, backend.Meta{}, err
	}
	return out, res.Meta(), nil
}

// CreateFolder creates a folder, optionally inside a parent folder.
func (s *Service) CreateFolder(ctx context.Context, name, parentID string) (*FileInfo, backend.Meta, error) {
	if strings.TrimSpace(name) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("folder name must not be empty")
	}

	payload := map[string]string{"name": name}
	if parentID != "" {
		payload["parentId"] = parentID
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "files.createFolder",
		Resource:   resource,
		Mutating:   true,
		Method:     http.MethodPost,
		Path:       "/files/folders",
		Payload:    payload,
		Action:     "createFolder",
		Parameters: []interface{}{name, parentID},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res)

	info := &FileInfo{}
	if err := res.Decode(info); err != nil {
		return nil, backend.Meta{}, err
	}
	return info, res.Meta(), nil
}

// EnsureProjectFolder returns the folder attached to a project, creating it
// on the backend when it does not exist yet. The call is idempotent.
func (s *Service) EnsureProjectFolder(ctx context.Context, projectID, name string) (*FileInfo, backend.Meta, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("project id must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("folder name must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "files.ensureProjectFolder",
		Resource:   resource,
		Mutating:   true,
		Method:     http.MethodPost,
		Path:       "/projects/" + url.PathEscape(projectID) + "/folder",
		Payload:    map[string]string{"name": name},
		Action:     "ensureProjectFolder",
		Parameters: []interface{}{projectID, name},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res)

	info := &FileInfo{}
	if err := res.Decode(info); err != nil {
		return nil, backend.Meta{}, err
	}
	return info, res.Meta(), nil
}

// GenerateDocument asks the backend to create a document from a template in
// the project's folder. There is no degraded substitute; generation needs a
// real backend.
func (s *Service) GenerateDocument(ctx context.Context, req DocumentRequest) (*FileInfo, backend.Meta, error) {
	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("project id must not be empty")
	}
	if strings.TrimSpace(req.Template) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("template must not be empty")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("document title must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "files.generateDocument",
		Resource:   resource,
		Mutating:   true,
		Method:     http.MethodPost,
		Path:       "/files/documents",
		Payload:    req,
		Action:     "generateDocument",
		Parameters: []interface{}{req},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res)

	info := &FileInfo{}
	if err := res.Decode(info); err != nil {
		return nil, backend.Meta{}, err
	}
	return info, res.Meta(), nil
}

// DeleteFile moves a file or folder to the provider's trash.
func (s *Service) DeleteFile(ctx context.Context, id string) (backend.Meta, error) {
	if strings.TrimSpace(id) == "" {
		return backend.Meta{}, transport.NewValidationError("file id must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "files.delete",
		Resource:   resource,
		Mutating:   true,
		Method:     http.MethodDelete,
		Path:       "/files/" + url.PathEscape(id),
		Action:     "deleteFile",
		Parameters: []interface{}{id},
	})
	if err != nil {
		return backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res)

	return res.Meta(), nil
}

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
