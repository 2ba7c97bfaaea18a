package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/backend"
	"github.com/taskdeck/taskdeck/internal/instrumentation"
	"github.com/taskdeck/taskdeck/internal/logging"
	"github.com/taskdeck/taskdeck/internal/tasks"
	"github.com/taskdeck/taskdeck/internal/transport"
)

const (
	resourceTasks  = "tasks"
	resourceEvents = "events"
)

// Config holds the service dependencies.
type Config struct {
	Invoker *backend.Invoker
	Cache   *transport.CacheClient
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Service bridges the task manager to the user's mailbox and calendar. The
// mail-analysis and calendar write logic lives on the backend; this service
// triggers it and returns the resulting entities.
type Service struct {
	invoker *backend.Invoker
	cache   *transport.CacheClient
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewService creates a bridge service on top of the dual-backend invoker.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		invoker: cfg.Invoker,
		cache:   cfg.Cache,
		logger:  logging.WithService(cfg.Logger, "bridge"),
		metrics: cfg.Metrics,
	}
}

// ConvertMailToTask asks the backend to analyze a mail message and create a
// task from it. The new task lands in the tasks resource class, so that is
// what gets invalidated.
func (s *Service) ConvertMailToTask(ctx context.Context, messageID string) (*tasks.Task, backend.Meta, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("mail message id must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "bridge.convertMail",
		Resource:   resourceTasks,
		Mutating:   true,
		Method:     http.MethodPost,
		Path:       "/mail/" + url.PathEscape(messageID) + "/convert",
		Action:     "convertMailToTask",
		Parameters: []interface{}{messageID},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res, resourceTasks)

	task := &tasks.Task{}
	if err := res.Decode(task); err != nil {
		return nil, backend.Meta{}, err
	}
	return task, res.Meta(), nil
}

// SyncTaskToCalendar mirrors a task with a due date into the user's
// calendar and returns the created or updated event.
func (s *Service) SyncTaskToCalendar(ctx context.Context, taskID string) (*CalendarEvent, backend.Meta, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, backend.Meta{}, transport.NewValidationError("task id must not be empty")
	}

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "bridge.syncCalendar",
		Resource:   resourceEvents,
		Mutating:   true,
		Method:     http.MethodPost,
		Path:       "/tasks/" + url.PathEscape(taskID) + "/calendar",
		Action:     "syncTaskToCalendar",
		Parameters: []interface{}{taskID},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}
	s.invalidateAfter(ctx, res, resourceEvents)

	event := &CalendarEvent{}
	if err := res.Decode(event); err != nil {
		return nil, backend.Meta{}, err
	}
	return event, res.Meta(), nil
}

// ListCalendarConflicts returns overlapping calendar entries within the
// given window.
func (s *Service) ListCalendarConflicts(ctx context.Context, from, to time.Time) ([]Conflict, backend.Meta, error) {
	if !to.After(from) {
		return nil, backend.Meta{}, transport.NewValidationError("conflict window end must be after its start")
	}

	query := url.Values{}
	query.Set("from", from.Format(time.RFC3339))
	query.Set("to", to.Format(time.RFC3339))

	res, err := s.invoker.Invoke(ctx, &backend.Operation{
		Name:       "bridge.listConflicts",
		Resource:   resourceEvents,
		Method:     http.MethodGet,
		Path:       "/calendar/conflicts?" + query.Encode(),
		Action:     "listCalendarConflicts",
		Parameters: []interface{}{from.Format(time.RFC3339), to.Format(time.RFC3339)},
		Substitute: func() (json.RawMessage, error) {
			return json.RawMessage(`[]`), nil
		},
	})
	if err != nil {
		return nil, backend.Meta{}, err
	}

	var out []Conflict
	if err := res.Decode(&out); err != nil {
		return nil, backend.Meta{}, err
	}
	return out, res.Meta(), nil
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
