package server

import (
	"context"
	"sync"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/backend"
	"github.com/taskdeck/taskdeck/internal/bridge"
	"github.com/taskdeck/taskdeck/internal/drive"
	"github.com/taskdeck/taskdeck/internal/instrumentation"
	"github.com/taskdeck/taskdeck/internal/optimistic"
	"github.com/taskdeck/taskdeck/internal/projects"
	"github.com/taskdeck/taskdeck/internal/tasks"
)

// Services bundles the domain services the MCP server exposes.
type Services struct {
	Auth        *auth.Manager
	Invoker     *backend.Invoker
	Tasks       *tasks.Service
	Projects    *projects.Service
	Drive       *drive.Service
	Bridge      *bridge.Service
	Coordinator *optimistic.Coordinator
}

// ServerContext holds the shared state of the MCP server.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	services Services
	metrics  *instrumentation.Metrics

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context wrapping the given services.
func NewServerContext(ctx context.Context, services Services) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		services: services,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Auth returns the token lifecycle manager.
func (sc *ServerContext) Auth() *auth.Manager {
	return sc.services.Auth
}

// Invoker returns the dual-backend invoker, for health reporting.
func (sc *ServerContext) Invoker() *backend.Invoker {
	return sc.services.Invoker
}

// Tasks returns the task service.
func (sc *ServerContext) Tasks() *tasks.Service {
	return sc.services.Tasks
}

// Projects returns the project service.
func (sc *ServerContext) Projects() *projects.Service {
	return sc.services.Projects
}

// Drive returns the drive service.
func (sc *ServerContext) Drive() *drive.Service {
	return sc.services.Drive
}

// Bridge returns the mail/calendar bridge service.
func (sc *ServerContext) Bridge() *bridge.Service {
	return sc.services.Bridge
}

// Coordinator returns the optimistic update coordinator.
func (sc *ServerContext) Coordinator() *optimistic.Coordinator {
	return sc.services.Coordinator
}

// Metrics returns the metrics recorder, or nil when instrumentation is
// disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder for tool instrumentation.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
