package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/backend"
	"github.com/taskdeck/taskdeck/internal/bridge"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/drive"
	"github.com/taskdeck/taskdeck/internal/instrumentation"
	"github.com/taskdeck/taskdeck/internal/optimistic"
	"github.com/taskdeck/taskdeck/internal/projects"
	"github.com/taskdeck/taskdeck/internal/server"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/tasks"
	"github.com/taskdeck/taskdeck/internal/transport"
)

// newLogger builds the process logger. Output goes to stderr so the stdio
// MCP transport keeps stdout to itself.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildServices wires the full access layer from configuration: session
// store, token manager, authenticated executor, dual-backend invoker, and
// the domain services on top. metrics may be nil.
func buildServices(cfg config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (server.Services, error) {
	store := session.NewFileStore()

	manager, err := auth.NewManager(auth.Config{
		Store:      store,
		RefreshURL: cfg.RefreshURL,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return server.Services{}, fmt.Errorf("failed to create token manager: %w", err)
	}

	exec := transport.NewExecutor(manager, nil, cfg.RequestTimeout, logger)

	var modern *transport.ModernClient
	if cfg.ModernBaseURL != "" {
		modern = transport.NewModernClient(cfg.ModernBaseURL, exec)
	}
	var legacy *transport.LegacyClient
	if cfg.LegacyURL != "" {
		legacy = transport.NewLegacyClient(cfg.LegacyURL, exec)
	}
	var cache *transport.CacheClient
	if cfg.CacheURL != "" {
		cache = transport.NewCacheClient(cfg.CacheURL, exec)
	}

	invoker := backend.NewInvoker(backend.Config{
		Modern:          modern,
		Legacy:          legacy,
		PreferModern:    cfg.PreferModern,
		FallbackEnabled: cfg.FallbackEnabled,
		ProbeCooldown:   cfg.ProbeCooldown,
		Logger:          logger,
		Metrics:         metrics,
	})

	return server.Services{
		Auth:    manager,
		Invoker: invoker,
		Tasks: tasks.NewService(tasks.Config{
			Invoker: invoker,
			Cache:   cache,
			Logger:  logger,
			Metrics: metrics,
		}),
		Projects: projects.NewService(projects.Config{
			Invoker: invoker,
			Cache:   cache,
			Logger:  logger,
			Metrics: metrics,
		}),
		Drive: drive.NewService(drive.Config{
			Invoker: invoker,
			Cache:   cache,
			Logger:  logger,
			Metrics: metrics,
		}),
		Bridge: bridge.NewService(bridge.Config{
			Invoker: invoker,
			Cache:   cache,
			Logger:  logger,
			Metrics: metrics,
		}),
		Coordinator: optimistic.NewCoordinator(optimistic.Config{
			Logger:  logger,
			Metrics: metrics,
		}),
	}, nil
}
