package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/instrumentation"
	"github.com/taskdeck/taskdeck/internal/server"
	"github.com/taskdeck/taskdeck/internal/tools/bridge_tools"
	"github.com/taskdeck/taskdeck/internal/tools/drive_tools"
	"github.com/taskdeck/taskdeck/internal/tools/projects_tools"
	"github.com/taskdeck/taskdeck/internal/tools/tasks_tools"
)

// MetricsConfig holds configuration for the metrics server.
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode      bool
		yolo           bool
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server over stdio, exposing the
task manager to AI assistants.

Safety Mode:
  By default, the server operates in read-only mode, providing only safe
  operations. Use --yolo to enable write operations (task creation, deletion,
  document generation, etc.)

Backend Configuration:
  Endpoints come from the environment (or a .env file):
    TASKDECK_MODERN_URL    base URL of the REST backend
    TASKDECK_LEGACY_URL    endpoint of the legacy script backend
    TASKDECK_REFRESH_URL   token refresh endpoint (required)
    TASKDECK_CACHE_URL     cache invalidation endpoint

  When the modern backend fails at the transport level, calls fall through
  to the legacy backend; when both are down, read tools answer with clearly
  flagged substitute data instead of hanging.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}
			return runServe(debugMode, yolo, metricsConfig)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (task creation, deletion, etc.). Default is read-only mode.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(debugMode, yolo bool, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load metrics config from environment if not set via flags
	if metricsConfig.Enabled && os.Getenv("METRICS_ENABLED") == "false" {
		metricsConfig.Enabled = false
	}
	if metricsConfig.Addr == "" || metricsConfig.Addr == server.DefaultMetricsAddr {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			metricsConfig.Addr = addr
		}
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(debugMode)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during instrumentation shutdown", "error", err)
		}
	}()

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}

	services, err := buildServices(cfg, logger, metrics)
	if err != nil {
		return err
	}

	serverContext := server.NewServerContext(shutdownCtx, services)
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
	}

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && provider.Enabled() {
		healthChecker := server.NewHealthChecker(serverContext)
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			InstrumentationProvider: provider,
			HealthChecker:           healthChecker,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	defer func() {
		// Shutdown metrics server first
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", "error", err)
		}
	}()

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("taskdeck", version,
		mcpserver.WithToolCapabilities(true),
	)

	// readOnly is the inverse of yolo
	readOnly := !yolo
	if readOnly {
		logger.Info("starting server in read-only mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with write operations enabled")
	}

	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	return runStdioServer(mcpSrv)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers every MCP tool family.
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Tasks",
			register: func() error {
				return tasks_tools.RegisterTasksTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Projects",
			register: func() error {
				return projects_tools.RegisterProjectsTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Drive",
			register: func() error {
				return drive_tools.RegisterDriveTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Bridge",
			register: func() error {
				return bridge_tools.RegisterBridgeTools(mcpSrv, ctx, readOnly)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}

	return nil
}
