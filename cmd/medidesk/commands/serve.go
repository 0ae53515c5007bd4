package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/moolen/medidesk/internal/apiserver"
	"github.com/moolen/medidesk/internal/config"
	"github.com/moolen/medidesk/internal/lifecycle"
	"github.com/moolen/medidesk/internal/logging"
	"github.com/moolen/medidesk/internal/mcp"
	"github.com/moolen/medidesk/internal/metrics"
	"github.com/moolen/medidesk/internal/session"
	"github.com/moolen/medidesk/internal/tracing"
)

var (
	servePort          int
	serveMaxSessions   int
	tracingEnabled     bool
	tracingEndpoint    string
	tracingTLSCAPath   string
	tracingTLSInsecure bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve sessions over HTTP with metrics and an MCP endpoint",
	Long: `Start the HTTP API. Sessions are created with POST /v1/sessions and live in a
bounded in-memory store. Prometheus metrics are served at /metrics and the
coordinator is exposed as MCP tools at /v1/mcp.

With --config the file is watched; log levels and the response delay are
reloaded on change.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides server.port)")
	serveCmd.Flags().IntVar(&serveMaxSessions, "max-sessions", 0, "Maximum live sessions (overrides server.max_sessions)")
	serveCmd.Flags().BoolVar(&tracingEnabled, "tracing-enabled", false, "Enable OTLP trace export")
	serveCmd.Flags().StringVar(&tracingEndpoint, "tracing-endpoint", "", "OTLP gRPC endpoint (host:port)")
	serveCmd.Flags().StringVar(&tracingTLSCAPath, "tracing-tls-ca", "", "CA certificate for the OTLP endpoint")
	serveCmd.Flags().BoolVar(&tracingTLSInsecure, "tracing-tls-insecure", false, "Skip TLS verification for the OTLP endpoint")
}

func applyServeOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("max-sessions") {
		cfg.Server.MaxSessions = serveMaxSessions
	}
	if flags.Changed("tracing-enabled") {
		cfg.Tracing.Enabled = tracingEnabled
	}
	if flags.Changed("tracing-endpoint") {
		cfg.Tracing.Endpoint = tracingEndpoint
	}
	if flags.Changed("tracing-tls-ca") {
		cfg.Tracing.TLSCAPath = tracingTLSCAPath
	}
	if flags.Changed("tracing-tls-insecure") {
		cfg.Tracing.TLSInsecure = tracingTLSInsecure
	}
	return cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyServeOverrides(cmd, cfg); err != nil {
		return err
	}
	logger := logging.GetLogger("serve")

	tracingProvider, err := tracing.NewProvider(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		TLSCAPath:   cfg.Tracing.TLSCAPath,
		TLSInsecure: cfg.Tracing.TLSInsecure,
	}, Version)
	if err != nil {
		return fmt.Errorf("failed to create tracing provider: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	rt, err := newRuntime(cfg, m, tracingProvider.Tracer("medidesk/delegation"))
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.credential == "" {
		logger.Warn("No backend API key configured; delegate_request will fail and clients must send credentials")
	}

	store, err := apiserver.NewStore(rt.factory, cfg.Server.MaxSessions, m)
	if err != nil {
		return err
	}
	mcpServer, err := mcp.NewServer(mcp.ServerOptions{
		Classifier: rt.client,
		Credential: rt.credential,
		Version:    Version,
	})
	if err != nil {
		return err
	}
	apiServer, err := apiserver.New(apiserver.Options{
		Port:      cfg.Server.Port,
		Store:     store,
		Gatherer:  reg,
		MCPServer: mcpServer.MCPServer(),
	})
	if err != nil {
		return err
	}

	manager := lifecycle.NewManager()
	manager.SetShutdownTimeout(cfg.Server.ShutdownTimeout)
	if err := manager.Register(tracingProvider); err != nil {
		return err
	}
	if err := manager.Register(apiServer, tracingProvider); err != nil {
		return err
	}
	if configPath != "" {
		watcher, err := config.NewWatcher(config.WatcherConfig{FilePath: configPath}, reloader(rt.factory, store))
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		if err := manager.Register(watcher, apiServer); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		return err
	}
	logger.Info("medidesk %s serving on :%d (backend %s, model %s)", Version, cfg.Server.Port, cfg.Backend.Provider, rt.client.Model())

	<-ctx.Done()
	logger.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	return manager.Stop(shutdownCtx)
}

// reloader applies the hot-reloadable settings of a changed config file.
// CLI flags keep priority over the reloaded log levels.
func reloader(factory *session.Factory, store *apiserver.Store) config.ReloadCallback {
	logger := logging.GetLogger("serve")
	return func(cfg *config.Config) error {
		if err := applyFlagOverrides(cfg); err != nil {
			return err
		}
		if err := setupLog(cfg, logLevelFlags); err != nil {
			return err
		}
		factory.SetResponseDelay(cfg.Session.ResponseDelay)
		delay := factory.ResponseDelay()
		store.Each(func(s *session.Session) {
			_ = s.SetResponseDelay(delay)
		})
		logger.Info("Configuration reloaded (response delay %s)", delay)
		return nil
	}
}
