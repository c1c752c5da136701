package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"curvelaboratory/promptgateway/pkg/callout"
	"curvelaboratory/promptgateway/pkg/cli"
	"curvelaboratory/promptgateway/pkg/config"
	"curvelaboratory/promptgateway/pkg/embeddings"
	"curvelaboratory/promptgateway/pkg/orchestrator"
	"curvelaboratory/promptgateway/pkg/proxy/handlers"
	"curvelaboratory/promptgateway/pkg/security/secrets"
	gwtls "curvelaboratory/promptgateway/pkg/security/tls"
	"curvelaboratory/promptgateway/pkg/server"
	"curvelaboratory/promptgateway/pkg/telemetry/health"
	"curvelaboratory/promptgateway/pkg/telemetry/logging"
	"curvelaboratory/promptgateway/pkg/telemetry/metrics"
	"curvelaboratory/promptgateway/pkg/telemetry/tracing"
	"curvelaboratory/promptgateway/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Curve gateway",
	Long: `Start the Curve gateway with the specified configuration.

The gateway listens on the configured address, embeds the prompt target
descriptions through the model server, and serves chat completions.

Examples:
  # Start with default config
  curve run

  # Start with custom config
  curve run --config /etc/curve/config.yaml

  # Override listen address
  curve run --listen 0.0.0.0:10000

  # Validate config without starting the gateway
  curve run --dry-run`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the gateway")
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}

	if runFlags.listenAddress != "" {
		cfg.Listener.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    os.Stdout,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	gw, err := buildGateway(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer gw.Close()

	printBanner(out, cfg, gw)

	if err := gw.server.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Gateway stopped")
	return nil
}

// gateway is the assembled process: every long-lived component plus the
// cleanup needed to release them.
type gateway struct {
	server       *server.Server
	orchestrator *orchestrator.Orchestrator
	store        *embeddings.Store
	bootstrapper *embeddings.Bootstrapper
	collector    *metrics.Collector
	tracer       *tracing.Tracer

	closers []io.Closer
}

// buildGateway wires the components described by cfg. The embedding store
// starts loading in the background; the listener is not started.
func buildGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gateway, error) {
	gw := &gateway{}

	secretManager, err := secrets.NewManagerFromConfig(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets: %w", err)
	}
	gw.closers = append(gw.closers, secretManager)

	pool := upstream.NewPoolFromConfig(cfg, nil, secretManager)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		gw.Close()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	gw.tracer = tracer

	gw.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	cache, err := newVectorCache(cfg.EmbeddingStore)
	if err != nil {
		gw.Close()
		return nil, err
	}
	gw.closers = append(gw.closers, cache)

	gw.store = embeddings.NewStore()
	if !cfg.Routing.DisableEmbedding {
		embedder := embeddings.NewModelServerEmbedder(pool, cfg.ModelServer.EmbeddingsPath, cfg.Models.Embedding)
		gw.bootstrapper = embeddings.NewBootstrapper(cfg, gw.store, embedder, cache)
		if err := gw.bootstrapper.Start(ctx); err != nil {
			gw.Close()
			return nil, fmt.Errorf("failed to start embedding bootstrap: %w", err)
		}
	}

	gw.orchestrator = orchestrator.New(cfg,
		callout.NewRegistry[orchestrator.CallContext](),
		gw.store,
		orchestrator.WithRecorder(gw.collector),
		orchestrator.WithLogger(logger),
	)

	chat := handlers.NewChatHandler(gw.orchestrator, pool, gw.collector, tracer, handlers.Options{
		LLMPath:      cfg.LLMUpstream.Path,
		LLMTimeout:   cfg.LLMUpstream.Timeout,
		MaxBodyBytes: cfg.Listener.MaxBodyBytes,
	})

	checker := health.New(0)
	checker.RegisterCheck("embeddings", health.ReadyCheck("embedding store", gw.orchestrator.Ready))

	tlsConfig, err := gwtls.ServerConfig(ctx, cfg.Security.TLS)
	if err != nil {
		gw.Close()
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}

	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		metricsHandler = gw.collector.Handler()
	}

	gw.server = server.NewServer(cfg, server.Routes{
		Gateway: chat,
		Metrics: metricsHandler,
		Checker: checker,
		Version: health.VersionInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
	}, tlsConfig, tracer)

	return gw, nil
}

// Close releases every component in reverse order of creation.
func (g *gateway) Close() {
	if g.bootstrapper != nil {
		g.bootstrapper.Stop()
	}
	if g.tracer != nil {
		if err := g.tracer.Shutdown(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i].Close(); err != nil {
			slog.Warn("failed to close component", "error", err)
		}
	}
	g.closers = nil
}

func newVectorCache(cfg config.EmbeddingStoreConfig) (embeddings.Cache, error) {
	switch cfg.Cache {
	case "sqlite":
		cache, err := embeddings.NewSQLiteCache(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open embedding cache: %w", err)
		}
		return cache, nil
	default:
		return embeddings.NewMemoryCache(), nil
	}
}

func printBanner(w io.Writer, cfg *config.Config, gw *gateway) {
	fmt.Fprintf(w, "Curve v%s\n", Version)
	fmt.Fprintf(w, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(w, "✓ Configuration loaded")
	fmt.Fprintf(w, "✓ Prompt targets: %d\n", len(cfg.PromptTargets))
	if gw.store.Ready() {
		fmt.Fprintf(w, "✓ Embedding store ready (%d vectors)\n", gw.store.Len())
	} else if !cfg.Routing.DisableEmbedding {
		fmt.Fprintf(w, "… Embedding store pending, retrying %s\n", cfg.EmbeddingStore.RetrySchedule)
	}
	fmt.Fprintf(w, "✓ Listening on %s\n", cfg.Listener.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(w, "✓ Metrics endpoint: %s\n", cfg.Telemetry.Metrics.Path)
	}
	slog.Debug("gateway configured",
		"precedence", cfg.Routing.Precedence,
		"guard", cfg.JailbreakGuardEnabled(),
		"tracing", gw.tracer.Enabled(),
	)
}
