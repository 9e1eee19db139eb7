package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/moolen/magma/internal/classify"
	classifyAnthropic "github.com/moolen/magma/internal/classify/anthropic"
	classifyGemini "github.com/moolen/magma/internal/classify/gemini"
	"github.com/moolen/magma/internal/config"
	"github.com/moolen/magma/internal/embeddings"
	"github.com/moolen/magma/internal/embeddings/openai"
	"github.com/moolen/magma/internal/facades"
	"github.com/moolen/magma/internal/logging"
	"github.com/moolen/magma/internal/magma"
	mcpserver "github.com/moolen/magma/internal/mcp"
	"github.com/moolen/magma/internal/metrics"
	"github.com/moolen/magma/internal/store"
	"github.com/moolen/magma/internal/synth"
	synthAnthropic "github.com/moolen/magma/internal/synth/anthropic"
	synthGemini "github.com/moolen/magma/internal/synth/gemini"
	"github.com/moolen/magma/internal/tracing"
)

var (
	configPath string
	stdioMode  bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the MAGMA MCP server",
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (optional, defaults layered with env vars)")
	serverCmd.Flags().BoolVar(&stdioMode, "stdio", false, "serve MCP over stdio instead of HTTP")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	logger := logging.GetLogger("commands.server")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	tracingProvider, err := tracing.NewTracingProvider(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		TLSCAPath:   cfg.Tracing.TLSCAPath,
		TLSInsecure: cfg.Tracing.TLSInsecure,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := tracingProvider.Start(ctx); err != nil {
		return fmt.Errorf("start tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := tracingProvider.Stop(shutdownCtx); err != nil {
			logger.Error("tracing shutdown: %v", err)
		}
	}()

	adapter := store.NewClient(store.ClientConfig{
		Host:               cfg.Store.Host,
		Port:               cfg.Store.Port,
		Password:           cfg.Store.Password,
		GraphName:          cfg.Store.GraphName,
		MaxRetries:         3,
		DialTimeout:        30 * time.Second,
		ReadTimeout:        120 * time.Second,
		WriteTimeout:       120 * time.Second,
		PoolSize:           10,
		QueryCacheEnabled:  true,
		QueryCacheMemoryMB: 64,
		QueryCacheTTL:      2 * time.Minute,
	})
	if err := adapter.Connect(ctx); err != nil {
		return fmt.Errorf("connect to FalkorDB: %w", err)
	}
	defer adapter.Close()
	if err := adapter.InitializeSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	embedProvider, err := buildEmbeddingsProvider(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("build embeddings provider: %w", err)
	}
	classifier, err := buildClassifier(ctx, cfg.Classify)
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}
	synthesizer, err := buildSynthesizer(ctx, cfg.Synth)
	if err != nil {
		return fmt.Errorf("build synthesizer: %w", err)
	}

	entityFacade := facades.NewEntity(adapter)
	semanticFacade := facades.NewSemantic(adapter, embedProvider)
	temporalFacade := facades.NewTemporal(adapter)
	causalFacade := facades.NewCausal(adapter)
	crossLinker := facades.NewCrossLinker(adapter)

	reg := prometheusRegistry()
	m := metrics.NewMetrics(reg)
	defer m.Unregister()

	tracer := tracingProvider.GetTracer("magma.executor")
	executor, err := magma.NewExecutor(semanticFacade, entityFacade, temporalFacade, causalFacade, magma.Config{
		SemanticTopK:     cfg.Executor.SemanticTopK,
		MinSemanticScore: cfg.Executor.MinSemanticScore,
		Timeout:          cfg.Executor.Timeout,
	}, tracer, m)
	if err != nil {
		return fmt.Errorf("build executor: %w", err)
	}

	mcpSrv, err := mcpserver.NewServer(mcpserver.Options{
		Version:     Version,
		Store:       adapter,
		Entity:      entityFacade,
		Semantic:    semanticFacade,
		Temporal:    temporalFacade,
		Causal:      causalFacade,
		CrossLinker: crossLinker,
		Executor:    executor,
		Classifier:  classifier,
		Synthesizer: synthesizer,
		Metrics:     m,
	})
	if err != nil {
		return fmt.Errorf("build mcp server: %w", err)
	}

	watcher, err := startTuningWatcher(ctx, configPath, executor, logger)
	if err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	if stdioMode {
		logger.Info("serving MCP over stdio")
		return mcpSrv.ServeStdio()
	}

	var activeSessions int64
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/", mcpSrv.HTTPHandler(mcpserver.HTTPOptions{
		EndpointPath: cfg.Server.Path,
		Sessions: &mcpserver.SessionLimits{
			Max:      cfg.Server.MaxSessions,
			ActiveFn: func() int { return int(atomic.LoadInt64(&activeSessions)) },
		},
	}))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting HTTP server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error: %v", err)
		}
	}()

	sig := <-sigCh
	logger.Info("received signal %v, shutting down gracefully", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown: %v", err)
	}
	return nil
}

func buildEmbeddingsProvider(cfg config.EmbeddingsConfig) (embeddings.Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.New(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
}

func buildClassifier(ctx context.Context, cfg config.ProviderConfig) (classify.Classifier, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return classifyAnthropic.New(cfg.APIKey, cfg.Model)
	case "gemini":
		return classifyGemini.New(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown classify provider %q", cfg.Provider)
	}
}

func buildSynthesizer(ctx context.Context, cfg config.ProviderConfig) (synth.Synthesizer, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return synthAnthropic.New(cfg.APIKey, cfg.Model)
	case "gemini":
		return synthGemini.New(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown synth provider %q", cfg.Provider)
	}
}

// startTuningWatcher wires config.Watcher to the executor's tuning knobs
// when a config file was given; stdin-only deployments (env vars only)
// have nothing to watch.
func startTuningWatcher(ctx context.Context, path string, executor *magma.Executor, logger *logging.Logger) (*config.Watcher, error) {
	if path == "" {
		return nil, nil
	}
	watcher, err := config.NewWatcher(config.WatcherConfig{FilePath: path}, func(tuning config.TuningConfig) error {
		return executor.UpdateConfig(magma.Config{
			SemanticTopK:     tuning.Executor.SemanticTopK,
			MinSemanticScore: tuning.Executor.MinSemanticScore,
			Timeout:          tuning.Executor.Timeout,
		})
	})
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(ctx); err != nil {
		return nil, err
	}
	logger.Info("watching %s for tuning reloads", path)
	return watcher, nil
}

func prometheusRegistry() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}
