// Package main implements the entry point for the ETLStreams application.
// ETLStreams is a streaming ETL platform that pulls records from
// heterogeneous sources and drives them through validate, transform,
// enrich and load stages over NATS.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/componentregistry"
	"github.com/c360/etlstreams/config"
	"github.com/c360/etlstreams/coordinator"
	"github.com/c360/etlstreams/engine"
	"github.com/c360/etlstreams/ingest"
	"github.com/c360/etlstreams/metric"
	"github.com/c360/etlstreams/natsclient"
	"github.com/c360/etlstreams/types"
	"github.com/c360/etlstreams/warehouse"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "etlstreams"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	// Register component factories
	componentRegistry, err := setupRegistry()
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		return validateComponents(componentRegistry, cfg, logger)
	}

	// Setup core infrastructure
	ctx := context.Background()
	natsClient, metricsRegistry, err := setupInfrastructure(ctx, cfg)
	if err != nil {
		return err
	}
	defer natsClient.Close(ctx)

	store, err := openWarehouse(ctx, cfg, natsClient, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Warehouse close failed", "error", err)
		}
	}()

	metricsServer := startMetricsServer(cfg, metricsRegistry)
	if metricsServer != nil {
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				slog.Warn("Metrics server stop failed", "error", err)
			}
		}()
	}

	// Create component dependencies
	deps := component.Dependencies{
		NATSClient:      natsClient,
		Warehouse:       store,
		MetricsRegistry: metricsRegistry,
		Logger:          logger,
		Platform:        types.PlatformMeta{Org: cfg.GetOrg(), Platform: cfg.GetPlatform()},
		Security:        cfg.Security,
	}

	// Build the processing engine and the ingestion coordinator
	eng, coord, err := buildRuntime(cfg, componentRegistry, metricsRegistry, deps, logger)
	if err != nil {
		return err
	}

	if cliCfg.HealthPort > 0 {
		healthSrv := newHealthServer(cliCfg.HealthPort, eng, coord)
		healthSrv.Start()
		defer healthSrv.Stop()
	}

	// Run application with signal handling
	return runWithSignalHandling(ctx, eng, coord, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting ETLStreams (streaming record processing)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads and validates configuration
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupRegistry creates the factory registry and registers all platform
// components with it.
func setupRegistry() (*component.Registry, error) {
	componentRegistry := component.NewRegistry()
	slog.Debug("Registering core component factories (ingestors, processors)")
	if err := componentregistry.Register(componentRegistry); err != nil {
		return nil, fmt.Errorf("register components: %w", err)
	}

	factories := componentRegistry.ListFactories()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	slog.Info("Component factories registered", "count", len(names), "factories", names)

	return componentRegistry, nil
}

// validateComponents runs the engine preflight over every configured
// component and prints the full issue list instead of the first failure.
func validateComponents(registry *component.Registry, cfg *config.Config, logger *slog.Logger) error {
	validator := engine.NewValidator(registry, logger)
	result := validator.Validate(cfg.Components)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode validation result: %w", err)
	}
	fmt.Println(string(out))

	if !result.Valid() {
		return fmt.Errorf("configuration has %d component error(s)", len(result.Errors))
	}

	slog.Info("Configuration is valid", "components", result.Checked, "warnings", len(result.Warnings))
	return nil
}

// setupInfrastructure creates the metrics registry and the NATS client,
// then waits for the connection to come up.
func setupInfrastructure(ctx context.Context, cfg *config.Config) (*natsclient.Client, *metric.MetricsRegistry, error) {
	metricsRegistry := metric.NewMetricsRegistry()

	natsClient, err := createNATSClient(cfg, metricsRegistry)
	if err != nil {
		return nil, nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := connectToNATS(ctx, natsClient); err != nil {
		return nil, nil, err
	}

	slog.Info("Platform identity configured",
		"org", cfg.GetOrg(),
		"platform", cfg.GetPlatform(),
		"environment", cfg.Platform.Environment)

	return natsClient, metricsRegistry, nil
}

// createNATSClient builds the client from the NATS section of the config.
func createNATSClient(cfg *config.Config, metricsRegistry *metric.MetricsRegistry) (*natsclient.Client, error) {
	natsURL := "nats://localhost:4222"
	if len(cfg.NATS.URLs) > 0 {
		// nats.go accepts a comma-separated server list for clustering
		natsURL = strings.Join(cfg.NATS.URLs, ",")
	}

	opts := []natsclient.ClientOption{
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithMetrics(metricsRegistry),
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}
	if cfg.NATS.TLS.Enabled {
		opts = append(opts, natsclient.WithTLS(cfg.NATS.TLS.CertFile, cfg.NATS.TLS.KeyFile, cfg.NATS.TLS.CAFile))
	}

	return natsclient.NewClient(natsURL, opts...)
}

// connectToNATS establishes NATS connection and waits for it to be ready
func connectToNATS(ctx context.Context, natsClient *natsclient.Client) error {
	slog.Info("Connecting to NATS")
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := natsClient.WaitForConnection(connCtx); err != nil {
		return fmt.Errorf("NATS connection timeout: %w", err)
	}

	return nil
}

// openWarehouse opens the configured warehouse backend.
func openWarehouse(
	ctx context.Context,
	cfg *config.Config,
	natsClient *natsclient.Client,
	logger *slog.Logger,
) (warehouse.Store, error) {
	switch cfg.Warehouse.Backend {
	case config.WarehouseBackendFile:
		var opts []warehouse.FileStoreOption
		if cfg.Warehouse.BufferSize > 0 {
			opts = append(opts, warehouse.WithBufferSize(cfg.Warehouse.BufferSize))
		}
		if cfg.Warehouse.FilePrefix != "" {
			opts = append(opts, warehouse.WithFilePrefix(cfg.Warehouse.FilePrefix))
		}
		return warehouse.NewFileStore(cfg.Warehouse.Dir, logger, opts...)
	case config.WarehouseBackendKV, "":
		return warehouse.NewKVStore(ctx, natsClient, cfg.Warehouse.Bucket, logger)
	default:
		return nil, fmt.Errorf("unsupported warehouse backend %q", cfg.Warehouse.Backend)
	}
}

// startMetricsServer starts the Prometheus endpoint when enabled. The
// server runs in its own goroutine since Start blocks on the listener.
func startMetricsServer(cfg *config.Config, registry *metric.MetricsRegistry) *metric.Server {
	if !cfg.Metrics.Enabled {
		slog.Debug("Metrics server disabled in config")
		return nil
	}

	srv := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", "error", err)
		}
	}()

	slog.Info("Metrics server listening", "address", srv.Address())
	return srv
}

// buildRuntime splits the component map into the processing engine and the
// coordinator-driven ingestors. The engine owns every non-ingestor
// component; ingestors share one lifecycle under the coordinator so the
// sources start and stop as a unit.
func buildRuntime(
	cfg *config.Config,
	registry *component.Registry,
	metricsRegistry *metric.MetricsRegistry,
	deps component.Dependencies,
	logger *slog.Logger,
) (*engine.Engine, *coordinator.Coordinator, error) {
	eng, err := engine.New(registry, cfg.Components.WithoutType(types.ComponentTypeIngestor), deps)
	if err != nil {
		return nil, nil, fmt.Errorf("create engine: %w", err)
	}

	ingestors, err := createIngestors(cfg, registry, deps)
	if err != nil {
		return nil, nil, err
	}

	if len(ingestors) == 0 {
		slog.Info("No ingestion sources configured, coordinator disabled")
		return eng, nil, nil
	}

	coord, err := coordinator.New(ingestors, coordinator.Config{
		AggregateEvery: cfg.Ingestion.AggregateEvery,
		BackoffEvery:   cfg.Ingestion.BackoffEvery,
	}, metricsRegistry, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create coordinator: %w", err)
	}

	return eng, coord, nil
}

// createIngestors instantiates every enabled ingestor-type component
// through the factory registry.
func createIngestors(
	cfg *config.Config,
	registry *component.Registry,
	deps component.Dependencies,
) ([]ingest.Ingestor, error) {
	configs := cfg.Components.ByType(types.ComponentTypeIngestor)

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	ingestors := make([]ingest.Ingestor, 0, len(names))
	for _, name := range names {
		compCfg := configs[name]
		if !compCfg.Enabled {
			slog.Info("Ingestion source disabled in config", "instance", name, "factory", compCfg.Name)
			continue
		}

		comp, err := registry.CreateComponent(name, compCfg, deps)
		if err != nil {
			return nil, fmt.Errorf("create ingestor %s: %w", name, err)
		}

		ing, ok := comp.(ingest.Ingestor)
		if !ok {
			return nil, fmt.Errorf("component %s is registered as an ingestor but does not implement the contract", name)
		}

		slog.Info("Ingestion source created", "instance", name, "factory", compCfg.Name, "kind", ing.Kind())
		ingestors = append(ingestors, ing)
	}

	return ingestors, nil
}

// runWithSignalHandling starts the runtime and blocks until a shutdown
// signal arrives. The engine starts before the coordinator so processors
// are consuming before the sources begin publishing.
func runWithSignalHandling(
	ctx context.Context,
	eng *engine.Engine,
	coord *coordinator.Coordinator,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := eng.Initialize(); err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	if err := eng.Start(signalCtx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	if coord != nil {
		if err := coord.Initialize(); err != nil {
			stopEngine(eng, shutdownTimeout)
			return fmt.Errorf("initialize coordinator: %w", err)
		}
		if err := coord.Start(signalCtx); err != nil {
			stopEngine(eng, shutdownTimeout)
			return fmt.Errorf("start coordinator: %w", err)
		}
	}

	slog.Info("ETLStreams started successfully (ingestion and processing ready)")

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := shutdown(eng, coord, shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("ETLStreams shutdown complete")
	return nil
}

// shutdown stops the coordinator before the engine so the sources stop
// publishing while the processors can still drain, both bounded by one
// shared deadline.
func shutdown(eng *engine.Engine, coord *coordinator.Coordinator, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	var errs []error
	if coord != nil {
		if err := coord.Stop(timeout); err != nil {
			slog.Error("Error stopping coordinator", "error", err)
			errs = append(errs, err)
		}
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		remaining = time.Second
	}
	if err := eng.Stop(remaining); err != nil {
		slog.Error("Error stopping engine", "error", err)
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// stopEngine is the rollback path when the coordinator fails to come up.
func stopEngine(eng *engine.Engine, timeout time.Duration) {
	if err := eng.Stop(timeout); err != nil {
		slog.Warn("Engine rollback stop failed", "error", err)
	}
}

// printHelp prints help information
func printHelp() {
	printDetailedHelp()
}

// loadConfig loads configuration from the specified file path
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
