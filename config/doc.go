// Package config provides configuration management for etlstreams applications.
//
// This package handles loading, validation, and thread-safe access to
// application configuration from JSON or YAML files with environment
// variable overrides.
//
// # Core Components
//
// Config: Main configuration structure containing platform settings, NATS
// connection details, metrics and warehouse settings, ingestion timing, and
// component definitions.
//
// SafeConfig: Thread-safe wrapper using RWMutex and deep cloning to prevent
// concurrent access issues and accidental mutations.
//
// Loader: Loads configuration with layer merging (base + overrides) and
// environment variable overrides for flexible deployment scenarios.
//
// # Basic Usage
//
// Loading configuration from files with layer merging:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.json")
//	loader.AddLayer("config/production.yaml") // Overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Layers may be JSON or YAML in any mix; the file extension decides the
// decoder. A single file on top of the built-in defaults:
//
//	cfg, err := config.NewLoader().LoadFile("config.yaml")
//
// # Thread-Safe Access
//
// SafeConfig ensures thread-safe access to configuration:
//
//	safeConfig := config.NewSafeConfig(cfg)
//
//	// Read config (deep copy returned, safe to use)
//	current := safeConfig.Get()
//
//	// Replace config atomically (validated before the swap)
//	current.Metrics.Port = 9100
//	if err := safeConfig.Update(current); err != nil {
//		log.Fatal(err)
//	}
//
// # Environment Variable Overrides
//
// Configuration values can be overridden using environment variables:
//
//	# Override platform ID
//	export ETLSTREAMS_PLATFORM_ID="prod-cluster-01"
//
//	# Override NATS URLs (comma-separated)
//	export ETLSTREAMS_NATS_URLS="nats://server1:4222,nats://server2:4222"
//
//	# Override the metrics listen port
//	export ETLSTREAMS_METRICS_PORT="9100"
//
// Overrides apply after all file layers, so they win regardless of what the
// files say.
//
// # Layer Merging
//
// Configuration layers are merged with last-wins semantics:
//
//	base.json:
//	  {"platform": {"id": "dev", "environment": "dev"}}
//
//	production.yaml:
//	  platform:
//	    id: prod
//
//	Result:
//	  {"platform": {"id": "prod", "environment": "dev"}}
//
// Duration fields (nats.reconnect_wait, ingestion.aggregate_every,
// ingestion.backoff_every) accept Go duration strings plus a "d" suffix for
// days, so "90s", "5m", and "1d" all parse.
//
// # Security
//
// The package includes security validation:
//   - File size limits (10MB max) to prevent memory exhaustion
//   - JSON depth validation (100 levels max) to prevent DoS attacks
//   - Path validation to prevent directory traversal
//   - Regular file checks (no symlinks or device files)
//
// # Configuration Structure
//
// The main Config struct contains:
//
//	type Config struct {
//	    Platform   PlatformConfig   // Platform metadata
//	    Security   security.Config  // TLS client settings
//	    NATS       NATSConfig       // Message bus connection
//	    Metrics    MetricsConfig    // Prometheus endpoint
//	    Warehouse  WarehouseConfig  // Record warehouse backend
//	    Ingestion  IngestionConfig  // Coordinator timing
//	    Components ComponentConfigs // Component definitions
//	}
//
// See example_config.json for a complete working configuration.
package config
