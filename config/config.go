package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/etlstreams/pkg/security"
	"github.com/c360/etlstreams/types"
)

// ComponentConfigs holds component instance configurations keyed by
// instance name. Instance names become NATS-visible identifiers, so the
// registry validates them before creation.
type ComponentConfigs map[string]types.ComponentConfig

// ByType returns the subset of configs whose component type matches t.
// The result is a fresh map; mutating it does not touch the source.
func (cc ComponentConfigs) ByType(t types.ComponentType) ComponentConfigs {
	out := make(ComponentConfigs)
	for name, cfg := range cc {
		if cfg.Type == t {
			out[name] = cfg
		}
	}
	return out
}

// WithoutType returns the subset of configs whose component type differs
// from t.
func (cc ComponentConfigs) WithoutType(t types.ComponentType) ComponentConfigs {
	out := make(ComponentConfigs)
	for name, cfg := range cc {
		if cfg.Type != t {
			out[name] = cfg
		}
	}
	return out
}

// Config is the root configuration for an etlstreams node.
type Config struct {
	Version    string           `json:"version,omitempty"`
	Platform   PlatformConfig   `json:"platform"`
	Security   security.Config  `json:"security,omitempty"`
	NATS       NATSConfig       `json:"nats"`
	Metrics    MetricsConfig    `json:"metrics,omitempty"`
	Warehouse  WarehouseConfig  `json:"warehouse,omitempty"`
	Ingestion  IngestionConfig  `json:"ingestion,omitempty"`
	Components ComponentConfigs `json:"components,omitempty"`
}

// PlatformConfig identifies the node and its place in the deployment.
// Org and ID become NATS subject parts, so both are validated against
// subject grammar.
type PlatformConfig struct {
	Org          string   `json:"org"`                    // Organization namespace, e.g. "c360"
	ID           string   `json:"id"`                     // Node identifier, e.g. "etl-east-1"
	Type         string   `json:"type,omitempty"`         // Node role, e.g. "ingest-node"
	Region       string   `json:"region,omitempty"`       // Deployment region
	Environment  string   `json:"environment,omitempty"`  // dev, staging, prod
	InstanceID   string   `json:"instance_id,omitempty"`  // Unique instance, preferred over ID when set
	Capabilities []string `json:"capabilities,omitempty"` // Source kinds this node can run
}

// NATSConfig holds message bus connection settings.
type NATSConfig struct {
	URLs          []string        `json:"urls"`
	MaxReconnects int             `json:"max_reconnects"`
	ReconnectWait time.Duration   `json:"reconnect_wait"`
	Username      string          `json:"username,omitempty"`
	Password      string          `json:"password,omitempty"`
	Token         string          `json:"token,omitempty"`
	TLS           NATSTLSConfig   `json:"tls,omitempty"`
	JetStream     JetStreamConfig `json:"jetstream,omitempty"`
}

// NATSTLSConfig holds TLS settings for the NATS connection itself.
type NATSTLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty"`
}

// JetStreamConfig holds JetStream settings for the warehouse KV bucket
// and durable subscriptions.
type JetStreamConfig struct {
	Enabled           bool   `json:"enabled"`
	Domain            string `json:"domain,omitempty"`
	MaxMemory         int64  `json:"max_memory,omitempty"`
	MaxFileStore      int64  `json:"max_file_store,omitempty"`
	RetentionPolicy   string `json:"retention_policy,omitempty"`
	ReplicationFactor int    `json:"replication_factor,omitempty"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// WarehouseConfig selects and tunes the record warehouse backend.
// Backend "kv" loads records into a JetStream KV bucket; "file" appends
// JSONL files under Dir.
type WarehouseConfig struct {
	Backend    string `json:"backend,omitempty"`
	Bucket     string `json:"bucket,omitempty"`      // kv backend
	Dir        string `json:"dir,omitempty"`         // file backend
	FilePrefix string `json:"file_prefix,omitempty"` // file backend
	BufferSize int    `json:"buffer_size,omitempty"` // file backend write buffer, bytes
}

// IngestionConfig holds coordinator timing. Values accept Go duration
// strings in config files ("30s", "5m") plus a day suffix ("1d").
type IngestionConfig struct {
	AggregateEvery time.Duration `json:"aggregate_every,omitempty"`
	BackoffEvery   time.Duration `json:"backoff_every,omitempty"`
}

// Warehouse backend names accepted by Validate.
const (
	WarehouseBackendKV   = "kv"
	WarehouseBackendFile = "file"
)

// Validate checks the configuration for deployment-blocking mistakes.
// It normalizes Platform.Org to lowercase as a side effect.
func (c *Config) Validate() error {
	if c.Platform.Org == "" {
		return fmt.Errorf("platform.org is required")
	}
	c.Platform.Org = strings.ToLower(c.Platform.Org)
	if !isValidNATSSubjectPart(c.Platform.Org) {
		return fmt.Errorf("platform.org '%s' is not valid for NATS subjects", c.Platform.Org)
	}

	if c.Platform.ID == "" {
		return fmt.Errorf("platform.id is required")
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	switch c.Warehouse.Backend {
	case "", WarehouseBackendKV:
	case WarehouseBackendFile:
		if c.Warehouse.Dir == "" {
			return fmt.Errorf("warehouse.dir is required for the file backend")
		}
	default:
		return fmt.Errorf("warehouse.backend '%s' is not supported (want kv or file)", c.Warehouse.Backend)
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port %d is out of range", c.Metrics.Port)
	}

	if c.Ingestion.AggregateEvery < 0 {
		return fmt.Errorf("ingestion.aggregate_every cannot be negative")
	}
	if c.Ingestion.BackoffEvery < 0 {
		return fmt.Errorf("ingestion.backoff_every cannot be negative")
	}

	for name, comp := range c.Components {
		if err := comp.Validate(); err != nil {
			return fmt.Errorf("component %s: %w", name, err)
		}
	}

	return nil
}

// validateSecurity checks client TLS settings. Ingest endpoints are the
// only TLS surface; there is no server socket to configure.
func (c *Config) validateSecurity() error {
	client := c.Security.TLS.Client

	for _, caFile := range client.CAFiles {
		if _, err := os.Stat(caFile); err != nil {
			return fmt.Errorf("security.tls.client CA file %s: %w", caFile, err)
		}
	}

	if client.MTLS.Enabled {
		if client.MTLS.CertFile == "" || client.MTLS.KeyFile == "" {
			return fmt.Errorf("security.tls.client.mtls requires cert_file and key_file")
		}
		if _, err := os.Stat(client.MTLS.CertFile); err != nil {
			return fmt.Errorf("security.tls.client.mtls cert_file: %w", err)
		}
		if _, err := os.Stat(client.MTLS.KeyFile); err != nil {
			return fmt.Errorf("security.tls.client.mtls key_file: %w", err)
		}
	}

	switch client.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("security.tls.client.min_version '%s' is not supported (want 1.2 or 1.3)", client.MinVersion)
	}

	if client.InsecureSkipVerify {
		fmt.Fprintln(os.Stderr, "WARNING: security.tls.client.insecure_skip_verify is enabled; certificate checks are OFF. Never use this outside dev/test.")
	}

	return nil
}

// GetOrg returns the organization namespace.
func (c *Config) GetOrg() string {
	return c.Platform.Org
}

// GetPlatform returns the effective platform identifier, preferring
// InstanceID over ID so replicated nodes stay distinguishable.
func (c *Config) GetPlatform() string {
	if c.Platform.InstanceID != "" {
		return c.Platform.InstanceID
	}
	return c.Platform.ID
}

// String summarizes the config for logs. Credentials are deliberately
// omitted.
func (c *Config) String() string {
	return fmt.Sprintf("Config{platform=%s/%s nats=%v warehouse=%s components=%d}",
		c.Platform.Org, c.GetPlatform(), c.NATS.URLs, c.Warehouse.Backend, len(c.Components))
}

// Clone returns a deep copy via a JSON round trip. Cloning nil yields an
// empty config so callers never hold a shared pointer by accident.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		return &Config{}
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		return &Config{}
	}

	return &clone
}

// SaveToFile writes the configuration to path. A .yaml or .yml extension
// selects YAML output; anything else writes indented JSON.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if isYAMLPath(path) {
		// Route through the JSON representation so the json tags stay
		// the single naming authority for both formats.
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("remap config for YAML: %w", err)
		}
		data, err = yaml.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal config YAML: %w", err)
		}
	}

	return safeWriteFile(path, data)
}

// SafeConfig wraps Config for concurrent access. Get returns deep
// copies; Update validates before swapping, so readers never observe a
// half-written or invalid config.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig wraps cfg. A nil cfg becomes an empty config.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration.
func (s *SafeConfig) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

// Update validates and atomically replaces the configuration. The
// current config is untouched when validation fails.
func (s *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cannot update with nil config")
	}

	candidate := cfg.Clone()
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	s.mu.Lock()
	s.config = candidate
	s.mu.Unlock()
	return nil
}

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "ETLSTREAMS"

// Loader loads configuration from layered JSON or YAML files with
// environment overrides. Layers merge last-wins on top of built-in
// defaults; env vars win over every layer.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader returns a loader with no layers and validation disabled.
func NewLoader() *Loader {
	return &Loader{envPrefix: EnvPrefix}
}

// AddLayer appends a config file layer. Later layers override earlier
// ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation toggles Config.Validate after loading.
func (l *Loader) EnableValidation(enabled bool) {
	l.validation = enabled
}

// Load merges defaults, layers, and environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := l.getDefaults()

	for _, layer := range l.layers {
		raw, err := l.loadRaw(layer)
		if err != nil {
			return nil, fmt.Errorf("load layer %s: %w", layer, err)
		}
		if err := l.mergeFromMap(cfg, raw); err != nil {
			return nil, fmt.Errorf("merge layer %s: %w", layer, err)
		}
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// LoadFile loads a single config file on top of defaults, ignoring any
// configured layers.
func (l *Loader) LoadFile(path string) (*Config, error) {
	cfg := l.getDefaults()

	raw, err := l.loadRaw(path)
	if err != nil {
		return nil, err
	}
	if err := l.mergeFromMap(cfg, raw); err != nil {
		return nil, err
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// getDefaults returns the built-in base layer: a local single-node setup
// that runs with nothing but platform identity filled in.
func (l *Loader) getDefaults() *Config {
	return &Config{
		Platform: PlatformConfig{
			Type:        "etl-node",
			Environment: "dev",
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			JetStream: JetStreamConfig{
				Enabled: true,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Warehouse: WarehouseConfig{
			Backend: WarehouseBackendKV,
		},
		Ingestion: IngestionConfig{
			AggregateEvery: 30 * time.Second,
			BackoffEvery:   time.Minute,
		},
	}
}

// loadRaw reads and decodes one config file into a generic map. YAML
// files decode directly; JSON files pass the depth guard first. Duration
// strings are normalized before merging.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]any)
	if isYAMLPath(path) {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse YAML config: %w", err)
		}
	} else {
		if err := validateJSONDepth(data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse JSON config: %w", err)
		}
	}

	if err := parseDurations(raw); err != nil {
		return nil, err
	}

	return raw, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// parseDurations rewrites duration strings in the raw map to nanosecond
// numbers so the JSON merge can decode them into time.Duration fields.
func parseDurations(raw map[string]any) error {
	if nats, ok := raw["nats"].(map[string]any); ok {
		if err := parseDurationKey(nats, "nats", "reconnect_wait"); err != nil {
			return err
		}
	}
	if ingestion, ok := raw["ingestion"].(map[string]any); ok {
		for _, key := range []string{"aggregate_every", "backoff_every"} {
			if err := parseDurationKey(ingestion, "ingestion", key); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseDurationKey(section map[string]any, sectionName, key string) error {
	s, ok := section[key].(string)
	if !ok {
		return nil // already numeric or absent
	}
	d, err := parseDurationWithDays(s)
	if err != nil {
		return fmt.Errorf("parse %s.%s: %w", sectionName, key, err)
	}
	section[key] = float64(d)
	return nil
}

// parseDurationWithDays extends time.ParseDuration with a day suffix so
// operators can write "1d" instead of "24h".
func parseDurationWithDays(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.ParseFloat(strings.TrimSuffix(s, "d"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(days * 24 * float64(time.Hour)), nil
	}
	return time.ParseDuration(s)
}

// mergeFromMap merges a raw layer into cfg through the JSON
// representation: current config -> map, deep merge, map -> config.
func (l *Loader) mergeFromMap(cfg *Config, raw map[string]any) error {
	current, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal current config: %w", err)
	}

	currentMap := make(map[string]any)
	if err := json.Unmarshal(current, &currentMap); err != nil {
		return fmt.Errorf("remap current config: %w", err)
	}

	merged := deepMergeMaps(currentMap, raw)

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal merged config: %w", err)
	}

	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode merged config: %w", err)
	}

	*cfg = out
	return nil
}

// deepMergeMaps merges override into base recursively. Nil override
// values are skipped so a layer cannot accidentally erase a section by
// writing `"nats": null`.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if overrideMap, ok := v.(map[string]any); ok {
			if baseMap, ok := result[k].(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

// mergeConfigs merges two Config values, override winning field-wise.
// Zero-valued override fields leave the base value in place.
func (l *Loader) mergeConfigs(base, override *Config) *Config {
	merged := base.Clone()

	baseMap := make(map[string]any)
	overrideMap := make(map[string]any)

	baseData, err := json.Marshal(merged)
	if err != nil {
		return merged
	}
	overrideData, err := json.Marshal(override)
	if err != nil {
		return merged
	}
	if err := json.Unmarshal(baseData, &baseMap); err != nil {
		return merged
	}
	if err := json.Unmarshal(overrideData, &overrideMap); err != nil {
		return merged
	}

	// Zero values marshal as empty strings and zeros; strip them so the
	// override only contributes fields it actually set.
	removeZeroValues(overrideMap)

	result := deepMergeMaps(baseMap, overrideMap)

	data, err := json.Marshal(result)
	if err != nil {
		return merged
	}

	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		return merged
	}
	return &out
}

// removeZeroValues strips empty strings, zero numbers, false bools, and
// empty containers in place so they do not clobber base values during a
// merge.
func removeZeroValues(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			delete(m, k)
		case string:
			if val == "" {
				delete(m, k)
			}
		case float64:
			if val == 0 {
				delete(m, k)
			}
		case bool:
			if !val {
				delete(m, k)
			}
		case map[string]any:
			removeZeroValues(val)
			if len(val) == 0 {
				delete(m, k)
			}
		case []any:
			if len(val) == 0 {
				delete(m, k)
			}
		}
	}
}

// applyEnvOverrides applies ETLSTREAMS_* environment variables on top of
// the loaded config. Unset variables leave the file values alone.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if v, ok := l.envValue("PLATFORM_ID"); ok {
		cfg.Platform.ID = v
	}
	if v, ok := l.envValue("PLATFORM_TYPE"); ok {
		cfg.Platform.Type = v
	}
	if v, ok := l.envValue("PLATFORM_REGION"); ok {
		cfg.Platform.Region = v
	}
	if v, ok := l.envValue("PLATFORM_ENVIRONMENT"); ok {
		cfg.Platform.Environment = v
	}

	if v, ok := l.envValue("NATS_URLS"); ok {
		urls := strings.Split(v, ",")
		for i := range urls {
			urls[i] = strings.TrimSpace(urls[i])
		}
		cfg.NATS.URLs = urls
	}
	if v, ok := l.envValue("NATS_USERNAME"); ok {
		cfg.NATS.Username = v
	}
	if v, ok := l.envValue("NATS_PASSWORD"); ok {
		cfg.NATS.Password = v
	}
	if v, ok := l.envValue("NATS_TOKEN"); ok {
		cfg.NATS.Token = v
	}

	if v, ok := l.envValue("WAREHOUSE_BACKEND"); ok {
		cfg.Warehouse.Backend = v
	}
	if v, ok := l.envValue("WAREHOUSE_BUCKET"); ok {
		cfg.Warehouse.Bucket = v
	}
	if v, ok := l.envValue("METRICS_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

// envValue reads a prefixed environment variable, rejecting values that
// fail the env var safety checks.
func (l *Loader) envValue(key string) (string, bool) {
	name := l.envPrefix + "_" + key
	v := os.Getenv(name)
	if v == "" {
		return "", false
	}
	if err := validateEnvVar(name, v); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: ignoring %s: %v\n", name, err)
		return "", false
	}
	return v, true
}

// isValidNATSSubjectPart reports whether s can be embedded in a NATS
// subject: alphanumerics plus '-', '_', '.' only.
func isValidNATSSubjectPart(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
