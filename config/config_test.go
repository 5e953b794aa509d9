package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/etlstreams/types"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// Test basic config structure
func TestConfig_Structure(t *testing.T) {
	cfg := &Config{
		Platform: PlatformConfig{
			Org:          "c360",
			ID:           "etl-east-1",
			Type:         "ingest-node",
			Capabilities: []string{"csv", "api"},
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
	}

	assert.Equal(t, "etl-east-1", cfg.Platform.ID)
	assert.Equal(t, "ingest-node", cfg.Platform.Type)
	assert.Contains(t, cfg.Platform.Capabilities, "csv")
}

// Test loading config from JSON file
func TestLoader_LoadJSON(t *testing.T) {
	configFile := writeConfigFile(t, "config.json", `{
		"platform": {
			"org": "c360",
			"id": "etl-east-1",
			"type": "ingest-node",
			"environment": "staging",
			"capabilities": ["csv", "api", "streaming"]
		},
		"nats": {
			"urls": ["nats://localhost:4222", "nats://localhost:4223"],
			"max_reconnects": 10,
			"reconnect_wait": "5s"
		},
		"warehouse": {
			"backend": "file",
			"dir": "/var/lib/etlstreams/warehouse"
		},
		"ingestion": {
			"aggregate_every": "10s"
		},
		"components": {
			"csv-ingest": {"type": "ingestor", "name": "csv_ingestor", "enabled": true},
			"stream-proc": {"type": "processor", "name": "stream_processor", "enabled": true}
		}
	}`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(configFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "etl-east-1", cfg.Platform.ID)
	assert.Equal(t, "ingest-node", cfg.Platform.Type)
	assert.Equal(t, "staging", cfg.Platform.Environment)
	assert.Len(t, cfg.Platform.Capabilities, 3)
	assert.Len(t, cfg.NATS.URLs, 2)
	assert.Equal(t, 10, cfg.NATS.MaxReconnects)
	assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, WarehouseBackendFile, cfg.Warehouse.Backend)
	assert.Equal(t, "/var/lib/etlstreams/warehouse", cfg.Warehouse.Dir)
	assert.Equal(t, 10*time.Second, cfg.Ingestion.AggregateEvery)
	assert.Equal(t, time.Minute, cfg.Ingestion.BackoffEvery) // default survives partial section

	require.Len(t, cfg.Components, 2)
	assert.Equal(t, types.ComponentTypeIngestor, cfg.Components["csv-ingest"].Type)
	assert.Equal(t, "csv_ingestor", cfg.Components["csv-ingest"].Name)
	assert.True(t, cfg.Components["stream-proc"].Enabled)
}

// Test loading config from YAML file
func TestLoader_LoadYAML(t *testing.T) {
	configFile := writeConfigFile(t, "config.yaml", `
platform:
  org: c360
  id: etl-west-2
  type: processing-node
nats:
  urls:
    - nats://nats-1:4222
  reconnect_wait: 3s
ingestion:
  aggregate_every: 1m
  backoff_every: 2m
components:
  api-ingest:
    type: ingestor
    name: api_ingestor
    enabled: true
    config:
      poll_interval_seconds: 30
`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(configFile)
	require.NoError(t, err)

	assert.Equal(t, "etl-west-2", cfg.Platform.ID)
	assert.Equal(t, []string{"nats://nats-1:4222"}, cfg.NATS.URLs)
	assert.Equal(t, 3*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, time.Minute, cfg.Ingestion.AggregateEvery)
	assert.Equal(t, 2*time.Minute, cfg.Ingestion.BackoffEvery)

	apiIngest, ok := cfg.Components["api-ingest"]
	require.True(t, ok)
	assert.Equal(t, types.ComponentTypeIngestor, apiIngest.Type)
	assert.True(t, apiIngest.Enabled)

	// Component config survives the YAML->JSON remap as raw JSON.
	var compCfg map[string]any
	require.NoError(t, json.Unmarshal(apiIngest.Config, &compCfg))
	assert.Equal(t, 30, GetInt(compCfg, "poll_interval_seconds", 0))
}

// Test default values
func TestLoader_Defaults(t *testing.T) {
	configFile := writeConfigFile(t, "config.json", `{
		"platform": {
			"org": "c360",
			"id": "etl-minimal"
		}
	}`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(configFile)
	require.NoError(t, err)

	assert.Equal(t, "etl-node", cfg.Platform.Type)                    // default role
	assert.Equal(t, "dev", cfg.Platform.Environment)                  // default environment
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.NATS.URLs) // default URL
	assert.Equal(t, -1, cfg.NATS.MaxReconnects)                       // default infinite reconnects
	assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWait)            // default wait
	assert.True(t, cfg.NATS.JetStream.Enabled)                        // default enabled
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, WarehouseBackendKV, cfg.Warehouse.Backend)
	assert.Equal(t, 30*time.Second, cfg.Ingestion.AggregateEvery)
	assert.Equal(t, time.Minute, cfg.Ingestion.BackoffEvery)
}

// Test environment variable overrides
func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("ETLSTREAMS_PLATFORM_ID", "env-node")
	t.Setenv("ETLSTREAMS_NATS_URLS", "nats://env-1:4222, nats://env-2:4222")
	t.Setenv("ETLSTREAMS_NATS_USERNAME", "testuser")
	t.Setenv("ETLSTREAMS_NATS_PASSWORD", "testpass")
	t.Setenv("ETLSTREAMS_WAREHOUSE_BUCKET", "etl-warehouse-env")
	t.Setenv("ETLSTREAMS_METRICS_PORT", "9191")

	configFile := writeConfigFile(t, "config.json", `{
		"platform": {
			"org": "c360",
			"id": "file-node",
			"type": "ingest-node"
		}
	}`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(configFile)
	require.NoError(t, err)

	// Env vars should override the file
	assert.Equal(t, "env-node", cfg.Platform.ID)
	assert.Equal(t, []string{"nats://env-1:4222", "nats://env-2:4222"}, cfg.NATS.URLs)
	assert.Equal(t, "testuser", cfg.NATS.Username)
	assert.Equal(t, "testpass", cfg.NATS.Password)
	assert.Equal(t, "etl-warehouse-env", cfg.Warehouse.Bucket)
	assert.Equal(t, 9191, cfg.Metrics.Port)

	// File value should remain when no env override
	assert.Equal(t, "ingest-node", cfg.Platform.Type)
}

// Test validation
func TestLoader_Validation(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		wantError string
	}{
		{
			name: "missing org",
			config: `{
				"platform": {
					"id": "node1"
				}
			}`,
			wantError: "platform.org is required",
		},
		{
			name: "missing platform ID",
			config: `{
				"platform": {
					"org": "c360"
				}
			}`,
			wantError: "platform.id is required",
		},
		{
			name: "empty component factory name",
			config: `{
				"platform": {
					"org": "c360",
					"id": "node1"
				},
				"components": {
					"broken": {
						"type": "ingestor",
						"name": "",
						"enabled": true
					}
				}
			}`,
			wantError: "component factory name cannot be empty",
		},
		{
			name: "unknown warehouse backend",
			config: `{
				"platform": {
					"org": "c360",
					"id": "node1"
				},
				"warehouse": {
					"backend": "s3"
				}
			}`,
			wantError: "warehouse.backend 's3' is not supported",
		},
		{
			name: "file backend without dir",
			config: `{
				"platform": {
					"org": "c360",
					"id": "node1"
				},
				"warehouse": {
					"backend": "file"
				}
			}`,
			wantError: "warehouse.dir is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := writeConfigFile(t, "config.json", tt.config)

			loader := NewLoader()
			loader.EnableValidation(true)

			_, err := loader.LoadFile(configFile)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

// Test layered loading: later layers override earlier ones
func TestLoader_Layers(t *testing.T) {
	dir := t.TempDir()

	basePath := filepath.Join(dir, "base.json")
	require.NoError(t, os.WriteFile(basePath, []byte(`{
		"platform": {"org": "c360", "id": "base-node", "type": "ingest-node"},
		"nats": {"max_reconnects": 3}
	}`), 0644))

	overridePath := filepath.Join(dir, "production.yaml")
	require.NoError(t, os.WriteFile(overridePath, []byte(`
platform:
  id: prod-node
warehouse:
  backend: file
  dir: /data/warehouse
`), 0644))

	loader := NewLoader()
	loader.AddLayer(basePath)
	loader.AddLayer(overridePath)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "prod-node", cfg.Platform.ID)                // from override
	assert.Equal(t, "ingest-node", cfg.Platform.Type)            // from base
	assert.Equal(t, 3, cfg.NATS.MaxReconnects)                   // from base
	assert.Equal(t, WarehouseBackendFile, cfg.Warehouse.Backend) // from override
}

// Test merging programmatically built configs
func TestLoader_MergeConfigs(t *testing.T) {
	loader := NewLoader()

	base := &Config{
		Platform: PlatformConfig{
			Type:   "etl-node",
			Region: "us-east",
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
		},
		Components: ComponentConfigs{
			"csv-ingest": types.ComponentConfig{
				Type:    types.ComponentTypeIngestor,
				Name:    "csv_ingestor",
				Enabled: true,
				Config:  json.RawMessage(`{}`),
			},
		},
	}

	override := &Config{
		Platform: PlatformConfig{
			ID:           "merge-node",
			Type:         "ingest-node",
			Capabilities: []string{"csv"},
		},
		NATS: NATSConfig{
			MaxReconnects: 5,
			Username:      "testuser",
		},
		Components: ComponentConfigs{
			"api-ingest": types.ComponentConfig{
				Type:    types.ComponentTypeIngestor,
				Name:    "api_ingestor",
				Enabled: true,
				Config:  json.RawMessage(`{}`),
			},
		},
	}

	merged := loader.mergeConfigs(base, override)

	assert.Equal(t, "merge-node", merged.Platform.ID)              // from override
	assert.Equal(t, "ingest-node", merged.Platform.Type)           // from override
	assert.Equal(t, "us-east", merged.Platform.Region)             // from base
	assert.Equal(t, []string{"csv"}, merged.Platform.Capabilities) // from override

	assert.Equal(t, []string{"nats://localhost:4222"}, merged.NATS.URLs) // from base
	assert.Equal(t, 5, merged.NATS.MaxReconnects)                        // from override
	assert.Equal(t, "testuser", merged.NATS.Username)                    // from override

	assert.True(t, merged.Components["csv-ingest"].Enabled) // from base
	assert.True(t, merged.Components["api-ingest"].Enabled) // from override
}

// Test saving configuration back to file
func TestConfig_Save(t *testing.T) {
	cfg := &Config{
		Platform: PlatformConfig{
			Org:          "c360",
			ID:           "save-test",
			Type:         "ingest-node",
			Region:       "us-west",
			Capabilities: []string{"csv", "streaming"},
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://server1:4222", "nats://server2:4222"},
			MaxReconnects: 10,
		},
		Components: ComponentConfigs{
			"device-ingest": types.ComponentConfig{
				Type:    types.ComponentTypeIngestor,
				Name:    "device_ingestor",
				Enabled: true,
				Config:  json.RawMessage(`{}`),
			},
		},
	}

	for _, name := range []string{"saved.json", "saved.yaml"} {
		t.Run(name, func(t *testing.T) {
			saveFile := filepath.Join(t.TempDir(), name)
			require.NoError(t, cfg.SaveToFile(saveFile))

			loader := NewLoader()
			loaded, err := loader.LoadFile(saveFile)
			require.NoError(t, err)

			assert.Equal(t, cfg.Platform.ID, loaded.Platform.ID)
			assert.Equal(t, cfg.Platform.Type, loaded.Platform.Type)
			assert.Equal(t, cfg.Platform.Region, loaded.Platform.Region)
			assert.Equal(t, cfg.Platform.Capabilities, loaded.Platform.Capabilities)
			assert.Equal(t, cfg.NATS.URLs, loaded.NATS.URLs)
			assert.Equal(t, cfg.NATS.MaxReconnects, loaded.NATS.MaxReconnects)
			assert.Equal(t, cfg.Components["device-ingest"].Name, loaded.Components["device-ingest"].Name)
			assert.True(t, loaded.Components["device-ingest"].Enabled)
		})
	}
}

// Test loading the example config shipped with the package
func TestLoader_ExampleConfig(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.LoadFile("example_config.json")
	require.NoError(t, err)

	assert.Equal(t, "etl-demo", cfg.Platform.ID)
	assert.Equal(t, "ingest-node", cfg.Platform.Type)

	assert.Equal(t, 5, len(cfg.Components), "should have 5 components configured")

	csvIngest, exists := cfg.Components["csv-ingest"]
	assert.True(t, exists, "should have csv-ingest component")
	assert.Equal(t, types.ComponentTypeIngestor, csvIngest.Type)
	assert.Equal(t, "csv_ingestor", csvIngest.Name)
	assert.True(t, csvIngest.Enabled)

	streamProc, exists := cfg.Components["stream-proc"]
	assert.True(t, exists, "should have stream-proc component")
	assert.Equal(t, types.ComponentTypeProcessor, streamProc.Type)
	assert.Equal(t, "stream_processor", streamProc.Name)
	assert.True(t, streamProc.Enabled)

	deviceIngest, exists := cfg.Components["device-ingest"]
	assert.True(t, exists, "should have device-ingest component")
	assert.Equal(t, types.ComponentTypeIngestor, deviceIngest.Type)
	assert.Equal(t, "device_ingestor", deviceIngest.Name)
	assert.False(t, deviceIngest.Enabled, "device feed is opt-in in the example")

	require.NoError(t, cfg.Validate())
}

// Test component partitioning helpers
func TestComponentConfigs_ByType(t *testing.T) {
	components := ComponentConfigs{
		"csv-ingest":  types.ComponentConfig{Type: types.ComponentTypeIngestor, Name: "csv_ingestor", Enabled: true},
		"api-ingest":  types.ComponentConfig{Type: types.ComponentTypeIngestor, Name: "api_ingestor", Enabled: true},
		"stream-proc": types.ComponentConfig{Type: types.ComponentTypeProcessor, Name: "stream_processor", Enabled: true},
	}

	ingestors := components.ByType(types.ComponentTypeIngestor)
	assert.Len(t, ingestors, 2)
	assert.Contains(t, ingestors, "csv-ingest")
	assert.Contains(t, ingestors, "api-ingest")

	rest := components.WithoutType(types.ComponentTypeIngestor)
	assert.Len(t, rest, 1)
	assert.Contains(t, rest, "stream-proc")

	// Result maps are copies
	delete(ingestors, "csv-ingest")
	assert.Contains(t, components, "csv-ingest")
}

func TestParseDurationWithDays(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"1d", 24 * time.Hour, false},
		{"1.5d", 36 * time.Hour, false},
		{"bogus", 0, true},
		{"xd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDurationWithDays(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_RejectsBadDuration(t *testing.T) {
	configFile := writeConfigFile(t, "config.json", `{
		"platform": {"org": "c360", "id": "node1"},
		"nats": {"reconnect_wait": "soon"}
	}`)

	loader := NewLoader()
	_, err := loader.LoadFile(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nats.reconnect_wait")
}

func TestConfig_String_OmitsCredentials(t *testing.T) {
	cfg := &Config{
		Platform: PlatformConfig{Org: "c360", ID: "node1"},
		NATS: NATSConfig{
			URLs:     []string{"nats://localhost:4222"},
			Username: "svc-user",
			Password: "super-secret",
			Token:    "tok123",
		},
	}

	s := cfg.String()
	assert.Contains(t, s, "c360")
	assert.NotContains(t, s, "super-secret")
	assert.NotContains(t, s, "tok123")
}
