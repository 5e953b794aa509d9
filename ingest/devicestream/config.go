package devicestream

import (
	"reflect"
	"time"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/ingest"
)

// ReconnectConfig holds reconnection configuration for the device feed.
type ReconnectConfig struct {
	Enabled         bool          `json:"enabled" schema:"type:bool,description:Enable automatic reconnection,category:basic"`
	MaxRetries      int           `json:"max_retries" schema:"type:int,description:Maximum reconnection attempts (0=unlimited),category:limits"`
	InitialInterval time.Duration `json:"initial_interval" schema:"type:duration,description:Initial retry interval,category:timing"`
	MaxInterval     time.Duration `json:"max_interval" schema:"type:duration,description:Maximum retry interval,category:timing"`
	Multiplier      float64       `json:"multiplier" schema:"type:float,description:Backoff multiplier,category:advanced"`
}

// Config holds configuration for the device-stream ingestor.
type Config struct {
	// Ports declares the NATS output for raw records.
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`

	// URL is the WebSocket feed to connect to (ws:// or wss://).
	URL string `json:"url" schema:"type:string,description:Device feed WebSocket URL,category:basic"`

	// BufferSize caps frames waiting between the read and publish loops.
	// When full the oldest frames are dropped.
	BufferSize int `json:"buffer_size" schema:"type:int,description:Frame ring buffer capacity,category:limits"`

	// Reconnect controls automatic reconnection to the feed.
	Reconnect *ReconnectConfig `json:"reconnect,omitempty" schema:"type:object,description:Reconnection configuration,category:reliability"`

	// Defaults are the baseline ingestion settings applied to every pass.
	Defaults ingest.Config `json:"defaults" schema:"type:object,description:Baseline ingestion settings,category:basic"`
}

// DefaultConfig returns the default configuration for the device-stream ingestor.
func DefaultConfig() Config {
	outputDefs := []component.PortDefinition{
		{
			Name:        "nats_output",
			Type:        "nats",
			Subject:     ingest.RawSubject,
			Interface:   "etl.record.v1",
			Required:    true,
			Description: "NATS subject for ingested raw records",
		},
	}

	return Config{
		Ports: &component.PortConfig{
			Outputs: outputDefs,
		},
		URL:        "ws://localhost:8080/stream",
		BufferSize: 1024,
		Reconnect: &ReconnectConfig{
			Enabled:         true,
			MaxRetries:      10,
			InitialInterval: 1 * time.Second,
			MaxInterval:     60 * time.Second,
			Multiplier:      2.0,
		},
		Defaults: ingest.DefaultConfig(),
	}
}

// streamSchema defines the configuration schema for the device-stream ingestor.
var streamSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))
