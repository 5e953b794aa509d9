package httppoll

import (
	"reflect"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/ingest"
)

// EndpointConfig describes one polled HTTP endpoint.
type EndpointConfig struct {
	// Name identifies the endpoint in logs and stats.
	Name string `json:"name" schema:"type:string,description:Endpoint name,required:true"`

	// URL is fetched on every polling round and used as the message key.
	URL string `json:"url" schema:"type:string,description:Endpoint URL returning JSON records,required:true"`

	// Headers are added to every request to this endpoint.
	Headers map[string]string `json:"headers,omitempty" schema:"type:object,description:Extra request headers"`
}

// Config holds configuration for the HTTP poll ingestor.
type Config struct {
	// Ports declares the NATS output for raw records.
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`

	// Endpoints are fetched on every polling round. An empty list disables
	// the poll loop; ad-hoc passes through Ingest still work.
	Endpoints []EndpointConfig `json:"endpoints" schema:"type:array,description:Endpoints polled on the interval,category:basic"`

	// PollInterval is the number of seconds between polling rounds.
	PollInterval int `json:"poll_interval" schema:"type:int,description:Seconds between polling rounds,category:timing"`

	// Timeout bounds each HTTP request in seconds.
	Timeout int `json:"timeout" schema:"type:int,description:Per-request timeout (sec),category:advanced"`

	// MaxConcurrent caps simultaneous endpoint fetches per round.
	MaxConcurrent int `json:"max_concurrent" schema:"type:int,description:Concurrent endpoint fetches,category:limits"`

	// RatePerSecond throttles requests per endpoint.
	RatePerSecond float64 `json:"rate_per_second" schema:"type:float,description:Requests per second per endpoint,category:limits"`

	// Defaults are the baseline ingestion settings applied to every pass.
	Defaults ingest.Config `json:"defaults" schema:"type:object,description:Baseline ingestion settings,category:basic"`
}

// DefaultConfig returns the default configuration for the HTTP poll ingestor.
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
		Endpoints:     []EndpointConfig{},
		PollInterval:  30,
		Timeout:       10,
		MaxConcurrent: 4,
		RatePerSecond: 1,
		Defaults:      ingest.DefaultConfig(),
	}
}

// httpPollSchema defines the configuration schema for the HTTP poll ingestor.
var httpPollSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))
