package csvfile

import (
	"reflect"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/ingest"
)

// Config holds configuration for the CSV file ingestor.
type Config struct {
	// Ports declares the file input and the NATS output for raw records.
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`

	// Defaults are the baseline ingestion settings applied to every pass.
	// A per-call config passed to Ingest overrides them field by field.
	Defaults ingest.Config `json:"defaults" schema:"type:object,description:Baseline ingestion settings,category:basic"`
}

// DefaultConfig returns the default configuration for the CSV file ingestor.
func DefaultConfig() Config {
	inputDefs := []component.PortDefinition{
		{
			Name:        "file_input",
			Type:        "file",
			Required:    false,
			Description: "CSV file or directory to ingest (set per pass when empty)",
		},
	}

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
			Inputs:  inputDefs,
			Outputs: outputDefs,
		},
		Defaults: ingest.DefaultConfig(),
	}
}

// csvSchema defines the configuration schema for the CSV file ingestor.
var csvSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))
