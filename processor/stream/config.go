package stream

import (
	"reflect"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/ingest"
	"github.com/c360/etlstreams/pipeline"
	"github.com/c360/etlstreams/pkg/cache"
)

// EnrichConfig configures the enrich stage: a reference-data join plus
// static fields. Reference rows come from an in-config lookup table or,
// when KVBucket names a bucket, from NATS KV fronted by a TTL cache.
type EnrichConfig struct {
	// On names the record field whose value keys the reference lookup.
	On string `json:"on,omitempty" schema:"type:string,description:Join field for reference lookups"`

	// Lookup is an in-config reference table keyed by join value.
	Lookup map[string]map[string]any `json:"lookup,omitempty" schema:"type:object,description:Inline reference table"`

	// Static fields are added to every record after the join.
	Static map[string]any `json:"static,omitempty" schema:"type:object,description:Static fields added to every record"`

	// KVBucket names a NATS KV bucket holding reference rows as JSON
	// objects keyed by join value. Takes precedence over Lookup.
	KVBucket string `json:"kv_bucket,omitempty" schema:"type:string,description:NATS KV bucket with reference rows"`

	// Cache fronts KV lookups so hot keys skip the round trip.
	Cache cache.Config `json:"cache,omitempty" schema:"type:cache,description:Cache for KV reference lookups,category:advanced"`
}

// Config holds configuration for the stream processor.
type Config struct {
	// Ports declares the raw-record input and processed-record output.
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`

	// Schema drives the validate stage: coercion, defaults, required checks.
	Schema pipeline.Schema `json:"schema,omitempty" schema:"type:object,description:Record schema for the validate stage,category:basic"`

	// Rules are the transform stage's declarative field rules.
	Rules []pipeline.FieldRule `json:"rules,omitempty" schema:"type:array,description:Transform field rules,category:basic"`

	// AddFields are static fields the transform stage adds to every record.
	AddFields map[string]any `json:"add_fields,omitempty" schema:"type:object,description:Static fields added by the transform stage"`

	// DropFields are removed from every record after rules run.
	DropFields []string `json:"drop_fields,omitempty" schema:"type:array,description:Fields dropped by the transform stage"`

	// Enrich configures the enrich stage. The stage runs and stamps
	// enriched_at even when this section is absent.
	Enrich *EnrichConfig `json:"enrich,omitempty" schema:"type:object,description:Enrich stage configuration"`
}

// DefaultConfig returns the default configuration for the stream processor.
func DefaultConfig() Config {
	inputDefs := []component.PortDefinition{
		{
			Name:        "nats_input",
			Type:        "nats",
			Subject:     ingest.RawSubject,
			Interface:   "etl.record.v1",
			Required:    true,
			Description: "NATS subject carrying raw ingested records",
		},
	}

	outputDefs := []component.PortDefinition{
		{
			Name:        "nats_output",
			Type:        "nats",
			Subject:     ingest.ProcessedSubject,
			Interface:   "etl.record.v1",
			Required:    true,
			Description: "NATS subject for processed records",
		},
	}

	return Config{
		Ports: &component.PortConfig{
			Inputs:  inputDefs,
			Outputs: outputDefs,
		},
		Schema:     pipeline.Schema{},
		Rules:      []pipeline.FieldRule{},
		AddFields:  map[string]any{},
		DropFields: []string{},
	}
}

// streamSchema defines the configuration schema for the stream processor.
var streamSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))
