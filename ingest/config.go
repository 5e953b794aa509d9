package ingest

import (
	"encoding/json"

	"github.com/c360/etlstreams/pipeline"
)

// DefaultBatchSize bounds how many records one publish burst carries when
// no batch size is configured.
const DefaultBatchSize = 1000

// Config describes one ingestion pass. Values are immutable per call;
// callers pass it by value so concurrent passes cannot share mutable state.
type Config struct {
	// Path is the file or directory target for file-based sources.
	Path string `json:"path,omitempty" schema:"type:string,description:File or directory to ingest"`

	// URL is the endpoint target for network sources.
	URL string `json:"url,omitempty" schema:"type:string,description:Endpoint URL to ingest"`

	// Schema validates and coerces rows when Validate is set.
	Schema pipeline.Schema `json:"schema,omitempty" schema:"type:object,description:Field schema for validation"`

	// BatchSize bounds records per publish burst.
	BatchSize int `json:"batch_size" schema:"type:number,description:Records per publish burst"`

	// Validate enables schema validation when a schema is present.
	Validate bool `json:"validate" schema:"type:boolean,description:Validate rows against the schema"`

	// Incremental skips sources already ingested by this instance.
	Incremental bool `json:"incremental,omitempty" schema:"type:boolean,description:Skip already-ingested sources"`
}

// DefaultConfig returns the baseline ingestion configuration: default
// batch size with validation enabled.
func DefaultConfig() Config {
	return Config{
		BatchSize: DefaultBatchSize,
		Validate:  true,
	}
}

// UnmarshalJSON decodes a config over the defaults, so absent fields keep
// their default values. Validate in particular defaults to true and only an
// explicit "validate": false disables it.
func (c *Config) UnmarshalJSON(data []byte) error {
	type alias Config
	tmp := alias(DefaultConfig())
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*c = Config(tmp)
	c.clampBatchSize()
	return nil
}

// Normalized returns a copy with out-of-range sizing clamped to defaults.
// Ingestors call this at the top of a pass so a zero-value Config still
// batches sanely.
func (c Config) Normalized() Config {
	c.clampBatchSize()
	return c
}

// MergeDefaults returns a copy where empty fields are filled in from the
// ingestor's configured defaults. Per-call settings always win; the booleans
// Validate and Incremental are taken from the call config as-is since false
// is a meaningful choice.
func (c Config) MergeDefaults(defaults Config) Config {
	if c.Path == "" {
		c.Path = defaults.Path
	}
	if c.URL == "" {
		c.URL = defaults.URL
	}
	if len(c.Schema) == 0 {
		c.Schema = defaults.Schema
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c.Normalized()
}

func (c *Config) clampBatchSize() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
}

// Validator returns a schema validator when this pass should validate,
// or nil when validation is disabled or no schema is configured.
func (c Config) Validator() *pipeline.Validator {
	if !c.Validate || len(c.Schema) == 0 {
		return nil
	}
	return &pipeline.Validator{Schema: c.Schema}
}
