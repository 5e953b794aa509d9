package scrape

import (
	"reflect"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/ingest"
)

// Fetch modes for scrape targets.
const (
	// ModeStatic fetches the page with a plain HTTP GET.
	ModeStatic = "static"
	// ModeRendered drives a headless browser so client-side JavaScript runs
	// before extraction.
	ModeRendered = "rendered"
)

// Payload formats for static targets.
const (
	// FormatJSON decodes the response body as JSON records.
	FormatJSON = "json"
	// FormatTable extracts rows from the first HTML table.
	FormatTable = "table"
)

// TargetConfig describes one page to scrape.
type TargetConfig struct {
	// Name identifies the target in logs and stats.
	Name string `json:"name" schema:"type:string,description:Target name,required:true"`

	// URL is the page to fetch, also used as the message key.
	URL string `json:"url" schema:"type:string,description:Page URL to scrape,required:true"`

	// Mode selects the fetch path: static (default) or rendered.
	Mode string `json:"mode,omitempty" schema:"type:enum,enum:static|rendered,description:Fetch mode"`

	// Format selects static extraction: json (default) or table.
	Format string `json:"format,omitempty" schema:"type:enum,enum:json|table,description:Static payload format"`

	// Selector is the element the rendered path waits for before
	// extracting. Defaults to body.
	Selector string `json:"selector,omitempty" schema:"type:string,description:Readiness selector for rendered pages"`

	// Extract is a JavaScript expression evaluated on rendered pages that
	// returns an array of row objects. Defaults to extracting the first
	// table on the page.
	Extract string `json:"extract,omitempty" schema:"type:string,description:Extraction script for rendered pages"`
}

// Config holds configuration for the scrape ingestor.
type Config struct {
	// Ports declares the NATS output for raw records.
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`

	// Targets are scraped by each Ingest pass.
	Targets []TargetConfig `json:"targets" schema:"type:array,description:Pages to scrape,category:basic"`

	// MaxConcurrent caps simultaneous scrapes, which bounds headless
	// browser sessions.
	MaxConcurrent int `json:"max_concurrent" schema:"type:int,description:Concurrent scrape sessions,category:limits"`

	// QueueSize bounds pending scrape tasks.
	QueueSize int `json:"queue_size" schema:"type:int,description:Pending scrape task queue size,category:limits"`

	// Timeout bounds each target fetch in seconds.
	Timeout int `json:"timeout" schema:"type:int,description:Per-target timeout (sec),category:advanced"`

	// Defaults are the baseline ingestion settings applied to every pass.
	Defaults ingest.Config `json:"defaults" schema:"type:object,description:Baseline ingestion settings,category:basic"`
}

// DefaultConfig returns the default configuration for the scrape ingestor.
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
		Targets:       []TargetConfig{},
		MaxConcurrent: 2,
		QueueSize:     16,
		Timeout:       30,
		Defaults:      ingest.DefaultConfig(),
	}
}

// scrapeSchema defines the configuration schema for the scrape ingestor.
var scrapeSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))
