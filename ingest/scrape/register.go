// Package scrape provides component registration for the web scrape ingestor.
package scrape

import (
	"encoding/json"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
)

// New is the factory function for creating scrape ingestor components.
func New(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	cfg := DefaultConfig()

	if len(rawConfig) > 0 {
		var userConfig Config
		if err := component.SafeUnmarshal(rawConfig, &userConfig); err != nil {
			return nil, errors.Wrap(err, componentName, "New", "secure config parsing")
		}
		cfg = userConfig
	}

	if deps.NATSClient == nil {
		return nil, errors.WrapInvalid(errors.ErrNoConnection,
			componentName, "New", "dependency validation")
	}

	return NewIngestor(
		componentName,
		deps.NATSClient,
		cfg,
		deps.Security,
		deps.MetricsRegistry,
		deps.GetLoggerWithComponent(componentName),
	)
}

// Register registers the scrape ingestor component with the registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "scrape_ingestor",
		Factory:     New,
		Schema:      scrapeSchema,
		Type:        "ingestor",
		Protocol:    "http",
		Domain:      "ingestion",
		Description: "Web scrape ingestor extracting tabular records from pages",
		Version:     "0.1.0",
	})
}
