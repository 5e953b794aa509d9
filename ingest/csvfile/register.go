// Package csvfile provides component registration for the CSV file ingestor.
package csvfile

import (
	"encoding/json"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
)

// New is the factory function for creating CSV ingestor components.
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
		deps.MetricsRegistry,
		deps.GetLoggerWithComponent(componentName),
	)
}

// Register registers the CSV ingestor component with the registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "csv_ingestor",
		Factory:     New,
		Schema:      csvSchema,
		Type:        "ingestor",
		Protocol:    "file",
		Domain:      "ingestion",
		Description: "Batch CSV file ingestor publishing rows as raw records",
		Version:     "0.1.0",
	})
}
