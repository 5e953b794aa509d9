// Package httppoll provides component registration for the HTTP poll ingestor.
package httppoll

import (
	"encoding/json"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
)

// New is the factory function for creating HTTP poll ingestor components.
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

// Register registers the HTTP poll ingestor component with the registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "api_ingestor",
		Factory:     New,
		Schema:      httpPollSchema,
		Type:        "ingestor",
		Protocol:    "http",
		Domain:      "ingestion",
		Description: "HTTP poll ingestor fetching JSON records from REST endpoints",
		Version:     "0.1.0",
	})
}
