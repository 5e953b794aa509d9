// Package devicestream provides component registration for the device-stream ingestor.
package devicestream

import (
	"encoding/json"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
)

// New is the factory function for creating device-stream ingestor components.
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

// Register registers the device-stream ingestor component with the registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "device_ingestor",
		Factory:     New,
		Schema:      streamSchema,
		Type:        "ingestor",
		Protocol:    "websocket",
		Domain:      "ingestion",
		Description: "Device-stream ingestor bridging a WebSocket feed to raw records",
		Version:     "0.1.0",
	})
}
