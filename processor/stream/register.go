package stream

import (
	"encoding/json"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
)

// New is the factory function for creating stream processor components.
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
	if deps.Warehouse == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			componentName, "New", "warehouse store required for the record sink")
	}

	return NewProcessor(
		componentName,
		deps.NATSClient,
		deps.Warehouse,
		cfg,
		deps.MetricsRegistry,
		deps.GetLoggerWithComponent(componentName),
	)
}

// Register registers the stream processor component with the registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "stream_processor",
		Factory:     New,
		Schema:      streamSchema,
		Type:        "processor",
		Protocol:    "nats",
		Domain:      "processing",
		Description: "Record pipeline validating, transforming, and enriching raw records",
		Version:     "0.1.0",
	})
}
