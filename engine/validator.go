package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/types"
)

// Validator checks component configuration against the factory registry
// before anything is created. It backs the validate-only mode of the
// binary and gives operators a full issue list instead of the first
// failure the engine would hit.
type Validator struct {
	registry *component.Registry
	logger   *slog.Logger
}

// NewValidator creates a validator over the given factory registry.
func NewValidator(registry *component.Registry, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		registry: registry,
		logger:   logger.With("component", "validator"),
	}
}

// ValidationIssue describes one problem found in a component config entry.
type ValidationIssue struct {
	Component string `json:"component"`
	Message   string `json:"message"`
}

// ValidationResult contains the outcome of a configuration preflight.
type ValidationResult struct {
	Status   string            `json:"validation_status"` // "valid", "warnings", "errors"
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
	Checked  int               `json:"checked"`
}

// Valid reports whether the configuration has no blocking errors.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks every component config entry: structural validity, factory
// existence, declared type match and schema conformance. Disabled entries are
// still checked but their problems surface as warnings since the engine will
// never create them.
func (v *Validator) Validate(configs map[string]types.ComponentConfig) *ValidationResult {
	result := &ValidationResult{
		Status:   "valid",
		Errors:   []ValidationIssue{},
		Warnings: []ValidationIssue{},
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := configs[name]
		result.Checked++
		for _, msg := range v.checkComponent(name, cfg) {
			issue := ValidationIssue{Component: name, Message: msg}
			if cfg.Enabled {
				result.Errors = append(result.Errors, issue)
			} else {
				result.Warnings = append(result.Warnings, issue)
			}
		}
	}

	switch {
	case len(result.Errors) > 0:
		result.Status = "errors"
	case len(result.Warnings) > 0:
		result.Status = "warnings"
	}

	v.logger.Debug("Configuration validated",
		"checked", result.Checked,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings))

	return result
}

// checkComponent returns all problems found in a single config entry.
func (v *Validator) checkComponent(name string, cfg types.ComponentConfig) []string {
	var issues []string

	if err := component.ValidateComponentName(name); err != nil {
		issues = append(issues, fmt.Sprintf("invalid instance name: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		issues = append(issues, err.Error())
		return issues
	}

	factories := v.registry.ListFactories()
	registration, exists := factories[cfg.Name]
	if !exists {
		issues = append(issues, fmt.Sprintf("unknown component factory %q", cfg.Name))
		return issues
	}

	if registration.Type != string(cfg.Type) {
		issues = append(issues, fmt.Sprintf(
			"factory %q is type %q, config declares %q", cfg.Name, registration.Type, cfg.Type))
	}

	schema, err := v.registry.GetComponentSchema(cfg.Name)
	if err == nil {
		if err := component.ValidateConfigSchema(schema, cfg.Config); err != nil {
			issues = append(issues, fmt.Sprintf("config rejected by schema: %v", err))
		}
	}

	return issues
}
