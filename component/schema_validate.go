package component

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/etlstreams/errors"
)

// ValidateConfigSchema validates raw component configuration against the
// component's declared ConfigSchema before the factory runs. The declared
// schema is converted to a JSON Schema document so type, required, enum,
// and range constraints are all enforced by the same engine.
//
// An empty schema (no properties) skips validation - components without a
// declared schema accept any well-formed config.
func ValidateConfigSchema(schema ConfigSchema, rawConfig json.RawMessage) error {
	if len(schema.Properties) == 0 {
		return nil
	}

	// Empty config validates against defaults only - required fields without
	// defaults will be reported.
	if len(rawConfig) == 0 {
		rawConfig = json.RawMessage("{}")
	}

	schemaLoader := gojsonschema.NewGoLoader(jsonSchemaDocument(schema))
	documentLoader := gojsonschema.NewBytesLoader(rawConfig)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapInvalid(err, "ConfigValidator", "ValidateConfigSchema", "schema compilation")
	}

	if !result.Valid() {
		var b strings.Builder
		for i, desc := range result.Errors() {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s: %s", desc.Field(), desc.Description())
		}
		return errors.WrapInvalid(
			fmt.Errorf("%s", b.String()),
			"ConfigValidator", "ValidateConfigSchema", "config schema validation")
	}

	return nil
}

// jsonSchemaDocument converts a ConfigSchema into a draft-07 JSON Schema document.
// Unknown fields are permitted here - SafeUnmarshal and struct validation handle
// field-level strictness.
func jsonSchemaDocument(schema ConfigSchema) map[string]any {
	properties := make(map[string]any, len(schema.Properties))
	for name, prop := range schema.Properties {
		properties[name] = propertyToJSONSchema(prop)
	}

	doc := map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": properties,
	}
	if len(schema.Required) > 0 {
		doc["required"] = schema.Required
	}
	return doc
}

// propertyToJSONSchema maps a single PropertySchema to its JSON Schema form.
func propertyToJSONSchema(prop PropertySchema) map[string]any {
	out := make(map[string]any)

	switch prop.Type {
	case "int":
		out["type"] = "integer"
	case "float":
		out["type"] = "number"
	case "bool":
		out["type"] = "boolean"
	case "enum":
		out["type"] = "string"
		if len(prop.Enum) > 0 {
			out["enum"] = prop.Enum
		}
	case "array":
		out["type"] = "array"
	case "object", "ports", "cache":
		out["type"] = "object"
	default:
		out["type"] = "string"
	}

	if prop.Minimum != nil {
		out["minimum"] = *prop.Minimum
	}
	if prop.Maximum != nil {
		out["maximum"] = *prop.Maximum
	}
	if prop.Description != "" {
		out["description"] = prop.Description
	}

	return out
}
