// Package componentregistry provides component registration for the ETLStreams platform.
// This package registers both ingestion-side and processing-side components.
package componentregistry

import (
	"errors"

	"github.com/c360/etlstreams/component"
	pkgerrors "github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/ingest/csvfile"
	"github.com/c360/etlstreams/ingest/devicestream"
	"github.com/c360/etlstreams/ingest/httppoll"
	"github.com/c360/etlstreams/ingest/scrape"
	"github.com/c360/etlstreams/processor/stream"
)

// Register registers all ETLStreams platform components with the provided registry.
//
// Ingestion Layer (source adapters, coordinator-driven):
//   - CSV ingestor (batch file ingestion)
//   - API ingestor (polled HTTP endpoints)
//   - Scrape ingestor (static and rendered web pages)
//   - Device ingestor (WebSocket device streams)
//
// Processing Layer (stream-driven):
//   - Stream processor (validate, transform, enrich, load)
//
// Note: Domain-specific components live in separate modules and register
// against the same registry.
func Register(registry *component.Registry) error {
	// CRITICAL: Nil registry is a programming error (fatal), not invalid input
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	// Ingestion Layer - Source Adapters
	if err := csvfile.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "CSV ingestor component registration")
	}

	if err := httppoll.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "API ingestor component registration")
	}

	if err := scrape.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "Scrape ingestor component registration")
	}

	if err := devicestream.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "Device ingestor component registration")
	}

	// Processing Layer - Processors
	if err := stream.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "Stream processor component registration")
	}

	return nil
}
