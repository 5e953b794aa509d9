// Package coordinator drives the multi-source ingestion layer of the
// ETLStreams platform.
//
// # Overview
//
// The coordinator owns the enabled ingestors (CSV files, HTTP APIs, web
// scrapes, device streams) and runs them as one unit. Initialize and Start
// fan out to every source in deterministic kind order; Stop winds them
// down in reverse. Ad-hoc ingestion passes route through IngestFromSource
// by source kind, so callers never touch a concrete ingestor.
//
// # Aggregation Task
//
// While started, a background task periodically sums every source's
// ingestion counters and publishes the ingestion_total_records and
// ingestion_active_sources gauges through the platform monitor. A failed
// tick is logged and stretches the next wait to the backoff period; the
// task only exits on shutdown.
//
// # Quick Start
//
//	coord, err := coordinator.New(
//	    []ingest.Ingestor{csvIng, apiIng},
//	    coordinator.DefaultConfig(),
//	    registry, logger,
//	)
//	// ... Initialize, Start ...
//	count, err := coord.IngestFromSource(ctx, ingest.KindCSV, ingest.Config{Path: "/data/landing"})
package coordinator
