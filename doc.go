// Package etlstreams provides a streaming ETL platform that pulls records
// from heterogeneous sources and drives them through validate, transform,
// enrich and load stages over NATS.
//
// # Philosophy: Config-Driven Record Pipelines
//
// ETLStreams is a generic record-processing framework with two independent
// concerns:
//
// Ingestion (source agnostic):
//   - Source adapters: CSV files, HTTP APIs, web scraping, device streams
//   - Scheduling: per-source cadence, retry with backoff, failure isolation
//   - Decoding: CSV, JSON, HTML tables into uniform records
//
// Processing (pipeline semantics):
//   - Validation: schema checks, type coercion, defaults, required fields
//   - Transformation: declarative field rules, renames, drops, derivations
//   - Enrichment: reference-data joins from inline tables or NATS KV
//   - Loading: record warehouse backed by NATS KV or local files
//
// ETLStreams MUST NOT contain:
//   - Source-specific business logic (vendor API quirks beyond transport)
//   - Hardcoded schemas or field mappings (all declarative, from config)
//   - Assumptions about record shape beyond the envelope contract
//
// # Architecture
//
// Components communicate only through NATS subjects. The engine owns
// processor lifecycles while the coordinator drives ingestion cadence:
//
//	┌─────────────────────────────────────┐
//	│       Ingestion Coordinator         │  Source scheduling,
//	│ (cadence, retry, failure isolation) │  backoff, aggregation
//	└──────────────────┬──────────────────┘
//	                   ↓ drives
//	┌─────────────────────────────────────┐
//	│          Source Adapters            │  csv_ingestor, api_ingestor,
//	│  (csvfile, httppoll, scrape,        │  scrape_ingestor,
//	│   devicestream)                     │  device_ingestor
//	└──────────────────┬──────────────────┘
//	                   │
//	           etl.raw.records (NATS subject)
//	                   │
//	┌──────────────────▼──────────────────┐
//	│         Stream Processor            │  validate → transform
//	│   (schema, field rules, joins)      │  → enrich → load
//	└──────────────────┬──────────────────┘
//	                   │
//	         etl.processed.records
//	                   │
//	     ┌─────────────┼─────────────┐
//	     ↓             ↓             ↓
//	┌─────────┐  ┌──────────┐  ┌──────────┐
//	│Warehouse│  │Downstream│  │Monitoring│
//	│(KV/file)│  │consumers │  │ taps     │
//	└─────────┘  └──────────┘  └──────────┘
//
// Fan-out is free: any number of consumers can subscribe to the processed
// subject without touching the pipeline. The stream processor also loads
// every processed record into the configured warehouse directly, so the
// platform works with zero extra subscribers.
//
// # Record Envelope
//
// Every record on the wire is a message envelope carrying an etl.record.v1
// payload: source identity, extraction timestamps, the record fields and
// per-stage processing marks. Ingestors stamp provenance, the processor
// stamps validated/transformed/enriched markers, and the warehouse keys
// storage by record id. The Etl-Key NATS header carries the source id on
// raw records and the record id on processed ones so subscribers can
// filter without unmarshaling.
//
// # Framework Packages
//
// Component System:
//   - component: Component lifecycle, registry, port declarations
//   - component/flowgraph: Subject-level wiring analysis across components
//   - componentregistry: Registration of all source adapters and processors
//
// Runtime:
//   - engine: Component orchestration, lifecycle, wiring preflight
//   - coordinator: Multi-source ingestion scheduling and backoff
//   - config: Layered configuration loading and validation
//
// Infrastructure:
//   - natsclient: NATS connection management
//   - warehouse: Record storage over NATS KV or local files
//   - metric: Prometheus metrics
//   - errors: Structured error handling with severity
//   - health: Health aggregation across components
//
// Ingestion:
//   - ingest: Source contract, scheduling config, record emission, decode
//   - ingest/csvfile: Batched CSV file ingestion with incremental offsets
//   - ingest/httppoll: Paginated HTTP API polling
//   - ingest/scrape: HTML table and selector scraping (chromedp for JS pages)
//   - ingest/devicestream: WebSocket device streams with reconnect
//
// Processing:
//   - pipeline: Record model, schema validation, stage implementations
//   - processor/stream: The validate/transform/enrich/load processor
//
// Utilities:
//   - pkg/buffer: Ring buffer for streaming
//   - pkg/cache: TTL cache for reference lookups
//   - pkg/retry: Retry policies with jittered backoff
//   - pkg/worker: Worker pools
//   - pkg/timestamp: Time utilities
//   - pkg/security: Input validation helpers
//   - pkg/tlsutil: TLS configuration
//
// # Usage Patterns
//
// Basic platform setup:
//
//	// Create NATS client
//	natsClient, _ := natsclient.NewClient("nats://localhost:4222")
//	natsClient.Connect(ctx)
//
//	// Register all source adapters and processors
//	registry := component.NewRegistry()
//	componentregistry.Register(registry)
//
//	// Engine runs processors, coordinator drives ingestors
//	eng, _ := engine.New(registry, cfg.Components.WithoutType(types.ComponentTypeIngestor), deps)
//	eng.Initialize()
//	eng.Start(ctx)
//
// Custom source adapter:
//
//	// Register a custom ingestion source
//	func RegisterQueueIngestor(registry *component.Registry) error {
//	    return registry.RegisterWithConfig(component.RegistrationConfig{
//	        Name:        "queue_ingestor",
//	        Factory:     CreateQueueIngestor,
//	        Schema:      queueSchema,
//	        Type:        "ingestor",
//	        Protocol:    "amqp",
//	        Domain:      "ingestion",
//	        Description: "Message queue ingestion source",
//	        Version:     "1.0.0",
//	    })
//	}
//
// The factory's component must satisfy ingest.Ingestor so the coordinator
// can schedule it alongside the built-in sources.
//
// # Design Principles
//
// Separation of Concerns:
//   - Source transport ≠ record semantics
//   - Pipeline stages ≠ storage backends
//   - Scheduling ≠ extraction
//
// Composition Over Configuration:
//   - Small, focused components
//   - Connect via NATS subjects
//   - Declarative schemas and field rules instead of code
//
// Testability:
//   - Explicit dependencies (no globals)
//   - Isolated component testing
//   - Integration tests with testcontainers
//
// Failure Isolation:
//   - One broken source never stops the others
//   - Invalid records are marked and counted, not dropped silently
//   - Partial batches load with per-record error accounting
//
// # Binary
//
// Build and run ETLStreams:
//
//	# Validate a configuration without starting anything
//	./bin/etlstreams --config configs/example.json --validate
//
//	# Run the full platform
//	./bin/etlstreams --config configs/example.json
//
// The binary registers every built-in component, partitions configuration
// into engine-managed processors and coordinator-driven ingestors, and
// serves health at /healthz plus Prometheus metrics when enabled.
package etlstreams
