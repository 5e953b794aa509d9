// Package csvfile provides a batch CSV file ingestor for the ETLStreams platform.
//
// # Overview
//
// The CSV ingestor reads comma-separated files, maps each data row to a record
// using the header row as field names, and publishes the records to the raw
// record subject in bounded batches. It implements the ETLStreams component
// interfaces for lifecycle management and observability, and the ingest.Ingestor
// contract for coordinator-driven passes.
//
// # Quick Start
//
// Create a CSV ingestor and run one pass over a landing directory:
//
//	config := csvfile.Config{
//	    Ports: &component.PortConfig{
//	        Outputs: []component.PortDefinition{
//	            {Name: "nats_output", Type: "nats", Subject: "etl.raw.records", Required: true},
//	        },
//	    },
//	    Defaults: ingest.Config{BatchSize: 500, Validate: true},
//	}
//
//	rawConfig, _ := json.Marshal(config)
//	ing, err := csvfile.New(rawConfig, deps)
//	// ... Initialize, Start ...
//	count, err := ing.(*csvfile.Ingestor).Ingest(ctx, ingest.Config{Path: "/data/landing"})
//
// # Directory Passes
//
// When the configured path is a directory, every *.csv file is processed in
// name order. Files fail independently: a bad file is counted and logged, and
// the walk continues with the next one. Incremental mode skips files this
// instance has already ingested.
//
// # Schema Handling
//
// When a pass carries a schema and validation is enabled, each row is coerced
// field by field (numeric and datetime parsing, defaults for absent values)
// before publishing. Rows missing required fields are dropped and counted as
// ingestion errors; the rest of the file is unaffected.
//
// Empty CSV cells are treated as absent fields, so schema defaults apply to
// them and required fields reject them.
package csvfile
