// Package stream provides the record processing pipeline for the ETLStreams
// platform.
//
// # Overview
//
// The stream processor subscribes to the raw record subject and runs every
// record through three ordered stages: schema validation (type coercion,
// defaults, required checks), declarative field transforms, and reference
// enrichment. Records that survive are delivered to two sinks at once: the
// processed NATS subject, keyed by record id, and the configured warehouse
// store. Both sink writes are always attempted; a failure in either fails
// the record but never stops the subscription.
//
// # Quick Start
//
// Configure a pipeline that validates ids, normalizes a field, and joins
// region reference data:
//
//	config := stream.Config{
//	    Schema: pipeline.Schema{
//	        "id": {Required: true},
//	    },
//	    Rules: []pipeline.FieldRule{
//	        {Op: "lowercase", Field: "email"},
//	    },
//	    Enrich: &stream.EnrichConfig{
//	        On:       "country",
//	        KVBucket: "etl-reference",
//	    },
//	}
//
//	rawConfig, _ := json.Marshal(config)
//	proc, err := stream.New(rawConfig, deps)
//	// ... Initialize, Start ...
//
// # Failure Handling
//
// A record failing any stage or sink is counted as exactly one processing
// error, logged with the failing stage, and dropped. Stage counters advance
// only when their stage succeeds, so the gaps between records_validated,
// records_transformed, records_enriched, and records_processed show where
// a pipeline is losing records.
//
// # Reference Enrichment
//
// Reference rows come from an inline lookup table or, when a KV bucket is
// named, from NATS KV fronted by a TTL cache. A lookup miss passes the
// record through unjoined; a missing join field fails it. The enrich stage
// always stamps enriched_at, even with no join or static fields configured.
//
// # Batch Replays
//
// ProcessBatch runs records through the same stages without publishing or
// counting, returning the survivors in order. It backs offline replays and
// pipeline dry-runs.
package stream
