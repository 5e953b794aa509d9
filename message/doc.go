// Package message provides the core message infrastructure for the ETLStreams
// platform. It defines interfaces and types for creating, validating, and
// processing messages that flow between ingestors, the stream processor, and
// downstream sinks.
//
// # Architecture
//
// The package follows a clean, domain-agnostic design with three core concepts:
//
// 1. Messages - Containers that combine typed payloads with metadata
// 2. Payloads - Domain-specific data implementing the Payload interface
// 3. Metadata - Information about message lifecycle and origin
//
// # Message Structure
//
// Every message consists of:
//   - A unique ID for tracking and deduplication
//   - A structured Type (domain, category, version)
//   - A Payload containing the actual data
//   - Metadata about creation time, source, etc.
//   - A content-based hash for integrity
//
// # Well-Known Payload Types
//
// Two payload types are registered by this package:
//
//   - core.json.v1 (GenericJSONPayload): arbitrary JSON for prototyping,
//     testing, and generic processing flows.
//   - etl.record.v1 (RecordPayload): a pipeline record with its reserved
//     provenance metadata. Ingestors publish these on the raw subject and
//     the stream processor republishes enriched ones on the processed
//     subject.
//
// Additional payload types register themselves through the global
// PayloadRegistry in an init function, which lets BaseMessage.UnmarshalJSON
// reconstruct typed payloads from the wire.
//
// # Message Lifecycle
//
// Messages are created with NewBaseMessage and are immutable afterwards:
//
//	payload := message.NewRecord(record)
//	msg := message.NewBaseMessage(payload.Schema(), payload, "csv-ingestor")
//
// Serialization uses standard JSON interfaces:
//
//	data, err := json.Marshal(msg)
//
//	var decoded message.BaseMessage
//	err = json.Unmarshal(data, &decoded)
//
// The wire format preserves the message ID, type, payload JSON, and
// millisecond-precision metadata timestamps. Deserialization requires the
// payload type to be registered; unregistered types fail with a classified
// invalid-data error rather than producing an untyped payload.
//
// # Best Practices
//
//   - Define message types as package variables, not inline at call sites.
//   - Set Source to the emitting component's name ("csv-ingestor",
//     "stream-processor") so provenance is traceable in logs and stats.
//   - Use WithTime only for historical data import or tests; the default
//     creation timestamp is correct for live flows.
//   - Validate before publishing: msg.Validate() checks type, payload
//     presence, and payload-specific rules in one call.
package message
