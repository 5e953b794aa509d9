package message

import (
	"encoding/json"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/pipeline"
)

// RecordType is the well-known message type for pipeline records.
var RecordType = Type{
	Domain:   "etl",
	Category: "record",
	Version:  "v1",
}

// init registers the Record payload type with the global PayloadRegistry.
// This enables BaseMessage.UnmarshalJSON to recreate Record payloads
// from JSON when the message type is "etl.record.v1".
func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "etl",
		Category:    "record",
		Version:     "v1",
		Description: "Pipeline record with ingestion provenance metadata",
		Factory: func() any {
			return &RecordPayload{}
		},
		Example: map[string]any{
			"record": map[string]any{
				"id":          "cust-001",
				"customer_id": "cust-001",
				"email":       "alice@example.com",
				pipeline.MetadataKey: map[string]any{
					"source":      "/data/customers.csv",
					"ingested_at": "2025-06-01T12:00:00Z",
					"ingestor":    "csv",
				},
			},
		},
	})
	if err != nil {
		panic("failed to register Record payload: " + err.Error())
	}
}

// RecordPayload carries one pipeline record through the raw and processed
// subjects. Ingestors wrap each emitted record in this payload; the stream
// processor unwraps it, runs the stages, and re-wraps the enriched record.
//
// The record keeps its reserved metadata sub-map intact through
// serialization, so provenance survives the trip over NATS.
type RecordPayload struct {
	// Record is the pipeline record as emitted by an ingestor or produced
	// by the stream processor.
	Record pipeline.Record `json:"record"`
}

// NewRecord creates a Record payload wrapping the given pipeline record.
func NewRecord(record pipeline.Record) *RecordPayload {
	return &RecordPayload{
		Record: record,
	}
}

// Schema returns the payload type identifier for pipeline records.
func (p *RecordPayload) Schema() Type {
	return RecordType
}

// Validate ensures the payload carries a non-empty record.
func (p *RecordPayload) Validate() error {
	if len(p.Record) == 0 {
		return errors.WrapInvalid(errors.ErrEmptyRecord, "RecordPayload", "Validate", "record cannot be empty")
	}
	return nil
}

// MarshalJSON serializes the Record payload with a "record" wrapper.
func (p *RecordPayload) MarshalJSON() ([]byte, error) {
	// Use alias to avoid infinite recursion
	type Alias RecordPayload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON deserializes JSON data into the Record payload.
func (p *RecordPayload) UnmarshalJSON(data []byte) error {
	// Use alias to avoid infinite recursion
	type Alias RecordPayload
	return json.Unmarshal(data, (*Alias)(p))
}
