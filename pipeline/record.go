package pipeline

import "fmt"

// MetadataKey is the reserved field carrying ingestion provenance.
// Schema validation never touches this sub-map.
const MetadataKey = "_metadata"

// Record is a single JSON document flowing through the pipeline. Every
// record emitted by an ingestor carries the reserved metadata sub-map.
// Records are treated as immutable across stage boundaries: stages clone
// before writing, so a failed stage cannot corrupt the record seen by
// logging or metrics.
type Record map[string]any

// ID returns the record identifier from the "id" field, or an empty
// string when the field is absent. Non-string identifiers are formatted.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Metadata returns the record's provenance block, zero-valued when the
// reserved sub-map is absent or malformed.
func (r Record) Metadata() Metadata {
	return MetadataOf(r)
}

// Clone returns a deep copy of the record. Nested maps and slices are
// copied; scalar values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(cloneMap(r))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return cloneMap(t)
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Metadata is the ingestion provenance carried by every record.
type Metadata struct {
	Source     string `json:"source"`
	IngestedAt string `json:"ingested_at"`
	Ingestor   string `json:"ingestor"`
}

// Apply writes the reserved metadata sub-map on the record, replacing
// any provenance already present.
func (m Metadata) Apply(r Record) {
	r[MetadataKey] = map[string]any{
		"source":      m.Source,
		"ingested_at": m.IngestedAt,
		"ingestor":    m.Ingestor,
	}
}

// MetadataOf reads the reserved sub-map leniently. Missing or mistyped
// entries yield zero-value fields rather than an error.
func MetadataOf(r Record) Metadata {
	var md Metadata
	raw, ok := r[MetadataKey].(map[string]any)
	if !ok {
		return md
	}
	if s, ok := raw["source"].(string); ok {
		md.Source = s
	}
	if s, ok := raw["ingested_at"].(string); ok {
		md.IngestedAt = s
	}
	if s, ok := raw["ingestor"].(string); ok {
		md.Ingestor = s
	}
	return md
}
