package ingest

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/c360/etlstreams/pipeline"
)

// DecodeRecords reads a JSON document and converts it to records. Three
// shapes are accepted: an array of objects, an object with a "records"
// array, and a single object treated as one record.
func DecodeRecords(r io.Reader) ([]pipeline.Record, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	switch v := raw.(type) {
	case []any:
		return recordsFromList(v)
	case map[string]any:
		if list, ok := v["records"].([]any); ok {
			return recordsFromList(list)
		}
		return []pipeline.Record{pipeline.Record(v)}, nil
	default:
		return nil, fmt.Errorf("response is %T, want array or object", raw)
	}
}

func recordsFromList(list []any) ([]pipeline.Record, error) {
	records := make([]pipeline.Record, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d is %T, want object", i, item)
		}
		records = append(records, pipeline.Record(obj))
	}
	return records, nil
}

// ApplySchema validates and coerces records, returning the kept records and
// the number dropped. A nil validator keeps everything.
func ApplySchema(records []pipeline.Record, validator *pipeline.Validator) ([]pipeline.Record, int) {
	if validator == nil {
		return records, 0
	}
	kept := records[:0]
	dropped := 0
	for _, record := range records {
		validated, err := validator.Validate(record)
		if err != nil {
			dropped++
			continue
		}
		kept = append(kept, validated)
	}
	return kept, dropped
}
