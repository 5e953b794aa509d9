package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/c360/etlstreams/pkg/timestamp"
)

// FieldType names the coercion applied to a schema field. The zero value
// means no coercion.
type FieldType string

// Supported field coercion types.
const (
	FieldDatetime FieldType = "datetime"
	FieldNumeric  FieldType = "numeric"
	FieldString   FieldType = "string"
)

// FieldSpec declares the expectations for one record field: whether it
// must be present, what type it coerces to, and an optional default used
// when the field is missing or null.
type FieldSpec struct {
	Required bool      `json:"required,omitempty" description:"Field must be non-null after coercion and defaulting"`
	Type     FieldType `json:"type,omitempty" description:"Coercion type: datetime, numeric, or string"`
	Default  any       `json:"default,omitempty" description:"Value filled in when the field is missing or null"`
}

// Schema maps field names to their specs. The reserved metadata sub-map
// is exempt from all schema checks.
type Schema map[string]FieldSpec

// Coerce applies the declared type coercion to v. Values that fail to
// parse coerce to nil rather than failing the record; required-field
// enforcement happens afterwards in the validate stage.
func (f FieldSpec) Coerce(v any) any {
	if v == nil {
		return nil
	}
	switch f.Type {
	case FieldDatetime:
		return coerceDatetime(v)
	case FieldNumeric:
		return coerceNumeric(v)
	case FieldString:
		return coerceString(v)
	default:
		return v
	}
}

// coerceDatetime normalizes any parseable timestamp representation to an
// RFC3339 UTC string. Epoch values may be seconds or milliseconds.
func coerceDatetime(v any) any {
	if n, ok := v.(json.Number); ok {
		v = n.String()
	}
	ms := timestamp.Parse(v)
	if ms == 0 {
		return nil
	}
	return timestamp.Format(ms)
}

func coerceNumeric(v any) any {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return nil
	default:
		return nil
	}
}

func coerceString(v any) any {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
