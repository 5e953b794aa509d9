package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Validator enforces a schema over incoming records: type coercion,
// default filling, and required-field checks. Safe for concurrent use.
type Validator struct {
	Schema Schema
}

// Validate returns a validated copy of the record. Failed coercions
// become nil, declared defaults fill missing or null fields, and any
// required field still null afterwards fails the record. The reserved
// metadata sub-map is exempt.
func (v *Validator) Validate(r Record) (Record, error) {
	if r == nil {
		return nil, stageFailure(StageValidate, r, fmt.Errorf("%w: empty record", ErrValidation))
	}
	out := r.Clone()
	var missing []string
	for name, spec := range v.Schema {
		if name == MetadataKey {
			continue
		}
		val, present := out[name]
		if present {
			val = spec.Coerce(val)
			out[name] = val
		}
		if val == nil && spec.Default != nil {
			val = spec.Default
			out[name] = val
		}
		if spec.Required && val == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, stageFailure(StageValidate, r,
			fmt.Errorf("%w: missing required fields %v", ErrValidation, missing))
	}
	return out, nil
}

// FieldRule is one declarative transform applied to a record field.
// Rules run in declaration order over the same working copy.
type FieldRule struct {
	Op     string `json:"op" description:"Rule operation: copy, rename, uppercase, lowercase, or trim"`
	Field  string `json:"field" description:"Source field the rule reads"`
	Target string `json:"target,omitempty" description:"Destination field, defaults to the source field"`
}

// Transformer applies declarative field rules, adds static fields, and
// drops unwanted fields. Safe for concurrent use.
type Transformer struct {
	Rules      []FieldRule
	AddFields  map[string]any
	DropFields []string
}

// Transform returns a transformed copy of the record. Rules referencing
// absent fields are skipped; an unknown rule operation fails the record.
// Drops run last, so a dropped field wins over a rule or added field.
func (t *Transformer) Transform(r Record) (Record, error) {
	if r == nil {
		return nil, stageFailure(StageTransform, r, fmt.Errorf("%w: empty record", ErrTransform))
	}
	out := r.Clone()
	for _, rule := range t.Rules {
		if err := applyRule(out, rule); err != nil {
			return nil, stageFailure(StageTransform, r, err)
		}
	}
	for k, v := range t.AddFields {
		out[k] = v
	}
	for _, k := range t.DropFields {
		delete(out, k)
	}
	return out, nil
}

func applyRule(out Record, rule FieldRule) error {
	val, ok := out[rule.Field]
	if !ok {
		return nil
	}
	target := rule.Target
	if target == "" {
		target = rule.Field
	}
	switch rule.Op {
	case "copy":
		out[target] = val
	case "rename":
		if rule.Target == "" {
			return fmt.Errorf("%w: rename rule for field %q has no target", ErrTransform, rule.Field)
		}
		out[target] = val
		if target != rule.Field {
			delete(out, rule.Field)
		}
	case "uppercase":
		out[target] = applyStringOp(val, strings.ToUpper)
	case "lowercase":
		out[target] = applyStringOp(val, strings.ToLower)
	case "trim":
		out[target] = applyStringOp(val, strings.TrimSpace)
	default:
		return fmt.Errorf("%w: unknown rule op %q for field %q", ErrTransform, rule.Op, rule.Field)
	}
	return nil
}

// applyStringOp transforms string values and passes everything else
// through unchanged.
func applyStringOp(v any, op func(string) string) any {
	if s, ok := v.(string); ok {
		return op(s)
	}
	return v
}

// LookupSource supplies reference rows for enrichment joins. A miss is
// not an error; the record passes through unjoined.
type LookupSource interface {
	Lookup(key string) (map[string]any, bool)
}

// StaticLookup serves enrichment rows from an in-memory table keyed by
// join value.
type StaticLookup map[string]map[string]any

// Lookup implements LookupSource.
func (s StaticLookup) Lookup(key string) (map[string]any, bool) {
	row, ok := s[key]
	return row, ok
}

// Enricher joins reference data onto records and stamps them. When On
// names a join field, the record's value for it keys a LookupSource
// query and a hit merges the row into the record. Static fields are
// added afterwards, then the enriched_at stamp. Safe for concurrent use.
type Enricher struct {
	Source LookupSource
	On     string
	Static map[string]any
}

// Enrich returns an enriched copy of the record. A configured join
// requires the join field to be present and non-null; a lookup miss
// passes the record through unjoined.
func (e *Enricher) Enrich(r Record) (Record, error) {
	if r == nil {
		return nil, stageFailure(StageEnrich, r, fmt.Errorf("%w: empty record", ErrEnrich))
	}
	out := r.Clone()
	if e.Source != nil && e.On != "" {
		key, ok := joinKey(out, e.On)
		if !ok {
			return nil, stageFailure(StageEnrich, r,
				fmt.Errorf("%w: join field %q missing", ErrEnrich, e.On))
		}
		if row, found := e.Source.Lookup(key); found {
			for k, v := range row {
				if k == MetadataKey {
					continue
				}
				out[k] = v
			}
		}
	}
	for k, v := range e.Static {
		out[k] = v
	}
	out["enriched_at"] = time.Now().UTC().Format(time.RFC3339)
	return out, nil
}

func joinKey(r Record, field string) (string, bool) {
	switch v := r[field].(type) {
	case nil:
		return "", false
	case string:
		return v, true
	default:
		return fmt.Sprint(v), true
	}
}
