// Package pipeline defines the record model and the validate, transform,
// and enrich stages every record passes through on its way to the
// warehouse.
//
// # Overview
//
// A Record is a JSON document carrying a reserved _metadata sub-map with
// its ingestion provenance. Stages take a Record and return either a new
// Record or a *StageError; they never mutate their input (copy-on-write
// via Clone), never return partial results, and are safe to call from
// multiple stream processors concurrently.
//
// # Stages
//
//   - Validator: schema-driven type coercion (datetime, numeric, string),
//     default filling, and required-field enforcement. Failed coercions
//     become null; only a required field that is still null after
//     defaulting fails the record.
//   - Transformer: declarative field rules (copy, rename, uppercase,
//     lowercase, trim) plus static field addition and field dropping.
//   - Enricher: joins reference rows from a LookupSource on a key field,
//     adds static fields, and stamps enriched_at.
//
// # Error Taxonomy
//
// Every stage failure is a *StageError wrapping one of the package
// sentinels (ErrValidation, ErrTransform, ErrEnrich, ErrSink). Callers
// classify with the Is predicates:
//
//	record, err := validator.Validate(raw)
//	if pipeline.IsValidation(err) {
//	    // count it, log it, move to the next record
//	}
package pipeline
