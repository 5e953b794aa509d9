package pipeline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	schema := Schema{
		"id":        {Required: true, Type: FieldString},
		"amount":    {Required: true, Type: FieldNumeric},
		"placed_at": {Type: FieldDatetime},
		"region":    {Type: FieldString, Default: "unassigned"},
	}
	validator := &Validator{Schema: schema}

	t.Run("valid record coerces and defaults", func(t *testing.T) {
		record := Record{
			"id":        "order-1",
			"amount":    "12.5",
			"placed_at": "1709289000",
		}

		out, err := validator.Validate(record)
		require.NoError(t, err)
		assert.Equal(t, "order-1", out["id"])
		assert.Equal(t, 12.5, out["amount"])
		assert.Equal(t, "2024-03-01T10:30:00Z", out["placed_at"])
		assert.Equal(t, "unassigned", out["region"])
	})

	t.Run("failed coercion on optional field becomes null", func(t *testing.T) {
		record := Record{
			"id":        "order-2",
			"amount":    float64(5),
			"placed_at": "not-a-date",
		}

		out, err := validator.Validate(record)
		require.NoError(t, err)
		assert.Nil(t, out["placed_at"])
	})

	t.Run("required field missing fails the record", func(t *testing.T) {
		record := Record{"id": "order-3"}

		out, err := validator.Validate(record)
		assert.Nil(t, out)
		require.Error(t, err)
		assert.True(t, IsValidation(err))

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageValidate, stageErr.Stage)
		assert.Equal(t, "order-3", stageErr.RecordID)
		assert.Contains(t, err.Error(), "amount")
	})

	t.Run("required field unparseable fails the record", func(t *testing.T) {
		record := Record{"id": "order-4", "amount": "not-a-number"}

		out, err := validator.Validate(record)
		assert.Nil(t, out)
		assert.True(t, IsValidation(err))
	})

	t.Run("multiple missing fields reported sorted", func(t *testing.T) {
		out, err := (&Validator{Schema: Schema{
			"zulu":  {Required: true},
			"alpha": {Required: true},
		}}).Validate(Record{"id": "order-5"})
		assert.Nil(t, out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "[alpha zulu]")
	})

	t.Run("default satisfies required", func(t *testing.T) {
		out, err := (&Validator{Schema: Schema{
			"status": {Required: true, Default: "new"},
		}}).Validate(Record{"id": "order-6"})
		require.NoError(t, err)
		assert.Equal(t, "new", out["status"])
	})

	t.Run("metadata sub-map is exempt", func(t *testing.T) {
		record := Record{"id": "order-7"}
		Metadata{Source: "test", Ingestor: "csv"}.Apply(record)

		out, err := (&Validator{Schema: Schema{
			MetadataKey: {Required: true, Type: FieldString},
			"id":        {Required: true},
		}}).Validate(record)
		require.NoError(t, err)
		assert.Equal(t, "csv", out.Metadata().Ingestor)
	})

	t.Run("input record is not mutated", func(t *testing.T) {
		record := Record{"id": "order-8", "amount": "12.5", "placed_at": "1709289000"}

		_, err := validator.Validate(record)
		require.NoError(t, err)
		assert.Equal(t, "12.5", record["amount"])
		assert.Equal(t, "1709289000", record["placed_at"])
		assert.NotContains(t, record, "region")
	})

	t.Run("nil record fails validation", func(t *testing.T) {
		out, err := validator.Validate(nil)
		assert.Nil(t, out)
		assert.True(t, IsValidation(err))
	})

	t.Run("empty schema accepts anything", func(t *testing.T) {
		out, err := (&Validator{}).Validate(Record{"free": "form"})
		require.NoError(t, err)
		assert.Equal(t, "form", out["free"])
	})
}

func TestTransformer_Transform(t *testing.T) {
	tests := []struct {
		name        string
		transformer Transformer
		input       Record
		expected    Record
	}{
		{
			name: "copy keeps the source field",
			transformer: Transformer{
				Rules: []FieldRule{{Op: "copy", Field: "name", Target: "display_name"}},
			},
			input:    Record{"name": "Ada"},
			expected: Record{"name": "Ada", "display_name": "Ada"},
		},
		{
			name: "rename moves the value",
			transformer: Transformer{
				Rules: []FieldRule{{Op: "rename", Field: "old_name", Target: "new_name"}},
			},
			input:    Record{"old_name": "value"},
			expected: Record{"new_name": "value"},
		},
		{
			name: "uppercase in place",
			transformer: Transformer{
				Rules: []FieldRule{{Op: "uppercase", Field: "code"}},
			},
			input:    Record{"code": "abc"},
			expected: Record{"code": "ABC"},
		},
		{
			name: "lowercase to a new field",
			transformer: Transformer{
				Rules: []FieldRule{{Op: "lowercase", Field: "code", Target: "code_lower"}},
			},
			input:    Record{"code": "ABC"},
			expected: Record{"code": "ABC", "code_lower": "abc"},
		},
		{
			name: "trim in place",
			transformer: Transformer{
				Rules: []FieldRule{{Op: "trim", Field: "city"}},
			},
			input:    Record{"city": "  Berlin  "},
			expected: Record{"city": "Berlin"},
		},
		{
			name: "non-string value passes through string ops",
			transformer: Transformer{
				Rules: []FieldRule{{Op: "uppercase", Field: "count"}},
			},
			input:    Record{"count": float64(3)},
			expected: Record{"count": float64(3)},
		},
		{
			name: "rule on absent field is skipped",
			transformer: Transformer{
				Rules: []FieldRule{{Op: "uppercase", Field: "missing"}},
			},
			input:    Record{"present": "yes"},
			expected: Record{"present": "yes"},
		},
		{
			name: "add and drop fields",
			transformer: Transformer{
				AddFields:  map[string]any{"pipeline": "orders"},
				DropFields: []string{"internal_note"},
			},
			input:    Record{"id": "r1", "internal_note": "scrub me"},
			expected: Record{"id": "r1", "pipeline": "orders"},
		},
		{
			name: "drop wins over add",
			transformer: Transformer{
				AddFields:  map[string]any{"flag": true},
				DropFields: []string{"flag"},
			},
			input:    Record{"id": "r1"},
			expected: Record{"id": "r1"},
		},
		{
			name: "rules run in declaration order",
			transformer: Transformer{
				Rules: []FieldRule{
					{Op: "trim", Field: "sku"},
					{Op: "uppercase", Field: "sku"},
				},
			},
			input:    Record{"sku": "  ab-1  "},
			expected: Record{"sku": "AB-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.transformer.Transform(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestTransformer_TransformErrors(t *testing.T) {
	t.Run("unknown rule op fails the record", func(t *testing.T) {
		transformer := &Transformer{
			Rules: []FieldRule{{Op: "reverse", Field: "name"}},
		}

		out, err := transformer.Transform(Record{"id": "r1", "name": "Ada"})
		assert.Nil(t, out)
		require.Error(t, err)
		assert.True(t, IsTransform(err))
		assert.False(t, IsValidation(err))

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageTransform, stageErr.Stage)
		assert.Equal(t, "r1", stageErr.RecordID)
	})

	t.Run("rename without target fails the record", func(t *testing.T) {
		transformer := &Transformer{
			Rules: []FieldRule{{Op: "rename", Field: "name"}},
		}

		out, err := transformer.Transform(Record{"name": "Ada"})
		assert.Nil(t, out)
		assert.True(t, IsTransform(err))
	})

	t.Run("input record is not mutated on failure", func(t *testing.T) {
		transformer := &Transformer{
			Rules: []FieldRule{
				{Op: "uppercase", Field: "name"},
				{Op: "reverse", Field: "name"},
			},
		}

		record := Record{"name": "Ada"}
		_, err := transformer.Transform(record)
		require.Error(t, err)
		assert.Equal(t, "Ada", record["name"])
	})
}

func TestEnricher_Enrich(t *testing.T) {
	regions := StaticLookup{
		"DE": {"region": "europe", "currency": "EUR"},
		"US": {"region": "americas", "currency": "USD"},
	}

	t.Run("join hit merges the reference row", func(t *testing.T) {
		enricher := &Enricher{Source: regions, On: "country"}

		out, err := enricher.Enrich(Record{"id": "r1", "country": "DE"})
		require.NoError(t, err)
		assert.Equal(t, "europe", out["region"])
		assert.Equal(t, "EUR", out["currency"])
		assert.Equal(t, "DE", out["country"])
	})

	t.Run("join miss passes the record through", func(t *testing.T) {
		enricher := &Enricher{Source: regions, On: "country"}

		out, err := enricher.Enrich(Record{"id": "r2", "country": "NZ"})
		require.NoError(t, err)
		assert.NotContains(t, out, "region")
	})

	t.Run("missing join field fails the record", func(t *testing.T) {
		enricher := &Enricher{Source: regions, On: "country"}

		out, err := enricher.Enrich(Record{"id": "r3"})
		assert.Nil(t, out)
		require.Error(t, err)
		assert.True(t, IsEnrich(err))

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageEnrich, stageErr.Stage)
		assert.Equal(t, "r3", stageErr.RecordID)
	})

	t.Run("numeric join key is formatted", func(t *testing.T) {
		bands := StaticLookup{"4": {"band": "gold"}}
		enricher := &Enricher{Source: bands, On: "tier"}

		out, err := enricher.Enrich(Record{"id": "r4", "tier": float64(4)})
		require.NoError(t, err)
		assert.Equal(t, "gold", out["band"])
	})

	t.Run("static fields without a join", func(t *testing.T) {
		enricher := &Enricher{Static: map[string]any{"environment": "staging"}}

		out, err := enricher.Enrich(Record{"id": "r5"})
		require.NoError(t, err)
		assert.Equal(t, "staging", out["environment"])
	})

	t.Run("enriched_at stamp is RFC3339", func(t *testing.T) {
		enricher := &Enricher{}

		out, err := enricher.Enrich(Record{"id": "r6"})
		require.NoError(t, err)

		stamp, ok := out["enriched_at"].(string)
		require.True(t, ok)
		_, parseErr := time.Parse(time.RFC3339, stamp)
		assert.NoError(t, parseErr)
	})

	t.Run("reference row cannot overwrite metadata", func(t *testing.T) {
		poisoned := StaticLookup{
			"DE": {"region": "europe", MetadataKey: "overwritten"},
		}
		enricher := &Enricher{Source: poisoned, On: "country"}

		record := Record{"id": "r7", "country": "DE"}
		Metadata{Source: "test", Ingestor: "csv"}.Apply(record)

		out, err := enricher.Enrich(record)
		require.NoError(t, err)
		assert.Equal(t, "csv", out.Metadata().Ingestor)
	})

	t.Run("input record is not mutated", func(t *testing.T) {
		enricher := &Enricher{Source: regions, On: "country", Static: map[string]any{"env": "prod"}}

		record := Record{"id": "r8", "country": "US"}
		_, err := enricher.Enrich(record)
		require.NoError(t, err)
		assert.NotContains(t, record, "region")
		assert.NotContains(t, record, "env")
		assert.NotContains(t, record, "enriched_at")
	})
}

func TestStageError(t *testing.T) {
	cause := fmt.Errorf("%w: broker unreachable", ErrSink)
	stageErr := NewStageError(StageSink, "order-9", cause)

	assert.Equal(t, "sink stage: record order-9: sink write failed: broker unreachable", stageErr.Error())
	assert.True(t, IsSink(stageErr))
	assert.False(t, IsEnrich(stageErr))
	assert.True(t, errors.Is(stageErr, ErrSink))

	anonymous := NewStageError(StageValidate, "", ErrValidation)
	assert.Equal(t, "validate stage: validation failed", anonymous.Error())
}

// TestStageSequence drives one record through all three stages the way the
// stream processor does, asserting each stage output feeds the next.
func TestStageSequence(t *testing.T) {
	validator := &Validator{Schema: Schema{
		"id":     {Required: true, Type: FieldString},
		"amount": {Required: true, Type: FieldNumeric},
	}}
	transformer := &Transformer{
		Rules:      []FieldRule{{Op: "uppercase", Field: "country"}},
		DropFields: []string{"raw_line"},
	}
	enricher := &Enricher{
		Source: StaticLookup{"DE": {"region": "europe"}},
		On:     "country",
	}

	record := Record{"id": "order-10", "amount": "19.99", "country": "de", "raw_line": "…"}
	Metadata{Source: "/data/landing/orders.csv", IngestedAt: "2024-03-01T10:30:00Z", Ingestor: "csv"}.Apply(record)

	validated, err := validator.Validate(record)
	require.NoError(t, err)

	transformed, err := transformer.Transform(validated)
	require.NoError(t, err)

	enriched, err := enricher.Enrich(transformed)
	require.NoError(t, err)

	assert.Equal(t, 19.99, enriched["amount"])
	assert.Equal(t, "DE", enriched["country"])
	assert.Equal(t, "europe", enriched["region"])
	assert.NotContains(t, enriched, "raw_line")
	assert.Contains(t, enriched, "enriched_at")
	assert.Equal(t, "csv", enriched.Metadata().Ingestor)

	// The record handed in at the top is untouched.
	assert.Equal(t, "de", record["country"])
	assert.Contains(t, record, "raw_line")
}
