package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/message"
	"github.com/c360/etlstreams/pipeline"
)

// BatchYield is the pause between publish bursts so one large source never
// monopolizes the raw subject.
const BatchYield = 10 * time.Millisecond

// Publisher is the transport surface the emitter needs.
// *natsclient.Client satisfies it; tests inject a capture fake.
type Publisher interface {
	PublishWithHeader(ctx context.Context, subject string, data []byte, header nats.Header) error
}

// Emitter is the shared publish path for all ingestor variants: stamp
// provenance on the record, wrap it in a typed record envelope, and publish
// it to the raw subject with the source key header. Safe for concurrent use.
type Emitter struct {
	publisher Publisher
	subject   string
	kind      string
	name      string
}

// NewEmitter creates an emitter publishing to the given subject. The kind
// is stamped into each record's provenance metadata; the component name
// becomes the message source.
func NewEmitter(publisher Publisher, subject, kind, name string) *Emitter {
	if subject == "" {
		subject = RawSubject
	}
	return &Emitter{
		publisher: publisher,
		subject:   subject,
		kind:      kind,
		name:      name,
	}
}

// Subject returns the subject this emitter publishes to.
func (e *Emitter) Subject() string {
	return e.subject
}

// Emit stamps and publishes a single record keyed by its source.
func (e *Emitter) Emit(ctx context.Context, source string, record pipeline.Record) error {
	if e.publisher == nil {
		return errors.WrapFatal(errors.ErrNoConnection, "Emitter", "Emit", "publisher required")
	}
	if len(record) == 0 {
		return errors.WrapInvalid(errors.ErrEmptyRecord, "Emitter", "Emit", "record cannot be empty")
	}

	data, err := e.encode(source, record)
	if err != nil {
		return err
	}

	header := nats.Header{}
	header.Set(KeyHeader, source)

	if err := e.publisher.PublishWithHeader(ctx, e.subject, data, header); err != nil {
		return errors.WrapTransient(err, "Emitter", "Emit",
			fmt.Sprintf("publish to %s", e.subject))
	}
	return nil
}

// EmitBatch publishes records in bursts of batchSize with a short yield
// between bursts. Returns the number of records published; the first
// publish failure or context cancellation aborts the remainder.
func (e *Emitter) EmitBatch(ctx context.Context, source string, records []pipeline.Record, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	emitted := 0
	for i, record := range records {
		if i > 0 && i%batchSize == 0 {
			select {
			case <-ctx.Done():
				return emitted, errors.WrapTransient(ctx.Err(), "Emitter", "EmitBatch", "context cancelled")
			case <-time.After(BatchYield):
			}
		}

		if err := e.Emit(ctx, source, record); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}

// encode stamps provenance and wraps the record in its typed envelope.
func (e *Emitter) encode(source string, record pipeline.Record) ([]byte, error) {
	pipeline.Metadata{
		Source:     source,
		IngestedAt: time.Now().UTC().Format(time.RFC3339),
		Ingestor:   e.kind,
	}.Apply(record)

	payload := message.NewRecord(record)
	msg := message.NewBaseMessage(payload.Schema(), payload, e.name)

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Emitter", "encode", "marshal record message")
	}
	return data, nil
}
