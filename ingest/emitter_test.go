package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/etlstreams/message"
	"github.com/c360/etlstreams/pipeline"
)

// capturePublisher records published messages for assertions.
type capturePublisher struct {
	mu       sync.Mutex
	subjects []string
	data     [][]byte
	headers  []nats.Header
	failAt   int // 1-based publish index that fails, 0 = never
	calls    int
}

func (p *capturePublisher) PublishWithHeader(_ context.Context, subject string, data []byte, header nats.Header) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.failAt > 0 && p.calls >= p.failAt {
		return errors.New("publish failed")
	}
	p.subjects = append(p.subjects, subject)
	p.data = append(p.data, data)
	p.headers = append(p.headers, header)
	return nil
}

func (p *capturePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.data)
}

func TestEmitter_Emit(t *testing.T) {
	pub := &capturePublisher{}
	emitter := NewEmitter(pub, "", KindCSV, "csv-ingestor")

	record := pipeline.Record{"id": "r1", "amount": 12.5}
	err := emitter.Emit(context.Background(), "/data/orders.csv", record)
	require.NoError(t, err)

	require.Equal(t, 1, pub.published())
	assert.Equal(t, RawSubject, pub.subjects[0])
	assert.Equal(t, "/data/orders.csv", pub.headers[0].Get(KeyHeader))

	// The wire payload is a typed record envelope carrying provenance.
	var msg message.BaseMessage
	require.NoError(t, json.Unmarshal(pub.data[0], &msg))

	payload, ok := msg.Payload().(*message.RecordPayload)
	require.True(t, ok)
	assert.Equal(t, "r1", payload.Record.ID())

	md := payload.Record.Metadata()
	assert.Equal(t, "/data/orders.csv", md.Source)
	assert.Equal(t, KindCSV, md.Ingestor)
	assert.NotEmpty(t, md.IngestedAt)
}

func TestEmitter_EmitEmptyRecord(t *testing.T) {
	emitter := NewEmitter(&capturePublisher{}, "", KindCSV, "csv-ingestor")

	err := emitter.Emit(context.Background(), "src", pipeline.Record{})
	assert.Error(t, err)
}

func TestEmitter_EmitNilPublisher(t *testing.T) {
	emitter := NewEmitter(nil, "", KindCSV, "csv-ingestor")

	err := emitter.Emit(context.Background(), "src", pipeline.Record{"id": "x"})
	assert.Error(t, err)
}

func TestEmitter_EmitBatch(t *testing.T) {
	pub := &capturePublisher{}
	emitter := NewEmitter(pub, "custom.raw", KindAPI, "api-ingestor")

	records := make([]pipeline.Record, 5)
	for i := range records {
		records[i] = pipeline.Record{"id": i}
	}

	emitted, err := emitter.EmitBatch(context.Background(), "https://api.example.com", records, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, emitted)
	assert.Equal(t, 5, pub.published())
	assert.Equal(t, "custom.raw", pub.subjects[0])
}

func TestEmitter_EmitBatchStopsOnPublishFailure(t *testing.T) {
	pub := &capturePublisher{failAt: 3}
	emitter := NewEmitter(pub, "", KindAPI, "api-ingestor")

	records := make([]pipeline.Record, 5)
	for i := range records {
		records[i] = pipeline.Record{"id": i}
	}

	emitted, err := emitter.EmitBatch(context.Background(), "src", records, 10)
	assert.Error(t, err)
	assert.Equal(t, 2, emitted)
}

func TestEmitter_EmitBatchHonorsCancel(t *testing.T) {
	pub := &capturePublisher{}
	emitter := NewEmitter(pub, "", KindCSV, "csv-ingestor")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := make([]pipeline.Record, 4)
	for i := range records {
		records[i] = pipeline.Record{"id": i}
	}

	// Batch size 1 forces a yield point after the first record, where the
	// cancelled context is observed.
	emitted, err := emitter.EmitBatch(ctx, "src", records, 1)
	assert.Error(t, err)
	assert.Less(t, emitted, len(records))
}
