package warehouse

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/natsclient"
	"github.com/c360/etlstreams/pipeline"
	"github.com/c360/etlstreams/pkg/timestamp"
)

// DefaultBucket is the KV bucket used when no bucket name is configured.
const DefaultBucket = "etl-warehouse"

// kvHistory keeps this many revisions per key so as-of queries can
// resolve recent record versions.
const kvHistory = 5

// KVStore loads processed records into a JetStream KV bucket keyed by
// record id. Records without an id get a generated UUID key.
type KVStore struct {
	bucket   string
	kv       *natsclient.KVStore
	resolver *natsclient.TemporalResolver
	logger   *slog.Logger

	recordsLoaded int64
	loadErrors    int64

	mu           sync.RWMutex
	lastKey      string
	lastLoadTime int64
}

// NewKVStore creates the bucket if needed and returns a store bound to it.
// An empty bucket name selects DefaultBucket.
func NewKVStore(
	ctx context.Context,
	natsClient *natsclient.Client,
	bucket string,
	logger *slog.Logger,
) (*KVStore, error) {
	if natsClient == nil {
		return nil, errors.WrapInvalid(nil, "warehouse", "NewKVStore", "nats client cannot be nil")
	}
	if bucket == "" {
		bucket = DefaultBucket
	}
	if logger == nil {
		logger = slog.Default()
	}

	handle, err := natsClient.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Processed records keyed by record id",
		History:     kvHistory,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "warehouse", "NewKVStore", "create KV bucket")
	}

	return &KVStore{
		bucket:   bucket,
		kv:       natsClient.NewKVStore(handle),
		resolver: natsclient.NewTemporalResolver(ctx, handle),
		logger:   logger.With("component", "warehouse-kv", "bucket", bucket),
	}, nil
}

// LoadRecord marshals the record and writes it under its sanitized id.
func (s *KVStore) LoadRecord(ctx context.Context, record pipeline.Record) error {
	if len(record) == 0 {
		atomic.AddInt64(&s.loadErrors, 1)
		return errors.WrapInvalid(errors.ErrEmptyRecord, "warehouse", "LoadRecord", "record cannot be empty")
	}

	key := recordKey(record)
	data, err := json.Marshal(record)
	if err != nil {
		atomic.AddInt64(&s.loadErrors, 1)
		return errors.WrapInvalid(err, "warehouse", "LoadRecord", "marshal record")
	}

	if _, err := s.kv.Put(ctx, key, data); err != nil {
		atomic.AddInt64(&s.loadErrors, 1)
		return errors.WrapTransient(err, "warehouse", "LoadRecord", "put record in KV")
	}

	atomic.AddInt64(&s.recordsLoaded, 1)
	s.mu.Lock()
	s.lastKey = key
	s.lastLoadTime = timestamp.Now()
	s.mu.Unlock()

	return nil
}

// LoadBatch loads records in order. Each failure is collected; the batch
// continues past failed records.
func (s *KVStore) LoadBatch(ctx context.Context, records []pipeline.Record) (int, error) {
	var errs []error
	loaded := 0
	for _, record := range records {
		if err := s.LoadRecord(ctx, record); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	return loaded, stderrors.Join(errs...)
}

// RecordAsOf returns the version of a record that was current at the
// given time, resolved from KV revision history.
func (s *KVStore) RecordAsOf(ctx context.Context, id string, at time.Time) (pipeline.Record, error) {
	if id == "" {
		return nil, errors.WrapInvalid(nil, "warehouse", "RecordAsOf", "record id cannot be empty")
	}

	entry, err := s.resolver.GetAtTimestamp(ctx, sanitizeKey(id), at)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, errors.WrapInvalid(err, "warehouse", "RecordAsOf", "record not found")
		}
		return nil, errors.WrapTransient(err, "warehouse", "RecordAsOf", "resolve record history")
	}

	var record pipeline.Record
	if err := json.Unmarshal(entry.Value(), &record); err != nil {
		return nil, errors.WrapInvalid(err, "warehouse", "RecordAsOf", "unmarshal record")
	}
	return record, nil
}

// Stats returns a snapshot of load counters.
func (s *KVStore) Stats() StoreStats {
	s.mu.RLock()
	lastKey := s.lastKey
	lastLoad := s.lastLoadTime
	s.mu.RUnlock()

	return StoreStats{
		RecordsLoaded: atomic.LoadInt64(&s.recordsLoaded),
		LoadErrors:    atomic.LoadInt64(&s.loadErrors),
		LastKey:       lastKey,
		LastLoadTime:  lastLoad,
	}
}

// Bucket returns the KV bucket name this store writes to.
func (s *KVStore) Bucket() string {
	return s.bucket
}

// Close releases the history cache held by the as-of resolver.
func (s *KVStore) Close() error {
	if s.resolver != nil {
		return s.resolver.Close()
	}
	return nil
}

// recordKey derives the KV key for a record: the sanitized record id,
// or a generated UUID when the record has no usable id.
func recordKey(record pipeline.Record) string {
	if key := sanitizeKey(record.ID()); key != "" {
		return key
	}
	return uuid.NewString()
}

// sanitizeKey maps a record id onto the NATS KV key alphabet. Characters
// outside [-/_=.a-zA-Z0-9] become underscores; leading and trailing dots
// are stripped because NATS rejects them.
func sanitizeKey(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '/' || r == '_' || r == '=' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), ".")
}
