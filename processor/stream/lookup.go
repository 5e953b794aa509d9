package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/natsclient"
	"github.com/c360/etlstreams/pkg/cache"
)

const (
	// kvLookupTimeout bounds one reference-row fetch.
	kvLookupTimeout = 2 * time.Second

	// kvResolveTimeout bounds binding to the reference bucket.
	kvResolveTimeout = 5 * time.Second

	// kvResolveRetryEvery spaces bucket binding retries after a failure so
	// a NATS outage does not stall every enrichment on a dial attempt.
	kvResolveRetryEvery = 30 * time.Second
)

// kvLookup serves enrichment reference rows from a NATS KV bucket, fronted
// by a cache so hot join keys skip the round trip. Lookup misses and KV
// failures both report a miss; the enrich stage treats a miss as
// pass-through, so reference-store trouble degrades to unjoined records
// rather than failing them.
type kvLookup struct {
	conn   Conn
	bucket string
	cache  cache.Cache[map[string]any]
	logger *slog.Logger
	cancel context.CancelFunc

	mu      sync.Mutex
	kv      jetstream.KeyValue
	nextTry time.Time
}

// newKVLookup creates the lookup source. The bucket binds lazily on first
// use so construction never needs a live NATS connection. The conn must be
// non-nil; the processor validates that before building the enricher.
func newKVLookup(
	conn Conn, bucket string, cacheCfg cache.Config, logger *slog.Logger,
) (*kvLookup, error) {
	// An unset cache section still gets a TTL front; disabling requires an
	// explicit enabled:false with a strategy.
	if cacheCfg.Strategy == "" {
		cacheCfg = cache.Config{
			Enabled:         true,
			Strategy:        cache.StrategyTTL,
			TTL:             5 * time.Minute,
			CleanupInterval: time.Minute,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	front, err := cache.NewFromConfig[map[string]any](ctx, cacheCfg)
	if err != nil {
		cancel()
		return nil, errors.WrapInvalid(err, componentName, "newKVLookup", "lookup cache")
	}

	return &kvLookup{
		conn:   conn,
		bucket: bucket,
		cache:  front,
		logger: logger,
		cancel: cancel,
	}, nil
}

// Lookup implements pipeline.LookupSource.
func (l *kvLookup) Lookup(key string) (map[string]any, bool) {
	if row, ok := l.cache.Get(key); ok {
		return row, true
	}

	kv := l.handle()
	if kv == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), kvLookupTimeout)
	defer cancel()

	entry, err := kv.Get(ctx, sanitizeLookupKey(key))
	if err != nil {
		if !natsclient.IsKVNotFoundError(err) {
			l.logger.Warn("Reference lookup failed",
				"bucket", l.bucket,
				"key", key,
				"error", err)
		}
		return nil, false
	}

	var row map[string]any
	if err := json.Unmarshal(entry.Value(), &row); err != nil {
		l.logger.Warn("Reference row is not a JSON object",
			"bucket", l.bucket,
			"key", key,
			"error", err)
		return nil, false
	}

	_, _ = l.cache.Set(key, row)
	return row, true
}

// handle returns the bucket, binding it on first use and retrying failed
// binds on a cooldown.
func (l *kvLookup) handle() jetstream.KeyValue {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.kv != nil {
		return l.kv
	}
	if time.Now().Before(l.nextTry) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), kvResolveTimeout)
	defer cancel()

	kv, err := l.conn.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      l.bucket,
		Description: "Reference rows for enrichment joins",
	})
	if err != nil {
		l.nextTry = time.Now().Add(kvResolveRetryEvery)
		l.logger.Warn("Reference bucket unavailable, lookups degrade to misses",
			"bucket", l.bucket,
			"error", err)
		return nil
	}

	l.kv = kv
	return kv
}

// Close releases the fronting cache.
func (l *kvLookup) Close() error {
	l.cancel()
	return l.cache.Close()
}

// sanitizeLookupKey maps a join value onto the NATS KV key alphabet, the
// same mapping the warehouse applies to record ids.
func sanitizeLookupKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
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
