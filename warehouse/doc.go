// Package warehouse persists processed pipeline records.
//
// # Overview
//
// The warehouse is the durable side of the dual-publish step: every
// record that survives the processing stages is published downstream
// and loaded into a warehouse Store. Two implementations are provided:
//
//   - KVStore: NATS JetStream KV bucket, one entry per record keyed by
//     the sanitized record id. Revision history enables as-of queries.
//   - FileStore: append-only JSONL files, one file per UTC day, with
//     buffered writes.
//
// # Store Contract
//
// Both implementations satisfy the Store interface:
//
//	type Store interface {
//		LoadRecord(ctx context.Context, record pipeline.Record) error
//		LoadBatch(ctx context.Context, records []pipeline.Record) (int, error)
//		Stats() StoreStats
//		Close() error
//	}
//
// LoadBatch never aborts on a per-record failure: it keeps loading and
// returns the count of loaded records together with a joined error.
//
// # Record Keys
//
// KVStore keys are derived from the record id. Characters outside the
// NATS KV key alphabet [-/_=.a-zA-Z0-9] become underscores, and leading
// or trailing dots are stripped. Records without an id get a generated
// UUID key so no record is ever dropped for lack of identity.
//
// # As-Of Queries
//
// The KV bucket keeps revision history, so KVStore can answer "what did
// this record look like at time T":
//
//	store, _ := warehouse.NewKVStore(ctx, nc, "etl-warehouse", logger)
//	rec, err := store.RecordAsOf(ctx, "order-1042", time.Now().Add(-1*time.Hour))
//
// # File Layout
//
// FileStore writes records-2006-01-02.jsonl files under its directory,
// rotating when the UTC day changes. Records buffer in memory until the
// buffer fills, Flush is called, or the store closes:
//
//	store, _ := warehouse.NewFileStore("/var/lib/etl/warehouse", logger,
//		warehouse.WithBufferSize(500))
//	defer store.Close()
//
// # Error Classification
//
// Following the errors package conventions:
//   - WrapInvalid: empty records, marshal failures, unknown record ids
//   - WrapTransient: KV writes, file opens, flush failures
package warehouse
