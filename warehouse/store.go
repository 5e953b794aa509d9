package warehouse

import (
	"context"
	"log/slog"

	"github.com/c360/etlstreams/pipeline"
)

// Store persists processed records. Implementations must be safe for
// concurrent use; the processor and the coordinator may load records
// from separate goroutines.
type Store interface {
	// LoadRecord persists a single record. A nil or empty record is
	// rejected with an invalid-classified error.
	LoadRecord(ctx context.Context, record pipeline.Record) error

	// LoadBatch persists records in order and returns the number
	// actually loaded. Per-record failures do not abort the batch;
	// the joined error covers every record that failed.
	LoadBatch(ctx context.Context, records []pipeline.Record) (int, error)

	// Stats returns a snapshot of load counters.
	Stats() StoreStats

	// Close flushes buffered data and releases resources.
	Close() error
}

// StoreStats is a point-in-time snapshot of a store's counters.
type StoreStats struct {
	RecordsLoaded int64  `json:"records_loaded"`
	LoadErrors    int64  `json:"load_errors"`
	LastKey       string `json:"last_key,omitempty"`
	LastLoadTime  int64  `json:"last_load_time,omitempty"` // Unix milliseconds
}

// LogValue implements slog.LogValuer for structured logging.
func (s StoreStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("records_loaded", s.RecordsLoaded),
		slog.Int64("load_errors", s.LoadErrors),
		slog.String("last_key", s.LastKey),
		slog.Int64("last_load_time", s.LastLoadTime),
	)
}
