package stream

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Stats is the processor's counter snapshot. Fields are plain values copied
// from atomic counters, safe to read and serialize from any goroutine.
//
// The counters diverge by design: stage counters advance only after their
// stage succeeds, and RecordsProcessed advances only after both sinks
// succeed, so the gaps between them locate where records are failing.
type Stats struct {
	RecordsProcessed   int64   `json:"records_processed"`
	RecordsValidated   int64   `json:"records_validated"`
	RecordsTransformed int64   `json:"records_transformed"`
	RecordsEnriched    int64   `json:"records_enriched"`
	ProcessingErrors   int64   `json:"processing_errors"`
	ProcessingSeconds  float64 `json:"processing_seconds"`
	LastBatch          string  `json:"last_batch,omitempty"`
}

// LogValue renders the snapshot as grouped structured log fields.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("records_processed", s.RecordsProcessed),
		slog.Int64("records_validated", s.RecordsValidated),
		slog.Int64("records_transformed", s.RecordsTransformed),
		slog.Int64("records_enriched", s.RecordsEnriched),
		slog.Int64("processing_errors", s.ProcessingErrors),
		slog.Float64("processing_seconds", s.ProcessingSeconds),
	)
}

// Status is the processor's lifecycle snapshot.
type Status struct {
	State          string `json:"state"`
	Running        bool   `json:"running"`
	NATSWired      bool   `json:"nats_wired"`
	WarehouseWired bool   `json:"warehouse_wired"`
	Stats          Stats  `json:"stats"`
}

// counters tracks processing progress with atomic fields.
type counters struct {
	processed   int64
	validated   int64
	transformed int64
	enriched    int64
	failures    int64
	nanos       int64
	lastBatch   atomic.Value // string
}

func (c *counters) stageValidated() {
	atomic.AddInt64(&c.validated, 1)
}

func (c *counters) stageTransformed() {
	atomic.AddInt64(&c.transformed, 1)
}

func (c *counters) stageEnriched() {
	atomic.AddInt64(&c.enriched, 1)
}

// recordDone counts one fully processed record and its elapsed time.
func (c *counters) recordDone(elapsed time.Duration) {
	atomic.AddInt64(&c.processed, 1)
	atomic.AddInt64(&c.nanos, int64(elapsed))
}

// recordFailed counts one failed record. Exactly one call per record.
func (c *counters) recordFailed() {
	atomic.AddInt64(&c.failures, 1)
}

func (c *counters) markBatch(source string) {
	if source != "" {
		c.lastBatch.Store(source)
	}
}

func (c *counters) processedTotal() int64 {
	return atomic.LoadInt64(&c.processed)
}

func (c *counters) failureTotal() int64 {
	return atomic.LoadInt64(&c.failures)
}

// snapshot returns a detached stats copy.
func (c *counters) snapshot() Stats {
	lastBatch, _ := c.lastBatch.Load().(string)
	return Stats{
		RecordsProcessed:   atomic.LoadInt64(&c.processed),
		RecordsValidated:   atomic.LoadInt64(&c.validated),
		RecordsTransformed: atomic.LoadInt64(&c.transformed),
		RecordsEnriched:    atomic.LoadInt64(&c.enriched),
		ProcessingErrors:   atomic.LoadInt64(&c.failures),
		ProcessingSeconds:  time.Duration(atomic.LoadInt64(&c.nanos)).Seconds(),
		LastBatch:          lastBatch,
	}
}
