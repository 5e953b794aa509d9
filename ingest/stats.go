package ingest

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/c360/etlstreams/pkg/timestamp"
)

// Stats is the counter snapshot every ingestor exposes. Fields are plain
// values copied from atomic counters, safe to read and serialize from any
// goroutine.
type Stats struct {
	FilesProcessed    int64   `json:"files_processed"`
	RecordsIngested   int64   `json:"records_ingested"`
	IngestErrors      int64   `json:"ingest_errors"`
	LastSource        string  `json:"last_source,omitempty"`
	LastIngestTime    int64   `json:"last_ingest_time,omitempty"`
	ProcessingSeconds float64 `json:"processing_seconds"`
}

// LogValue renders the snapshot as grouped structured log fields.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("files_processed", s.FilesProcessed),
		slog.Int64("records_ingested", s.RecordsIngested),
		slog.Int64("ingest_errors", s.IngestErrors),
		slog.String("last_source", s.LastSource),
		slog.Float64("processing_seconds", s.ProcessingSeconds),
	)
}

// Status is the lifecycle snapshot every ingestor exposes.
type Status struct {
	Kind           string `json:"kind"`
	State          string `json:"state"`
	Active         bool   `json:"active"`
	LastSource     string `json:"last_source,omitempty"`
	LastIngestTime int64  `json:"last_ingest_time,omitempty"`
}

// Counters tracks ingestion progress with atomic fields. Each ingestor
// embeds one; all methods are safe for concurrent use and Snapshot returns
// a detached Stats copy.
type Counters struct {
	filesProcessed  int64
	recordsIngested int64
	ingestErrors    int64
	processingNanos int64
	lastIngestTime  int64        // Unix milliseconds
	lastSource      atomic.Value // string
}

// SourceDone records one fully processed source (file, endpoint, target).
func (c *Counters) SourceDone() {
	atomic.AddInt64(&c.filesProcessed, 1)
}

// RecordsEmitted adds n successfully published records.
func (c *Counters) RecordsEmitted(n int) {
	atomic.AddInt64(&c.recordsIngested, int64(n))
}

// ErrorSeen counts one failed source, batch, or frame.
func (c *Counters) ErrorSeen() {
	atomic.AddInt64(&c.ingestErrors, 1)
}

// ErrorsSeen adds n failures at once, used when one pass drops several rows.
func (c *Counters) ErrorsSeen(n int) {
	if n > 0 {
		atomic.AddInt64(&c.ingestErrors, int64(n))
	}
}

// TimeSpent accumulates processing time for one pass.
func (c *Counters) TimeSpent(d time.Duration) {
	atomic.AddInt64(&c.processingNanos, int64(d))
}

// MarkSource records the most recent source and stamps the ingest time.
func (c *Counters) MarkSource(source string) {
	c.lastSource.Store(source)
	atomic.StoreInt64(&c.lastIngestTime, timestamp.Now())
}

// Records returns the current emitted-record count.
func (c *Counters) Records() int64 {
	return atomic.LoadInt64(&c.recordsIngested)
}

// Errors returns the current error count.
func (c *Counters) Errors() int64 {
	return atomic.LoadInt64(&c.ingestErrors)
}

// LastSource returns the most recently ingested source identifier.
func (c *Counters) LastSource() string {
	if v, ok := c.lastSource.Load().(string); ok {
		return v
	}
	return ""
}

// LastIngestTime returns the Unix-millisecond stamp of the latest ingest.
func (c *Counters) LastIngestTime() int64 {
	return atomic.LoadInt64(&c.lastIngestTime)
}

// Snapshot returns a detached stats copy.
func (c *Counters) Snapshot() Stats {
	return Stats{
		FilesProcessed:    atomic.LoadInt64(&c.filesProcessed),
		RecordsIngested:   atomic.LoadInt64(&c.recordsIngested),
		IngestErrors:      atomic.LoadInt64(&c.ingestErrors),
		LastSource:        c.LastSource(),
		LastIngestTime:    atomic.LoadInt64(&c.lastIngestTime),
		ProcessingSeconds: time.Duration(atomic.LoadInt64(&c.processingNanos)).Seconds(),
	}
}
