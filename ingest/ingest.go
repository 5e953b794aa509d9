// Package ingest defines the capability contract shared by all record
// ingestors: lifecycle, ad-hoc ingestion passes, and stats/status snapshots.
//
// Concrete variants live in subpackages (csvfile, httppoll, scrape,
// devicestream). The ingestion coordinator drives every variant through the
// Ingestor interface and never inspects the concrete type; new source kinds
// plug in by implementing the interface and registering under a kind key.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/c360/etlstreams/component"
)

// Registered source kinds. The coordinator routes IngestFromSource calls
// by these keys.
const (
	// KindCSV is the file-batch CSV ingestor.
	KindCSV = "csv"
	// KindAPI is the HTTP-poll API ingestor.
	KindAPI = "api"
	// KindScraper is the web scrape ingestor.
	KindScraper = "web_scraper"
	// KindStreaming is the device websocket stream ingestor.
	KindStreaming = "streaming"
)

// RawSubject is the default subject raw records are published to.
const RawSubject = "etl.raw.records"

// ProcessedSubject is the default subject enriched records land on.
const ProcessedSubject = "etl.processed.records"

// KeyHeader is the NATS message header carrying the record key on the raw
// and processed subjects: source identifier for raw records, record id for
// processed ones.
const KeyHeader = "Etl-Key"

// UnknownKey is the key sentinel used when a record carries no id.
const UnknownKey = "unknown"

// Sentinel errors for source-level failures.
var (
	// ErrUnknownSourceKind marks dispatch to an unregistered ingestor kind.
	ErrUnknownSourceKind = errors.New("unknown source kind")
	// ErrSourceRead marks a file, endpoint, or frame that could not be read.
	ErrSourceRead = errors.New("source read failed")
)

// Ingestor is the capability contract every source variant implements.
//
// Lifecycle follows the framework pattern: Initialize prepares resources,
// Start launches any continuous feed (polling loop, websocket reader), and
// Stop drains it within the timeout. Ingest performs one synchronous pass
// against the given config and returns the number of records emitted; it is
// valid whenever the ingestor is started and may run concurrently with the
// continuous feed.
type Ingestor interface {
	component.LifecycleComponent

	// Kind returns the registry key for this variant.
	Kind() string

	// Ingest runs one ingestion pass and returns the emitted record count.
	// The config is immutable for the duration of the call.
	Ingest(ctx context.Context, cfg Config) (int, error)

	// Status returns a side-effect-free lifecycle snapshot.
	Status() Status

	// Stats returns a detached counter snapshot.
	Stats() Stats
}

// StopTimeout is the default per-ingestor shutdown wait used by callers
// that have no configured timeout.
const StopTimeout = 10 * time.Second
