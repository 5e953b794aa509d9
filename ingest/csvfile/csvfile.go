package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/ingest"
	"github.com/c360/etlstreams/metric"
	"github.com/c360/etlstreams/pipeline"
)

const componentName = "csv-ingestor"

// Ingestor reads CSV files and publishes each row as a raw record. Passes
// are pull-based: the coordinator (or any caller) invokes Ingest with a
// per-call config; Start only marks the ingestor active.
type Ingestor struct {
	name       string
	outputSubj string
	defaults   ingest.Config
	emitter    *ingest.Emitter
	logger     *slog.Logger

	// Lifecycle management
	state       component.State
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	shutdown    chan struct{}
	wg          *sync.WaitGroup

	// ingestMu serializes passes so the processed-file set and per-pass
	// logging stay coherent.
	ingestMu  sync.Mutex
	processed map[string]bool

	counters ingest.Counters
	metrics  *ingest.Metrics
}

// NewIngestor creates a CSV ingestor publishing through the given publisher.
// The publisher must be non-nil; factories validate that before calling.
func NewIngestor(
	name string, publisher ingest.Publisher, cfg Config,
	registry *metric.MetricsRegistry, logger *slog.Logger,
) (*Ingestor, error) {
	if cfg.Ports == nil {
		cfg = DefaultConfig()
	}

	outputSubj := ingest.RawSubject
	if len(cfg.Ports.Outputs) > 0 && cfg.Ports.Outputs[0].Subject != "" {
		outputSubj = cfg.Ports.Outputs[0].Subject
	}

	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := ingest.NewMetrics(registry, ingest.KindCSV)
	if err != nil {
		logger.Error("Failed to initialize CSV ingest metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	return &Ingestor{
		name:       name,
		outputSubj: outputSubj,
		defaults:   cfg.Defaults.Normalized(),
		emitter:    ingest.NewEmitter(publisher, outputSubj, ingest.KindCSV, name),
		logger:     logger,
		state:      component.StateCreated,
		shutdown:   make(chan struct{}),
		wg:         &sync.WaitGroup{},
		processed:  make(map[string]bool),
		metrics:    metrics,
	}, nil
}

// Kind identifies this ingestor's source kind.
func (c *Ingestor) Kind() string {
	return ingest.KindCSV
}

// Initialize prepares the ingestor for starting.
func (c *Ingestor) Initialize() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != component.StateCreated {
		return errors.WrapFatal(errors.ErrAlreadyInitialized, componentName, "Initialize", "lifecycle check")
	}
	c.state = component.StateInitialized
	return nil
}

// Start marks the ingestor active so passes can run.
func (c *Ingestor) Start(_ context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case component.StateStarted:
		return errors.WrapFatal(errors.ErrAlreadyStarted, componentName, "Start", "lifecycle check")
	case component.StateCreated:
		return errors.WrapFatal(errors.ErrNotInitialized, componentName, "Start", "lifecycle check")
	}

	c.shutdown = make(chan struct{})
	c.state = component.StateStarted
	c.startTime = time.Now()

	c.logger.Info("CSV ingestor started",
		"component", c.name,
		"output_subject", c.outputSubj,
		"default_path", c.defaults.Path,
		"batch_size", c.defaults.BatchSize)

	return nil
}

// Stop waits for in-flight passes to finish, up to the timeout. Passes
// observe the shutdown signal between files and wind down early.
func (c *Ingestor) Stop(timeout time.Duration) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	if c.state != component.StateStarted {
		c.mu.Unlock()
		return nil
	}
	c.state = component.StateStopping
	c.mu.Unlock()

	close(c.shutdown)

	waitCh := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			componentName, "Stop", "graceful shutdown")
	}

	c.mu.Lock()
	c.state = component.StateStopped
	c.mu.Unlock()

	c.logger.Info("CSV ingestor stopped", "component", c.name)
	return nil
}

// Ingest runs one pass over cfg.Path, which may name a single CSV file or
// a directory of them. Returns the number of records published.
func (c *Ingestor) Ingest(ctx context.Context, cfg ingest.Config) (int, error) {
	c.mu.RLock()
	if c.state != component.StateStarted {
		c.mu.RUnlock()
		return 0, errors.WrapFatal(errors.ErrNotStarted, componentName, "Ingest", "lifecycle check")
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	c.ingestMu.Lock()
	defer c.ingestMu.Unlock()

	cfg = cfg.MergeDefaults(c.defaults)
	if cfg.Path == "" {
		return 0, errors.WrapInvalid(errors.ErrMissingConfig, componentName, "Ingest", "path required")
	}

	start := time.Now()
	defer func() {
		c.counters.TimeSpent(time.Since(start))
	}()

	info, err := os.Stat(cfg.Path)
	if err != nil {
		c.counters.ErrorSeen()
		c.metrics.RecordError(c.name, "read")
		return 0, errors.WrapInvalid(
			fmt.Errorf("%w: stat %s: %v", ingest.ErrSourceRead, cfg.Path, err),
			componentName, "Ingest", "source lookup")
	}

	if info.IsDir() {
		return c.ingestDirectory(ctx, cfg)
	}

	if cfg.Incremental && c.processed[cfg.Path] {
		c.logger.Debug("Skipping already-ingested file",
			"component", c.name, "path", cfg.Path)
		return 0, nil
	}
	return c.ingestFile(ctx, cfg.Path, cfg)
}

// ingestDirectory walks *.csv files in name order. Each file is processed
// independently: a failure is counted and logged, and the walk continues.
func (c *Ingestor) ingestDirectory(ctx context.Context, cfg ingest.Config) (int, error) {
	pattern := filepath.Join(cfg.Path, "*.csv")
	files, err := filepath.Glob(pattern)
	if err != nil {
		c.counters.ErrorSeen()
		c.metrics.RecordError(c.name, "read")
		return 0, errors.WrapInvalid(
			fmt.Errorf("%w: scan %s: %v", ingest.ErrSourceRead, pattern, err),
			componentName, "ingestDirectory", "directory scan")
	}
	sort.Strings(files)

	total := 0
	failed := 0
	for _, path := range files {
		select {
		case <-ctx.Done():
			return total, errors.WrapTransient(ctx.Err(), componentName, "ingestDirectory", "pass cancelled")
		case <-c.shutdown:
			return total, errors.WrapTransient(errors.ErrShuttingDown, componentName, "ingestDirectory", "pass interrupted")
		default:
		}

		if cfg.Incremental && c.processed[path] {
			c.logger.Debug("Skipping already-ingested file",
				"component", c.name, "path", path)
			continue
		}

		n, err := c.ingestFile(ctx, path, cfg)
		total += n
		if err != nil {
			failed++
			c.logger.Warn("File ingestion failed, continuing directory walk",
				"component", c.name,
				"path", path,
				"records_before_failure", n,
				"error", err)
		}
	}

	c.logger.Info("Directory pass complete",
		"component", c.name,
		"path", cfg.Path,
		"files", len(files),
		"failed_files", failed,
		"records", total)

	return total, nil
}

// ingestFile reads one CSV file and publishes its rows. Exactly one error
// is counted when the file fails, plus one per row dropped by validation.
func (c *Ingestor) ingestFile(ctx context.Context, path string, cfg ingest.Config) (int, error) {
	fileStart := time.Now()

	records, dropped, err := c.readRows(path, cfg.Validator())
	if err != nil {
		c.counters.ErrorSeen()
		c.metrics.RecordError(c.name, "read")
		return 0, err
	}

	if dropped > 0 {
		c.counters.ErrorsSeen(dropped)
		for i := 0; i < dropped; i++ {
			c.metrics.RecordError(c.name, "row")
		}
		c.logger.Warn("Dropped rows failing schema validation",
			"component", c.name,
			"path", path,
			"dropped", dropped)
	}

	emitted, err := c.emitter.EmitBatch(ctx, path, records, cfg.BatchSize)
	if emitted > 0 {
		c.counters.RecordsEmitted(emitted)
		c.metrics.RecordIngested(c.name, emitted)
	}
	if err != nil {
		c.counters.ErrorSeen()
		c.metrics.RecordError(c.name, "publish")
		return emitted, err
	}

	c.processed[path] = true
	c.counters.SourceDone()
	c.counters.MarkSource(path)
	c.metrics.RecordSource(c.name, time.Since(fileStart))

	c.logger.Debug("File ingested",
		"component", c.name,
		"path", path,
		"records", emitted,
		"dropped_rows", dropped,
		"duration_ms", time.Since(fileStart).Milliseconds())

	return emitted, nil
}

// readRows parses one CSV file into records. The header row supplies field
// names; empty cells are omitted so schema defaults and required checks see
// them as absent. Returns the dropped-row count when a validator is set.
func (c *Ingestor) readRows(path string, validator *pipeline.Validator) ([]pipeline.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.WrapInvalid(
			fmt.Errorf("%w: open %s: %v", ingest.ErrSourceRead, path, err),
			componentName, "readRows", "file open")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, errors.WrapInvalid(
			fmt.Errorf("%w: parse %s: %v", ingest.ErrSourceRead, path, err),
			componentName, "readRows", "csv parse")
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}

	header := rows[0]
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	records := make([]pipeline.Record, 0, len(rows)-1)
	dropped := 0
	for _, row := range rows[1:] {
		record := rowToRecord(header, row)
		if len(record) == 0 {
			continue // blank line
		}
		if validator != nil {
			validated, err := validator.Validate(record)
			if err != nil {
				dropped++
				continue
			}
			record = validated
		}
		records = append(records, record)
	}

	return records, dropped, nil
}

// rowToRecord maps header names to row values. Rows shorter than the header
// leave the trailing fields absent; extra cells are ignored.
func rowToRecord(header, row []string) pipeline.Record {
	record := make(pipeline.Record, len(header))
	for i, name := range header {
		if name == "" || i >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}
		record[name] = value
	}
	return record
}

// Status reports the lifecycle state and most recent source.
func (c *Ingestor) Status() ingest.Status {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	return ingest.Status{
		Kind:           ingest.KindCSV,
		State:          state.String(),
		Active:         state == component.StateStarted,
		LastSource:     c.counters.LastSource(),
		LastIngestTime: c.counters.LastIngestTime(),
	}
}

// Stats returns a snapshot of ingestion counters.
func (c *Ingestor) Stats() ingest.Stats {
	return c.counters.Snapshot()
}

// Discoverable interface implementation

// Meta returns metadata describing this ingestor component.
func (c *Ingestor) Meta() component.Metadata {
	return component.Metadata{
		Name:        c.name,
		Type:        "ingestor",
		Description: "CSV file-batch ingestor publishing raw records",
		Version:     "0.1.0",
	}
}

// InputPorts returns the file input this ingestor reads from.
func (c *Ingestor) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:      "file_input",
			Direction: component.DirectionInput,
			Required:  false,
			Config: component.FilePort{
				Path:    c.defaults.Path,
				Pattern: "*.csv",
			},
		},
	}
}

// OutputPorts returns the NATS output port for raw records.
func (c *Ingestor) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:      "nats_output",
			Direction: component.DirectionOutput,
			Required:  true,
			Config: component.NATSPort{
				Subject: c.outputSubj,
				Interface: &component.InterfaceContract{
					Type:    "etl.record.v1",
					Version: "v1",
				},
			},
		},
	}
}

// ConfigSchema returns the configuration schema for this ingestor.
func (c *Ingestor) ConfigSchema() component.ConfigSchema {
	return csvSchema
}

// Health returns the current health status of this ingestor.
func (c *Ingestor) Health() component.HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    c.state == component.StateStarted,
		LastCheck:  time.Now(),
		ErrorCount: int(c.counters.Errors()),
		Uptime:     time.Since(c.startTime),
	}
}

// DataFlow returns current data flow metrics for this ingestor.
func (c *Ingestor) DataFlow() component.FlowMetrics {
	stats := c.counters.Snapshot()

	var errorRate float64
	if total := stats.RecordsIngested + stats.IngestErrors; total > 0 {
		errorRate = float64(stats.IngestErrors) / float64(total)
	}

	return component.FlowMetrics{
		ErrorRate:    errorRate,
		LastActivity: time.UnixMilli(stats.LastIngestTime),
	}
}
