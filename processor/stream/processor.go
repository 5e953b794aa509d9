package stream

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/ingest"
	"github.com/c360/etlstreams/message"
	"github.com/c360/etlstreams/metric"
	"github.com/c360/etlstreams/pipeline"
	"github.com/c360/etlstreams/warehouse"
)

const componentName = "stream-processor"

// Conn is the slice of *natsclient.Client the processor uses: subscribe
// for raw intake, header publish for the processed subject, and KV access
// for reference enrichment. Tests stand in a fake.
type Conn interface {
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
	PublishWithHeader(ctx context.Context, subject string, data []byte, header nats.Header) error
	CreateKeyValueBucket(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error)
}

// Processor consumes raw records, runs them through the validate,
// transform, and enrich stages, and delivers survivors to both the
// processed subject and the warehouse. A record failing anywhere is
// counted once, logged, and dropped; the subscription keeps consuming.
type Processor struct {
	name       string
	inputSubj  string
	outputSubj string
	config     Config
	conn       Conn
	store      warehouse.Store
	logger     *slog.Logger
	monitor    *metric.Monitor

	// Stages, wired by Initialize.
	validator   *pipeline.Validator
	transformer *pipeline.Transformer
	enricher    *pipeline.Enricher
	lookup      *kvLookup // non-nil when enrichment joins through NATS KV

	// Lifecycle management
	state        component.State
	startTime    time.Time
	lastActivity time.Time
	mu           sync.RWMutex
	lifecycleMu  sync.Mutex
	shutdown     chan struct{}
	wg           *sync.WaitGroup

	counters counters
	metrics  *procMetrics
}

// NewProcessor creates a stream processor from configuration. The conn and
// store may be nil here; Initialize rejects a processor missing either.
func NewProcessor(
	name string, conn Conn, store warehouse.Store, cfg Config,
	registry *metric.MetricsRegistry, logger *slog.Logger,
) (*Processor, error) {
	if cfg.Ports == nil {
		cfg = DefaultConfig()
	}

	inputSubj := ingest.RawSubject
	for _, input := range cfg.Ports.Inputs {
		if input.Type == "nats" && input.Subject != "" {
			inputSubj = input.Subject
			break
		}
	}

	outputSubj := ingest.ProcessedSubject
	if len(cfg.Ports.Outputs) > 0 && cfg.Ports.Outputs[0].Subject != "" {
		outputSubj = cfg.Ports.Outputs[0].Subject
	}

	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newProcMetrics(registry)
	if err != nil {
		logger.Error("Failed to initialize stream processor metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	return &Processor{
		name:       name,
		inputSubj:  inputSubj,
		outputSubj: outputSubj,
		config:     cfg,
		conn:       conn,
		store:      store,
		logger:     logger,
		monitor:    metric.NewMonitor(registry),
		state:      component.StateCreated,
		shutdown:   make(chan struct{}),
		wg:         &sync.WaitGroup{},
		metrics:    metrics,
	}, nil
}

// Initialize wires the pipeline stages. Requires a NATS connection and a
// warehouse store; a processor missing either is misconfigured and fails
// fatally rather than starting half-sinked.
func (p *Processor) Initialize() error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != component.StateCreated {
		return errors.WrapFatal(errors.ErrAlreadyInitialized, componentName, "Initialize", "lifecycle check")
	}
	if p.conn == nil {
		return errors.WrapFatal(errors.ErrNoConnection, componentName, "Initialize", "NATS client required")
	}
	if p.store == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, componentName, "Initialize", "warehouse store required")
	}

	p.validator = &pipeline.Validator{Schema: p.config.Schema}
	p.transformer = &pipeline.Transformer{
		Rules:      p.config.Rules,
		AddFields:  p.config.AddFields,
		DropFields: p.config.DropFields,
	}

	enricher, err := p.buildEnricher()
	if err != nil {
		return err
	}
	p.enricher = enricher

	p.state = component.StateInitialized
	return nil
}

// buildEnricher selects the reference source: NATS KV when a bucket is
// named, the inline table otherwise. The stage is always built; even
// unconfigured it stamps enriched_at on every record.
func (p *Processor) buildEnricher() (*pipeline.Enricher, error) {
	enricher := &pipeline.Enricher{}
	cfg := p.config.Enrich
	if cfg == nil {
		return enricher, nil
	}

	enricher.On = cfg.On
	enricher.Static = cfg.Static

	switch {
	case cfg.KVBucket != "":
		lookup, err := newKVLookup(p.conn, cfg.KVBucket, cfg.Cache, p.logger)
		if err != nil {
			return nil, errors.WrapFatal(err, componentName, "buildEnricher", "KV reference source")
		}
		p.lookup = lookup
		enricher.Source = lookup
	case len(cfg.Lookup) > 0:
		enricher.Source = pipeline.StaticLookup(cfg.Lookup)
	}

	return enricher, nil
}

// Start subscribes to the raw subject and begins consuming.
func (p *Processor) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case component.StateStarted:
		return errors.WrapFatal(errors.ErrAlreadyStarted, componentName, "Start", "lifecycle check")
	case component.StateCreated:
		return errors.WrapFatal(errors.ErrNotInitialized, componentName, "Start", "lifecycle check")
	}

	p.shutdown = make(chan struct{})

	if err := p.conn.Subscribe(ctx, p.inputSubj, p.handleMessage); err != nil {
		return errors.WrapTransient(err, componentName, "Start",
			fmt.Sprintf("subscribe to %s", p.inputSubj))
	}

	p.state = component.StateStarted
	p.startTime = time.Now()

	p.logger.Info("Stream processor started",
		"component", p.name,
		"input_subject", p.inputSubj,
		"output_subject", p.outputSubj,
		"schema_fields", len(p.config.Schema),
		"rules", len(p.config.Rules),
		"kv_bucket", p.kvBucket())

	return nil
}

// Stop drains in-flight records, up to the timeout. Stopping a processor
// that is not started is a no-op.
func (p *Processor) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	p.mu.Lock()
	if p.state != component.StateStarted {
		p.mu.Unlock()
		return nil
	}
	p.state = component.StateStopping
	p.mu.Unlock()

	close(p.shutdown)

	waitCh := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			componentName, "Stop", "graceful shutdown")
	}

	if p.lookup != nil {
		if err := p.lookup.Close(); err != nil {
			p.logger.Warn("Reference lookup close failed",
				"component", p.name, "error", err)
		}
	}

	p.mu.Lock()
	p.state = component.StateStopped
	p.mu.Unlock()

	p.logger.Info("Stream processor stopped",
		"component", p.name,
		"stats", p.counters.snapshot())
	return nil
}

// handleMessage runs one raw record through the full pipeline.
func (p *Processor) handleMessage(ctx context.Context, msgData []byte) {
	p.mu.RLock()
	if p.state != component.StateStarted {
		p.mu.RUnlock()
		return
	}
	p.wg.Add(1)
	shutdown := p.shutdown
	p.mu.RUnlock()
	defer p.wg.Done()

	select {
	case <-shutdown:
		return
	default:
	}

	p.mu.Lock()
	p.lastActivity = time.Now()
	p.mu.Unlock()

	record, err := decodeRecord(msgData)
	if err != nil {
		p.counters.recordFailed()
		p.metrics.recordError(p.name, "decode")
		p.logger.Debug("Dropped undecodable message",
			"component", p.name,
			"size_bytes", len(msgData),
			"error", err)
		return
	}

	start := time.Now()

	processed, err := p.runStages(record)
	if err != nil {
		p.failRecord(record, err)
		return
	}

	if err := p.sinkRecord(ctx, processed); err != nil {
		p.failRecord(processed, err)
		return
	}

	elapsed := time.Since(start)
	p.counters.recordDone(elapsed)
	p.counters.markBatch(pipeline.MetadataOf(processed).Source)
	p.metrics.recordProcessed(p.name, elapsed)
	p.monitor.RecordDuration("etl_processing_time", elapsed.Seconds())
	p.monitor.RecordMetric("etl_records_processed", float64(p.counters.processedTotal()))
}

// runStages pushes one record through validate, transform, and enrich.
// Each stage counter advances only after its stage succeeds, so the gaps
// between counters locate where records are failing.
func (p *Processor) runStages(record pipeline.Record) (pipeline.Record, error) {
	validated, err := p.validator.Validate(record)
	if err != nil {
		return nil, err
	}
	p.counters.stageValidated()
	p.metrics.recordStage(p.name, "validate")

	transformed, err := p.transformer.Transform(validated)
	if err != nil {
		return nil, err
	}
	p.counters.stageTransformed()
	p.metrics.recordStage(p.name, "transform")

	enriched, err := p.enricher.Enrich(transformed)
	if err != nil {
		return nil, err
	}
	p.counters.stageEnriched()
	p.metrics.recordStage(p.name, "enrich")

	return enriched, nil
}

// sinkRecord lands one processed record on the processed subject and in
// the warehouse. Both writes are always attempted so one failing sink
// never starves the other; either failure fails the record.
func (p *Processor) sinkRecord(ctx context.Context, record pipeline.Record) error {
	pubErr := p.publishProcessed(ctx, record)
	p.metrics.recordSink(p.name, "nats", pubErr)

	loadErr := p.store.LoadRecord(ctx, record)
	p.metrics.recordSink(p.name, "warehouse", loadErr)

	if err := stderrors.Join(pubErr, loadErr); err != nil {
		return pipeline.NewStageError(pipeline.StageSink, record.ID(),
			fmt.Errorf("%w: %w", pipeline.ErrSink, err))
	}
	return nil
}

// publishProcessed publishes the record to the processed subject, keyed by
// record id so downstream consumers can partition on the header.
func (p *Processor) publishProcessed(ctx context.Context, record pipeline.Record) error {
	payload := message.NewRecord(record)
	msg := message.NewBaseMessage(payload.Schema(), payload, p.name)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal processed record: %w", err)
	}

	key := record.ID()
	if key == "" {
		key = ingest.UnknownKey
	}
	header := nats.Header{}
	header.Set(ingest.KeyHeader, key)

	if err := p.conn.PublishWithHeader(ctx, p.outputSubj, data, header); err != nil {
		return fmt.Errorf("publish to %s: %w", p.outputSubj, err)
	}
	return nil
}

// failRecord counts one failed record and logs where it failed. Exactly
// one failure is counted per record regardless of the failing stage.
func (p *Processor) failRecord(record pipeline.Record, err error) {
	p.counters.recordFailed()

	stage := "unknown"
	var stageErr *pipeline.StageError
	if stderrors.As(err, &stageErr) {
		stage = string(stageErr.Stage)
	}
	p.metrics.recordError(p.name, stage)

	if pipeline.IsSink(err) {
		p.logger.Error("Record sink failed",
			"component", p.name,
			"record_id", record.ID(),
			"error", err)
		return
	}
	p.logger.Warn("Record failed pipeline stage",
		"component", p.name,
		"stage", stage,
		"record_id", record.ID(),
		"error", err)
}

// ProcessBatch runs records through the pipeline stages and returns the
// survivors in input order. Failed records are logged and skipped. The
// batch path never publishes and leaves the live counters alone, so
// callers can replay or dry-run a pipeline without touching the sinks.
func (p *Processor) ProcessBatch(ctx context.Context, records []pipeline.Record) []pipeline.Record {
	out := make([]pipeline.Record, 0, len(records))
	for _, record := range records {
		select {
		case <-ctx.Done():
			return out
		default:
		}

		validated, err := p.validator.Validate(record)
		if err != nil {
			p.logBatchSkip(record, err)
			continue
		}
		transformed, err := p.transformer.Transform(validated)
		if err != nil {
			p.logBatchSkip(record, err)
			continue
		}
		enriched, err := p.enricher.Enrich(transformed)
		if err != nil {
			p.logBatchSkip(record, err)
			continue
		}
		out = append(out, enriched)
	}
	return out
}

func (p *Processor) logBatchSkip(record pipeline.Record, err error) {
	p.logger.Debug("Skipping record in batch",
		"component", p.name,
		"record_id", record.ID(),
		"error", err)
}

// decodeRecord unwraps a raw-subject message into its pipeline record.
func decodeRecord(data []byte) (pipeline.Record, error) {
	var msg message.BaseMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse message envelope: %w", err)
	}

	payload, ok := msg.Payload().(*message.RecordPayload)
	if !ok {
		return nil, fmt.Errorf("payload is %T, want record", msg.Payload())
	}
	if len(payload.Record) == 0 {
		return nil, errors.ErrEmptyRecord
	}
	return payload.Record, nil
}

// kvBucket names the configured reference bucket, if any.
func (p *Processor) kvBucket() string {
	if p.config.Enrich == nil {
		return ""
	}
	return p.config.Enrich.KVBucket
}

// Stats returns a snapshot of processing counters.
func (p *Processor) Stats() Stats {
	return p.counters.snapshot()
}

// Status reports the lifecycle state and sink wiring.
func (p *Processor) Status() Status {
	p.mu.RLock()
	state := p.state
	p.mu.RUnlock()

	return Status{
		State:          state.String(),
		Running:        state == component.StateStarted,
		NATSWired:      p.conn != nil,
		WarehouseWired: p.store != nil,
		Stats:          p.counters.snapshot(),
	}
}

// Discoverable interface implementation

// Meta returns metadata describing this processor component.
func (p *Processor) Meta() component.Metadata {
	return component.Metadata{
		Name:        p.name,
		Type:        "processor",
		Description: "Streaming pipeline turning raw records into validated, enriched output",
		Version:     "0.1.0",
	}
}

// InputPorts returns the NATS input port for raw records.
func (p *Processor) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:      "nats_input",
			Direction: component.DirectionInput,
			Required:  true,
			Config: component.NATSPort{
				Subject: p.inputSubj,
				Interface: &component.InterfaceContract{
					Type:    "etl.record.v1",
					Version: "v1",
				},
			},
		},
	}
}

// OutputPorts returns the NATS output port for processed records.
func (p *Processor) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:      "nats_output",
			Direction: component.DirectionOutput,
			Required:  true,
			Config: component.NATSPort{
				Subject: p.outputSubj,
				Interface: &component.InterfaceContract{
					Type:    "etl.record.v1",
					Version: "v1",
				},
			},
		},
	}
}

// ConfigSchema returns the configuration schema for this processor.
func (p *Processor) ConfigSchema() component.ConfigSchema {
	return streamSchema
}

// Health returns the current health status of this processor.
func (p *Processor) Health() component.HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    p.state == component.StateStarted,
		LastCheck:  time.Now(),
		ErrorCount: int(p.counters.failureTotal()),
		Uptime:     time.Since(p.startTime),
	}
}

// DataFlow returns current data flow metrics for this processor.
func (p *Processor) DataFlow() component.FlowMetrics {
	p.mu.RLock()
	lastActivity := p.lastActivity
	p.mu.RUnlock()

	processed := p.counters.processedTotal()
	failures := p.counters.failureTotal()

	var errorRate float64
	if total := processed + failures; total > 0 {
		errorRate = float64(failures) / float64(total)
	}

	return component.FlowMetrics{
		ErrorRate:    errorRate,
		LastActivity: lastActivity,
	}
}
