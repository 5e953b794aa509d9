package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/ingest"
	"github.com/c360/etlstreams/metric"
)

const componentName = "ingestion-coordinator"

// Default aggregation cadence. A failed tick stretches the next wait to
// the backoff period once, then the normal cadence resumes.
const (
	DefaultAggregateEvery = 30 * time.Second
	DefaultBackoffEvery   = time.Minute
)

// Config holds coordinator timing configuration.
type Config struct {
	// AggregateEvery is the period between aggregation ticks.
	AggregateEvery time.Duration `json:"aggregate_every,omitempty"`

	// BackoffEvery is the stretched wait after a failed tick.
	BackoffEvery time.Duration `json:"backoff_every,omitempty"`
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		AggregateEvery: DefaultAggregateEvery,
		BackoffEvery:   DefaultBackoffEvery,
	}
}

// SourceStatus pairs a source kind with its ingestor snapshots.
type SourceStatus struct {
	Kind   string        `json:"kind"`
	Status ingest.Status `json:"status"`
	Stats  ingest.Stats  `json:"stats"`
}

// Status is the coordinator's lifecycle snapshot.
type Status struct {
	State         string         `json:"state"`
	Running       bool           `json:"running"`
	ActiveSources []string       `json:"active_sources"`
	Sources       []SourceStatus `json:"sources"`
}

// Stats aggregates ingestion counters across every registered source.
type Stats struct {
	TotalRecords  int64                   `json:"total_records"`
	TotalErrors   int64                   `json:"total_errors"`
	ActiveSources int                     `json:"active_sources"`
	Sources       map[string]ingest.Stats `json:"sources"`
}

// Coordinator drives the registered ingestors as one unit: shared
// lifecycle, kind-routed ingestion passes, and a periodic aggregation task
// publishing platform-level ingestion gauges.
type Coordinator struct {
	ingestors map[string]ingest.Ingestor
	kinds     []string // sorted, fixed at construction
	cfg       Config
	logger    *slog.Logger
	monitor   *metric.Monitor

	// Lifecycle management
	state       component.State
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	shutdown    chan struct{}
	wg          *sync.WaitGroup

	aggregateFn func() error // tick body, aggregateOnce unless a test swaps it
}

// New creates a coordinator over the enabled ingestor set, keyed by each
// ingestor's kind. Duplicate kinds are a wiring mistake and are rejected.
func New(
	ingestors []ingest.Ingestor, cfg Config,
	registry *metric.MetricsRegistry, logger *slog.Logger,
) (*Coordinator, error) {
	if cfg.AggregateEvery <= 0 {
		cfg.AggregateEvery = DefaultAggregateEvery
	}
	if cfg.BackoffEvery <= 0 {
		cfg.BackoffEvery = DefaultBackoffEvery
	}
	if logger == nil {
		logger = slog.Default()
	}

	byKind := make(map[string]ingest.Ingestor, len(ingestors))
	kinds := make([]string, 0, len(ingestors))
	for _, ing := range ingestors {
		kind := ing.Kind()
		if _, exists := byKind[kind]; exists {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
				componentName, "New", fmt.Sprintf("duplicate source kind %q", kind))
		}
		byKind[kind] = ing
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	c := &Coordinator{
		ingestors: byKind,
		kinds:     kinds,
		cfg:       cfg,
		logger:    logger,
		monitor:   metric.NewMonitor(registry),
		state:     component.StateCreated,
		shutdown:  make(chan struct{}),
		wg:        &sync.WaitGroup{},
	}
	c.aggregateFn = c.aggregateOnce
	return c, nil
}

// Kinds returns the registered source kinds in sorted order.
func (c *Coordinator) Kinds() []string {
	out := make([]string, len(c.kinds))
	copy(out, c.kinds)
	return out
}

// Initialize prepares every registered ingestor in sorted kind order. The
// first failure is fatal and propagates; later ingestors stay untouched.
func (c *Coordinator) Initialize() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != component.StateCreated {
		return errors.WrapFatal(errors.ErrAlreadyInitialized, componentName, "Initialize", "lifecycle check")
	}

	for _, kind := range c.kinds {
		if err := c.ingestors[kind].Initialize(); err != nil {
			return errors.WrapFatal(err, componentName, "Initialize",
				fmt.Sprintf("initialize %s ingestor", kind))
		}
	}

	c.state = component.StateInitialized
	return nil
}

// Start starts every ingestor and launches the aggregation task. A start
// failure rolls back the ingestors already started and propagates.
func (c *Coordinator) Start(ctx context.Context) error {
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

	for i, kind := range c.kinds {
		if err := c.ingestors[kind].Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				rollback := c.kinds[j]
				if stopErr := c.ingestors[rollback].Stop(ingest.StopTimeout); stopErr != nil {
					c.logger.Warn("Rollback stop failed",
						"component", componentName,
						"kind", rollback,
						"error", stopErr)
				}
			}
			return errors.Wrap(err, componentName, "Start",
				fmt.Sprintf("start %s ingestor", kind))
		}
	}

	c.shutdown = make(chan struct{})
	c.state = component.StateStarted
	c.startTime = time.Now()

	c.wg.Add(1)
	go c.aggregateLoop()

	c.logger.Info("Ingestion coordinator started",
		"component", componentName,
		"sources", c.kinds,
		"aggregate_every", c.cfg.AggregateEvery)

	return nil
}

// Stop winds down the aggregation task and stops every ingestor in reverse
// kind order. Ingestor stops are best-effort: one failure is logged and the
// rest still stop. The timeout applies per ingestor and to the final wait
// for the aggregation goroutine.
func (c *Coordinator) Stop(timeout time.Duration) error {
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

	failed := 0
	for i := len(c.kinds) - 1; i >= 0; i-- {
		kind := c.kinds[i]
		if err := c.ingestors[kind].Stop(timeout); err != nil {
			failed++
			c.logger.Warn("Ingestor stop failed",
				"component", componentName,
				"kind", kind,
				"error", err)
		}
	}

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

	c.logger.Info("Ingestion coordinator stopped",
		"component", componentName,
		"failed_stops", failed)

	return nil
}

// IngestFromSource runs one synchronous pass on the named source kind.
// Passes on different kinds run independently; only the target ingestor's
// own serialization applies.
func (c *Coordinator) IngestFromSource(ctx context.Context, kind string, cfg ingest.Config) (int, error) {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	if state != component.StateStarted {
		return 0, errors.WrapFatal(errors.ErrNotStarted, componentName, "IngestFromSource", "lifecycle check")
	}

	ing, ok := c.ingestors[kind]
	if !ok {
		return 0, errors.WrapInvalid(
			fmt.Errorf("%w: %q", ingest.ErrUnknownSourceKind, kind),
			componentName, "IngestFromSource", "source lookup")
	}

	return ing.Ingest(ctx, cfg)
}

// aggregateLoop ticks the aggregation task until shutdown. A failed tick
// stretches the next wait to the backoff period; the loop itself only ends
// on shutdown.
func (c *Coordinator) aggregateLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.AggregateEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
		}

		if err := c.aggregateFn(); err != nil {
			c.logger.Warn("Aggregation tick failed, backing off",
				"component", componentName,
				"backoff", c.cfg.BackoffEvery,
				"error", err)
			ticker.Reset(c.cfg.BackoffEvery)
			continue
		}
		ticker.Reset(c.cfg.AggregateEvery)
	}
}

// aggregateOnce sums ingestion counters across every source and publishes
// the platform-level gauges.
func (c *Coordinator) aggregateOnce() error {
	var total int64
	active := 0
	for _, kind := range c.kinds {
		ing := c.ingestors[kind]
		total += ing.Stats().RecordsIngested
		if ing.Status().Active {
			active++
		}
	}

	c.monitor.RecordMetric("ingestion_total_records", float64(total))
	c.monitor.RecordMetric("ingestion_active_sources", float64(active))

	c.logger.Debug("Ingestion aggregates published",
		"component", componentName,
		"total_records", total,
		"active_sources", active)

	return nil
}

// Status reports the coordinator and per-source lifecycle snapshots.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	status := Status{
		State:   state.String(),
		Running: state == component.StateStarted,
		Sources: make([]SourceStatus, 0, len(c.kinds)),
	}
	for _, kind := range c.kinds {
		ing := c.ingestors[kind]
		s := ing.Status()
		if s.Active {
			status.ActiveSources = append(status.ActiveSources, kind)
		}
		status.Sources = append(status.Sources, SourceStatus{
			Kind:   kind,
			Status: s,
			Stats:  ing.Stats(),
		})
	}
	return status
}

// Stats returns aggregate and per-source counter snapshots.
func (c *Coordinator) Stats() Stats {
	stats := Stats{
		Sources: make(map[string]ingest.Stats, len(c.kinds)),
	}
	for _, kind := range c.kinds {
		ing := c.ingestors[kind]
		s := ing.Stats()
		stats.Sources[kind] = s
		stats.TotalRecords += s.RecordsIngested
		stats.TotalErrors += s.IngestErrors
		if ing.Status().Active {
			stats.ActiveSources++
		}
	}
	return stats
}
