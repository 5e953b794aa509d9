package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/ingest"
	"github.com/c360/etlstreams/metric"
	"github.com/c360/etlstreams/pipeline"
	"github.com/c360/etlstreams/pkg/security"
	"github.com/c360/etlstreams/pkg/tlsutil"
	"github.com/c360/etlstreams/pkg/worker"
)

const componentName = "scrape-ingestor"

// defaultExtractJS pulls the first table off a rendered page as row objects,
// mirroring the static table extraction.
const defaultExtractJS = `(function() {
	var table = document.querySelector('table');
	if (!table) { return []; }
	var rows = Array.prototype.slice.call(table.querySelectorAll('tr'));
	if (rows.length < 2) { return []; }
	var headers = Array.prototype.slice.call(rows[0].querySelectorAll('th,td'))
		.map(function(c) { return c.textContent.trim(); });
	return rows.slice(1).map(function(tr) {
		var cells = Array.prototype.slice.call(tr.querySelectorAll('th,td'))
			.map(function(c) { return c.textContent.trim(); });
		var row = {};
		headers.forEach(function(h, i) {
			if (h && i < cells.length && cells[i] !== '') { row[h] = cells[i]; }
		});
		return row;
	}).filter(function(r) { return Object.keys(r).length > 0; });
})()`

// scrapeTask is one unit of work on the scrape pool.
type scrapeTask struct {
	target TargetConfig
	cfg    ingest.Config
	result chan<- taskResult
}

type taskResult struct {
	count int
	err   error
}

// Ingestor scrapes web pages for tabular records and publishes them to the
// raw record subject. Targets run as tasks on a bounded worker pool so
// concurrent fetches, and in particular headless browser sessions, are
// capped.
type Ingestor struct {
	name       string
	outputSubj string
	targets    []TargetConfig
	maxConc    int
	queueSize  int
	timeout    time.Duration
	defaults   ingest.Config
	emitter    *ingest.Emitter
	httpClient *http.Client
	registry   *metric.MetricsRegistry
	logger     *slog.Logger

	// Lifecycle management
	state       component.State
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	shutdown    chan struct{}
	wg          *sync.WaitGroup

	// pool and the browser allocator live from Start to Stop
	pool        *worker.Pool[scrapeTask]
	allocCtx    context.Context
	allocCancel context.CancelFunc

	counters ingest.Counters
	metrics  *ingest.Metrics
}

// NewIngestor creates a scrape ingestor publishing through the given
// publisher. TLS for static fetches follows the platform security config.
func NewIngestor(
	name string, publisher ingest.Publisher, cfg Config, sec security.Config,
	registry *metric.MetricsRegistry, logger *slog.Logger,
) (*Ingestor, error) {
	if cfg.Ports == nil {
		cfg = DefaultConfig()
	}

	outputSubj := ingest.RawSubject
	if len(cfg.Ports.Outputs) > 0 && cfg.Ports.Outputs[0].Subject != "" {
		outputSubj = cfg.Ports.Outputs[0].Subject
	}

	for _, target := range cfg.Targets {
		if err := validateTarget(target); err != nil {
			return nil, err
		}
	}

	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 16
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	tlsCfg := sec.TLS.Client
	if len(tlsCfg.CAFiles) > 0 || tlsCfg.InsecureSkipVerify || tlsCfg.MinVersion != "" || tlsCfg.MTLS.Enabled {
		tlsConfig, err := tlsutil.LoadClientTLSConfigWithMTLS(tlsCfg, tlsCfg.MTLS)
		if err != nil {
			return nil, errors.WrapFatal(err, componentName, "NewIngestor", "load TLS config")
		}
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}

	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := ingest.NewMetrics(registry, ingest.KindScraper)
	if err != nil {
		logger.Error("Failed to initialize scrape ingest metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	return &Ingestor{
		name:       name,
		outputSubj: outputSubj,
		targets:    cfg.Targets,
		maxConc:    maxConc,
		queueSize:  queueSize,
		timeout:    timeout,
		defaults:   cfg.Defaults.Normalized(),
		emitter:    ingest.NewEmitter(publisher, outputSubj, ingest.KindScraper, name),
		httpClient: httpClient,
		registry:   registry,
		logger:     logger,
		state:      component.StateCreated,
		shutdown:   make(chan struct{}),
		wg:         &sync.WaitGroup{},
		metrics:    metrics,
	}, nil
}

func validateTarget(target TargetConfig) error {
	if target.URL == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			componentName, "validateTarget", fmt.Sprintf("target %q has no URL", target.Name))
	}
	if _, err := url.Parse(target.URL); err != nil {
		return errors.WrapInvalid(err,
			componentName, "validateTarget", fmt.Sprintf("target %q URL", target.Name))
	}
	switch target.Mode {
	case "", ModeStatic, ModeRendered:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			componentName, "validateTarget", fmt.Sprintf("target %q mode %q", target.Name, target.Mode))
	}
	switch target.Format {
	case "", FormatJSON, FormatTable:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			componentName, "validateTarget", fmt.Sprintf("target %q format %q", target.Name, target.Format))
	}
	return nil
}

// Kind identifies this ingestor's source kind.
func (c *Ingestor) Kind() string {
	return ingest.KindScraper
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

// Start launches the scrape pool and, when any rendered targets are
// configured, the shared headless browser allocator.
func (c *Ingestor) Start(ctx context.Context) error {
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

	pool := worker.NewPool(c.maxConc, c.queueSize, c.processTarget,
		worker.WithMetricsRegistry[scrapeTask](c.registry, "etlstreams_scrape_pool"))
	if err := pool.Start(ctx); err != nil {
		return errors.WrapFatal(err, componentName, "Start", "worker pool start")
	}
	c.pool = pool

	if hasRenderedTarget(c.targets) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		)
		c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	c.shutdown = make(chan struct{})
	c.state = component.StateStarted
	c.startTime = time.Now()

	c.logger.Info("Scrape ingestor started",
		"component", c.name,
		"output_subject", c.outputSubj,
		"targets", len(c.targets),
		"max_concurrent", c.maxConc)

	return nil
}

func hasRenderedTarget(targets []TargetConfig) bool {
	for _, target := range targets {
		if target.Mode == ModeRendered {
			return true
		}
	}
	return false
}

// Stop drains the scrape pool, shuts down the browser allocator, and waits
// for in-flight passes, up to the timeout.
func (c *Ingestor) Stop(timeout time.Duration) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	if c.state != component.StateStarted {
		c.mu.Unlock()
		return nil
	}
	c.state = component.StateStopping
	pool := c.pool
	c.mu.Unlock()

	close(c.shutdown)

	var poolErr error
	if pool != nil {
		poolErr = pool.Stop(timeout)
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
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
		c.allocCtx = nil
	}
	c.pool = nil
	c.state = component.StateStopped
	c.mu.Unlock()

	if poolErr != nil {
		return errors.WrapTransient(poolErr, componentName, "Stop", "worker pool stop")
	}

	c.logger.Info("Scrape ingestor stopped", "component", c.name)
	return nil
}

// Ingest runs one pass. With cfg.URL set it scrapes that page ad hoc as a
// static JSON source; otherwise it scrapes every configured target. Returns
// the number of records published.
func (c *Ingestor) Ingest(ctx context.Context, cfg ingest.Config) (int, error) {
	c.mu.RLock()
	if c.state != component.StateStarted {
		c.mu.RUnlock()
		return 0, errors.WrapFatal(errors.ErrNotStarted, componentName, "Ingest", "lifecycle check")
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	cfg = cfg.MergeDefaults(c.defaults)

	if cfg.URL != "" {
		target := TargetConfig{Name: cfg.URL, URL: cfg.URL, Mode: ModeStatic, Format: FormatJSON}
		return c.runTargets(ctx, []TargetConfig{target}, cfg, true)
	}

	if len(c.targets) == 0 {
		return 0, errors.WrapInvalid(errors.ErrMissingConfig, componentName, "Ingest", "no targets configured")
	}
	return c.runTargets(ctx, c.targets, cfg, false)
}

// runTargets submits the targets to the pool and collects their results.
// In single mode the one target's error is returned; otherwise failures are
// isolated per target and only surface in stats and logs.
func (c *Ingestor) runTargets(ctx context.Context, targets []TargetConfig, cfg ingest.Config, single bool) (int, error) {
	c.mu.RLock()
	pool := c.pool
	shutdown := c.shutdown
	c.mu.RUnlock()

	if pool == nil {
		return 0, errors.WrapFatal(errors.ErrNotStarted, componentName, "runTargets", "worker pool")
	}

	results := make(chan taskResult, len(targets))
	submitted := 0
	for _, target := range targets {
		if err := pool.Submit(scrapeTask{target: target, cfg: cfg, result: results}); err != nil {
			c.counters.ErrorSeen()
			c.metrics.RecordError(c.name, "queue")
			if single {
				return 0, errors.WrapTransient(err, componentName, "runTargets", "task submit")
			}
			c.logger.Warn("Scrape task rejected",
				"component", c.name,
				"target", target.Name,
				"error", err)
			continue
		}
		submitted++
	}

	total := 0
	failed := 0
	var firstErr error
	for i := 0; i < submitted; i++ {
		select {
		case res := <-results:
			total += res.count
			if res.err != nil {
				failed++
				if firstErr == nil {
					firstErr = res.err
				}
			}
		case <-ctx.Done():
			return total, errors.WrapTransient(ctx.Err(), componentName, "runTargets", "pass cancelled")
		case <-shutdown:
			return total, errors.WrapTransient(errors.ErrShuttingDown, componentName, "runTargets", "pass interrupted")
		}
	}

	if single && firstErr != nil {
		return total, firstErr
	}

	if !single {
		c.logger.Info("Scrape pass complete",
			"component", c.name,
			"targets", len(targets),
			"failed_targets", failed,
			"records", total)
	}

	return total, nil
}

// processTarget is the pool processor for one scrape task.
func (c *Ingestor) processTarget(ctx context.Context, task scrapeTask) error {
	count, err := c.scrapeTarget(ctx, task.target, task.cfg)
	if task.result != nil {
		task.result <- taskResult{count: count, err: err}
	}
	if err != nil {
		c.logger.Warn("Target scrape failed",
			"component", c.name,
			"target", task.target.Name,
			"url", task.target.URL,
			"error", err)
	}
	return err
}

// scrapeTarget fetches one target and publishes its records keyed by the
// target URL.
func (c *Ingestor) scrapeTarget(ctx context.Context, target TargetConfig, cfg ingest.Config) (int, error) {
	start := time.Now()
	defer func() {
		c.counters.TimeSpent(time.Since(start))
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var records []pipeline.Record
	var err error
	switch target.Mode {
	case ModeRendered:
		records, err = c.fetchRendered(fetchCtx, target)
	default:
		records, err = c.fetchStatic(fetchCtx, target)
	}
	if err != nil {
		c.counters.ErrorSeen()
		c.metrics.RecordError(c.name, "read")
		return 0, err
	}

	var dropped int
	records, dropped = ingest.ApplySchema(records, cfg.Validator())
	if dropped > 0 {
		c.counters.ErrorsSeen(dropped)
		for i := 0; i < dropped; i++ {
			c.metrics.RecordError(c.name, "row")
		}
		c.logger.Warn("Dropped records failing schema validation",
			"component", c.name,
			"target", target.Name,
			"dropped", dropped)
	}

	emitted, err := c.emitter.EmitBatch(fetchCtx, target.URL, records, cfg.BatchSize)
	if emitted > 0 {
		c.counters.RecordsEmitted(emitted)
		c.metrics.RecordIngested(c.name, emitted)
	}
	if err != nil {
		c.counters.ErrorSeen()
		c.metrics.RecordError(c.name, "publish")
		return emitted, err
	}

	c.counters.SourceDone()
	c.counters.MarkSource(target.URL)
	c.metrics.RecordSource(c.name, time.Since(start))

	c.logger.Debug("Target scraped",
		"component", c.name,
		"target", target.Name,
		"mode", target.Mode,
		"records", emitted,
		"duration_ms", time.Since(start).Milliseconds())

	return emitted, nil
}

// fetchStatic GETs the page and extracts records from the body.
func (c *Ingestor) fetchStatic(ctx context.Context, target TargetConfig) ([]pipeline.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: build request for %s: %v", ingest.ErrSourceRead, target.URL, err),
			componentName, "fetchStatic", "request build")
	}
	if target.Format == FormatTable {
		req.Header.Set("Accept", "text/html")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: fetch %s: %v", ingest.ErrSourceRead, target.URL, err),
			componentName, "fetchStatic", "http get")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: fetch %s: status %d", ingest.ErrSourceRead, target.URL, resp.StatusCode),
			componentName, "fetchStatic", "http status")
	}

	if target.Format == FormatTable {
		records, err := extractTable(resp.Body)
		if err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: extract table from %s: %v", ingest.ErrSourceRead, target.URL, err),
				componentName, "fetchStatic", "table extract")
		}
		return records, nil
	}

	records, err := ingest.DecodeRecords(resp.Body)
	if err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: decode %s: %v", ingest.ErrSourceRead, target.URL, err),
			componentName, "fetchStatic", "response decode")
	}
	return records, nil
}

// fetchRendered drives a headless browser session: navigate, wait for the
// readiness selector, then evaluate the extraction script.
func (c *Ingestor) fetchRendered(ctx context.Context, target TargetConfig) ([]pipeline.Record, error) {
	c.mu.RLock()
	allocCtx := c.allocCtx
	c.mu.RUnlock()

	if allocCtx == nil {
		return nil, errors.WrapFatal(errors.ErrNotStarted,
			componentName, "fetchRendered", "browser allocator")
	}

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, c.timeout)
	defer cancelRun()
	// Stop the browser session early if the task context is cancelled
	go func() {
		select {
		case <-ctx.Done():
			cancelRun()
		case <-runCtx.Done():
		}
	}()

	selector := target.Selector
	if selector == "" {
		selector = "body"
	}
	extract := target.Extract
	if extract == "" {
		extract = defaultExtractJS
	}

	var rows []map[string]any
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(target.URL),
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(extract, &rows),
	); err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: render %s: %v", ingest.ErrSourceRead, target.URL, err),
			componentName, "fetchRendered", "browser run")
	}

	records := make([]pipeline.Record, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			records = append(records, pipeline.Record(row))
		}
	}
	return records, nil
}

// Status reports the lifecycle state and most recent source.
func (c *Ingestor) Status() ingest.Status {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	return ingest.Status{
		Kind:           ingest.KindScraper,
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
		Description: "Web scrape ingestor extracting tabular records from pages",
		Version:     "0.1.0",
	}
}

// InputPorts returns one endpoint port per configured target.
func (c *Ingestor) InputPorts() []component.Port {
	ports := make([]component.Port, len(c.targets))
	for i, target := range c.targets {
		ports[i] = component.Port{
			Name:      fmt.Sprintf("target_%d", i),
			Direction: component.DirectionInput,
			Required:  false,
			Config: component.EndpointPort{
				URL: target.URL,
			},
		}
	}
	return ports
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
	return scrapeSchema
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
