package httppoll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/ingest"
	"github.com/c360/etlstreams/metric"
	"github.com/c360/etlstreams/pipeline"
	"github.com/c360/etlstreams/pkg/security"
	"github.com/c360/etlstreams/pkg/tlsutil"
)

const componentName = "api-ingestor"

// maxErrorBody bounds how much of an error response body is read for logs.
const maxErrorBody = 512

// Ingestor polls HTTP endpoints for JSON records and publishes them to the
// raw record subject. Configured endpoints are fetched on an interval once
// started; Ingest performs one ad-hoc fetch of the config URL.
type Ingestor struct {
	name       string
	outputSubj string
	endpoints  []EndpointConfig
	interval   time.Duration
	maxConc    int
	perSecond  float64
	defaults   ingest.Config
	emitter    *ingest.Emitter
	httpClient *http.Client
	logger     *slog.Logger

	// limiters throttle per endpoint URL; ad-hoc URLs get one lazily.
	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	// Lifecycle management
	state       component.State
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	shutdown    chan struct{}
	wg          *sync.WaitGroup

	counters ingest.Counters
	metrics  *ingest.Metrics
}

// NewIngestor creates an HTTP poll ingestor publishing through the given
// publisher. TLS for outbound requests follows the platform security config.
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

	for _, ep := range cfg.Endpoints {
		if ep.URL == "" {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
				componentName, "NewIngestor", fmt.Sprintf("endpoint %q has no URL", ep.Name))
		}
		if _, err := url.Parse(ep.URL); err != nil {
			return nil, errors.WrapInvalid(err,
				componentName, "NewIngestor", fmt.Sprintf("endpoint %q URL", ep.Name))
		}
	}

	interval := time.Duration(cfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 4
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}

	httpClient, err := newHTTPClient(timeout, sec)
	if err != nil {
		return nil, errors.WrapFatal(err, componentName, "NewIngestor", "load TLS config")
	}

	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := ingest.NewMetrics(registry, ingest.KindAPI)
	if err != nil {
		logger.Error("Failed to initialize API ingest metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	ing := &Ingestor{
		name:       name,
		outputSubj: outputSubj,
		endpoints:  cfg.Endpoints,
		interval:   interval,
		maxConc:    maxConc,
		perSecond:  perSecond,
		defaults:   cfg.Defaults.Normalized(),
		emitter:    ingest.NewEmitter(publisher, outputSubj, ingest.KindAPI, name),
		httpClient: httpClient,
		logger:     logger,
		limiters:   make(map[string]*rate.Limiter),
		state:      component.StateCreated,
		shutdown:   make(chan struct{}),
		wg:         &sync.WaitGroup{},
		metrics:    metrics,
	}

	for _, ep := range cfg.Endpoints {
		ing.limiters[ep.URL] = rate.NewLimiter(rate.Limit(perSecond), 1)
	}

	return ing, nil
}

// newHTTPClient builds the outbound client, wiring platform TLS settings
// when any are configured.
func newHTTPClient(timeout time.Duration, sec security.Config) (*http.Client, error) {
	client := &http.Client{Timeout: timeout}

	tlsCfg := sec.TLS.Client
	if len(tlsCfg.CAFiles) > 0 || tlsCfg.InsecureSkipVerify || tlsCfg.MinVersion != "" || tlsCfg.MTLS.Enabled {
		tlsConfig, err := tlsutil.LoadClientTLSConfigWithMTLS(tlsCfg, tlsCfg.MTLS)
		if err != nil {
			return nil, err
		}
		client.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}

	return client, nil
}

// Kind identifies this ingestor's source kind.
func (c *Ingestor) Kind() string {
	return ingest.KindAPI
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

// Start marks the ingestor active and launches the poll loop when endpoints
// are configured.
func (c *Ingestor) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	switch c.state {
	case component.StateStarted:
		c.mu.Unlock()
		return errors.WrapFatal(errors.ErrAlreadyStarted, componentName, "Start", "lifecycle check")
	case component.StateCreated:
		c.mu.Unlock()
		return errors.WrapFatal(errors.ErrNotInitialized, componentName, "Start", "lifecycle check")
	}

	c.shutdown = make(chan struct{})
	c.state = component.StateStarted
	c.startTime = time.Now()
	shutdown := c.shutdown
	c.mu.Unlock()

	if len(c.endpoints) > 0 {
		c.wg.Add(1)
		go c.pollLoop(ctx, shutdown)
	}

	c.logger.Info("API ingestor started",
		"component", c.name,
		"output_subject", c.outputSubj,
		"endpoints", len(c.endpoints),
		"poll_interval", c.interval)

	return nil
}

// Stop signals the poll loop and waits for in-flight fetches, up to the
// timeout.
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

	c.logger.Info("API ingestor stopped", "component", c.name)
	return nil
}

// pollLoop fetches all endpoints immediately, then on every interval tick
// until shutdown.
func (c *Ingestor) pollLoop(ctx context.Context, shutdown <-chan struct{}) {
	defer c.wg.Done()

	c.pollOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

// pollOnce fetches every configured endpoint, bounded by the concurrency
// limit. Endpoint failures are isolated: they are counted and logged, and
// never cancel the other fetches.
func (c *Ingestor) pollOnce(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConc)

	for _, ep := range c.endpoints {
		g.Go(func() error {
			if _, err := c.fetchEndpoint(gctx, ep, c.defaults); err != nil {
				c.logger.Warn("Endpoint poll failed",
					"component", c.name,
					"endpoint", ep.Name,
					"url", ep.URL,
					"error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
}

// Ingest performs one ad-hoc fetch of cfg.URL. Returns the number of records
// published.
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
	if cfg.URL == "" {
		return 0, errors.WrapInvalid(errors.ErrMissingConfig, componentName, "Ingest", "url required")
	}

	return c.fetchEndpoint(ctx, EndpointConfig{Name: cfg.URL, URL: cfg.URL}, cfg)
}

// fetchEndpoint performs one GET, decodes the response into records, and
// publishes them keyed by the endpoint URL.
func (c *Ingestor) fetchEndpoint(ctx context.Context, ep EndpointConfig, cfg ingest.Config) (int, error) {
	start := time.Now()
	defer func() {
		c.counters.TimeSpent(time.Since(start))
	}()

	if err := c.limiterFor(ep.URL).Wait(ctx); err != nil {
		return 0, errors.WrapTransient(err, componentName, "fetchEndpoint", "rate limit wait")
	}

	records, err := c.fetch(ctx, ep)
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
			"endpoint", ep.Name,
			"dropped", dropped)
	}

	emitted, err := c.emitter.EmitBatch(ctx, ep.URL, records, cfg.BatchSize)
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
	c.counters.MarkSource(ep.URL)
	c.metrics.RecordSource(c.name, time.Since(start))

	c.logger.Debug("Endpoint fetched",
		"component", c.name,
		"endpoint", ep.Name,
		"records", emitted,
		"duration_ms", time.Since(start).Milliseconds())

	return emitted, nil
}

// fetch issues the GET request and decodes the body.
func (c *Ingestor) fetch(ctx context.Context, ep EndpointConfig) ([]pipeline.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: build request for %s: %v", ingest.ErrSourceRead, ep.URL, err),
			componentName, "fetch", "request build")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: fetch %s: %v", ingest.ErrSourceRead, ep.URL, err),
			componentName, "fetch", "http get")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: fetch %s: status %d: %s", ingest.ErrSourceRead, ep.URL, resp.StatusCode, body),
			componentName, "fetch", "http status")
	}

	records, err := ingest.DecodeRecords(resp.Body)
	if err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: decode %s: %v", ingest.ErrSourceRead, ep.URL, err),
			componentName, "fetch", "response decode")
	}

	return records, nil
}

// limiterFor returns the endpoint's limiter, creating one for ad-hoc URLs.
func (c *Ingestor) limiterFor(endpointURL string) *rate.Limiter {
	c.limiterMu.Lock()
	defer c.limiterMu.Unlock()

	limiter, ok := c.limiters[endpointURL]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.perSecond), 1)
		c.limiters[endpointURL] = limiter
	}
	return limiter
}

// Status reports the lifecycle state and most recent source.
func (c *Ingestor) Status() ingest.Status {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	return ingest.Status{
		Kind:           ingest.KindAPI,
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
		Description: "HTTP poll ingestor fetching JSON records from configured endpoints",
		Version:     "0.1.0",
	}
}

// InputPorts returns one endpoint port per configured endpoint.
func (c *Ingestor) InputPorts() []component.Port {
	ports := make([]component.Port, len(c.endpoints))
	for i, ep := range c.endpoints {
		ports[i] = component.Port{
			Name:      fmt.Sprintf("endpoint_%d", i),
			Direction: component.DirectionInput,
			Required:  false,
			Config: component.EndpointPort{
				URL: ep.URL,
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
	return httpPollSchema
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
