package devicestream

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/ingest"
	"github.com/c360/etlstreams/metric"
	"github.com/c360/etlstreams/pipeline"
	"github.com/c360/etlstreams/pkg/buffer"
	"github.com/c360/etlstreams/pkg/security"
	"github.com/c360/etlstreams/pkg/tlsutil"
)

const componentName = "devicestream-ingestor"

const (
	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 45 * time.Second

	// publishTick paces the publish loop so it never busy-waits on an
	// empty buffer.
	publishTick = 10 * time.Millisecond

	// publishBatchMax caps frames taken off the ring per tick.
	publishBatchMax = 256

	// drainTimeout bounds the final buffer drain during shutdown.
	drainTimeout = 5 * time.Second
)

// Ingestor connects to a device feed over WebSocket and streams its frames
// to the raw record subject. Frames land in a ring buffer between the read
// loop and the publish loop; when producers outrun the publisher the oldest
// frames are dropped rather than stalling the feed.
type Ingestor struct {
	name       string
	outputSubj string
	url        string
	reconnect  ReconnectConfig
	defaults   ingest.Config
	emitter    *ingest.Emitter
	security   security.Config
	logger     *slog.Logger

	// frames wait here between the read loop and the publish loop
	frames buffer.Buffer[pipeline.Record]

	// Lifecycle management
	state       component.State
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	shutdown    chan struct{}
	wg          *sync.WaitGroup

	// Connection state
	conn              *websocket.Conn
	connMu            sync.Mutex
	connected         atomic.Bool
	reconnectAttempts atomic.Int32

	counters ingest.Counters
	metrics  *ingest.Metrics
}

// NewIngestor creates a device-stream ingestor publishing through the given
// publisher. TLS for wss feeds follows the platform security config.
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

	if cfg.URL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			componentName, "NewIngestor", "feed URL required")
	}
	feed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.WrapInvalid(err, componentName, "NewIngestor", "feed URL")
	}
	switch feed.Scheme {
	case "ws", "wss":
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			componentName, "NewIngestor", fmt.Sprintf("feed URL scheme %q", feed.Scheme))
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	reconnect := ReconnectConfig{}
	if cfg.Reconnect != nil {
		reconnect = *cfg.Reconnect
	}

	if logger == nil {
		logger = slog.Default()
	}

	frames, err := buffer.NewCircularBuffer(bufferSize,
		buffer.WithOverflowPolicy[pipeline.Record](buffer.DropOldest),
		buffer.WithMetrics[pipeline.Record](registry, "etlstreams_devicestream_frames"))
	if err != nil {
		return nil, errors.WrapFatal(err, componentName, "NewIngestor", "frame buffer")
	}

	metrics, err := ingest.NewMetrics(registry, ingest.KindStreaming)
	if err != nil {
		logger.Error("Failed to initialize devicestream ingest metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	return &Ingestor{
		name:       name,
		outputSubj: outputSubj,
		url:        cfg.URL,
		reconnect:  reconnect,
		defaults:   cfg.Defaults.Normalized(),
		emitter:    ingest.NewEmitter(publisher, outputSubj, ingest.KindStreaming, name),
		security:   sec,
		logger:     logger,
		frames:     frames,
		state:      component.StateCreated,
		shutdown:   make(chan struct{}),
		wg:         &sync.WaitGroup{},
		metrics:    metrics,
	}, nil
}

// Kind identifies this ingestor's source kind.
func (c *Ingestor) Kind() string {
	return ingest.KindStreaming
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

// Start launches the feed connection loop and the publish loop.
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

	c.shutdown = make(chan struct{})
	c.reconnectAttempts.Store(0)

	c.wg.Add(2)
	go c.connectLoop(ctx)
	go c.publishLoop(ctx)

	c.state = component.StateStarted
	c.startTime = time.Now()

	c.logger.Info("Device-stream ingestor started",
		"component", c.name,
		"output_subject", c.outputSubj,
		"url", c.url,
		"buffer_capacity", c.frames.Capacity())

	return nil
}

// Stop closes the feed connection, drains buffered frames, and waits for the
// loops, up to the timeout.
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

	// Unblock the read loop
	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.connMu.Unlock()

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

	c.logger.Info("Device-stream ingestor stopped",
		"component", c.name,
		"frames_dropped", c.frames.Stats().Overflows())
	return nil
}

// connectLoop dials the feed and hands connections to the read loop,
// reconnecting with exponential backoff until retries run out or the
// ingestor stops.
func (c *Ingestor) connectLoop(ctx context.Context) {
	defer c.wg.Done()

	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	tlsCfg := c.security.TLS.Client
	if len(tlsCfg.CAFiles) > 0 || tlsCfg.InsecureSkipVerify || tlsCfg.MinVersion != "" || tlsCfg.MTLS.Enabled {
		tlsConfig, err := tlsutil.LoadClientTLSConfigWithMTLS(tlsCfg, tlsCfg.MTLS)
		if err != nil {
			c.counters.ErrorSeen()
			c.logger.Error("Feed TLS config failed, connection loop exiting",
				"component", c.name,
				"error", err)
			return
		}
		dialer.TLSClientConfig = tlsConfig
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		default:
		}

		conn, resp, err := dialer.Dial(c.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			c.counters.ErrorSeen()
			c.metrics.RecordError(c.name, "read")
			c.logger.Warn("Feed connect failed",
				"component", c.name,
				"url", c.url,
				"attempt", c.reconnectAttempts.Load(),
				"error", err)

			if !c.shouldReconnect() {
				return
			}
			select {
			case <-time.After(c.reconnectDelay()):
			case <-c.shutdown:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		c.reconnectAttempts.Store(0)
		c.setConn(conn)
		c.connected.Store(true)
		c.logger.Info("Device feed connected", "component", c.name, "url", c.url)

		c.readLoop(conn)

		c.setConn(nil)
		c.connected.Store(false)

		if !c.shouldReconnect() {
			return
		}
	}
}

// readLoop decodes frames off one connection into the ring buffer until the
// connection drops or the ingestor stops. A frame may carry one record or a
// batch; bad frames are counted and skipped.
func (c *Ingestor) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-c.shutdown:
			return
		default:
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.shutdown:
				// Closed by Stop
			default:
				c.counters.ErrorSeen()
				c.metrics.RecordError(c.name, "read")
				c.logger.Warn("Feed read failed",
					"component", c.name,
					"url", c.url,
					"error", err)
			}
			return
		}

		records, err := ingest.DecodeRecords(bytes.NewReader(frame))
		if err != nil {
			c.counters.ErrorSeen()
			c.metrics.RecordError(c.name, "decode")
			continue
		}

		for _, record := range records {
			// DropOldest policy: Write only fails on a closed buffer
			if err := c.frames.Write(record); err != nil {
				c.counters.ErrorSeen()
				c.metrics.RecordError(c.name, "queue")
			}
		}
		c.counters.MarkSource(c.url)
	}
}

// publishLoop drains the ring buffer to the raw subject in arrival order,
// pacing on a short ticker so an empty buffer costs nothing.
func (c *Ingestor) publishLoop(ctx context.Context) {
	defer c.wg.Done()
	defer c.drainFrames()

	ticker := time.NewTicker(publishTick)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, record := range c.frames.ReadBatch(publishBatchMax) {
				c.emitRecord(ctx, record)
			}
		}
	}
}

// drainFrames publishes what is left in the buffer during shutdown, bounded
// by the drain timeout.
func (c *Ingestor) drainFrames() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		record, ok := c.frames.Read()
		if !ok {
			return
		}
		c.emitRecord(ctx, record)
	}
}

// emitRecord validates and publishes one frame record.
func (c *Ingestor) emitRecord(ctx context.Context, record pipeline.Record) {
	if validator := c.defaults.Validator(); validator != nil {
		validated, err := validator.Validate(record)
		if err != nil {
			c.counters.ErrorSeen()
			c.metrics.RecordError(c.name, "row")
			return
		}
		record = validated
	}

	if err := c.emitter.Emit(ctx, c.url, record); err != nil {
		c.counters.ErrorSeen()
		c.metrics.RecordError(c.name, "publish")
		c.logger.Warn("Frame publish failed",
			"component", c.name,
			"error", err)
		return
	}

	c.counters.RecordsEmitted(1)
	c.metrics.RecordIngested(c.name, 1)
	c.counters.MarkSource(c.url)
}

// Ingest flushes the frames currently buffered, synchronously. The streaming
// loops keep running; a coordinator pass over this source is a backlog flush
// rather than a fetch.
func (c *Ingestor) Ingest(ctx context.Context, cfg ingest.Config) (int, error) {
	c.mu.RLock()
	if c.state != component.StateStarted {
		c.mu.RUnlock()
		return 0, errors.WrapFatal(errors.ErrNotStarted, componentName, "Ingest", "lifecycle check")
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	start := time.Now()
	defer func() {
		c.counters.TimeSpent(time.Since(start))
	}()

	cfg = cfg.MergeDefaults(c.defaults)
	validator := cfg.Validator()

	// Bound the flush to the backlog at entry so a live feed cannot keep
	// the pass running forever.
	pending := c.frames.Size()
	emitted := 0
	for taken := 0; taken < pending; {
		select {
		case <-ctx.Done():
			return emitted, errors.WrapTransient(ctx.Err(), componentName, "Ingest", "flush cancelled")
		case <-c.shutdown:
			return emitted, errors.WrapTransient(errors.ErrShuttingDown, componentName, "Ingest", "flush interrupted")
		default:
		}

		batch := c.frames.ReadBatch(min(publishBatchMax, pending-taken))
		if len(batch) == 0 {
			break // publish loop got there first
		}
		taken += len(batch)

		var dropped int
		batch, dropped = ingest.ApplySchema(batch, validator)
		if dropped > 0 {
			c.counters.ErrorsSeen(dropped)
			for i := 0; i < dropped; i++ {
				c.metrics.RecordError(c.name, "row")
			}
		}

		n, err := c.emitter.EmitBatch(ctx, c.url, batch, cfg.BatchSize)
		if n > 0 {
			emitted += n
			c.counters.RecordsEmitted(n)
			c.metrics.RecordIngested(c.name, n)
		}
		if err != nil {
			c.counters.ErrorSeen()
			c.metrics.RecordError(c.name, "publish")
			return emitted, err
		}
	}

	c.counters.SourceDone()
	c.counters.MarkSource(c.url)
	c.metrics.RecordSource(c.name, time.Since(start))

	c.logger.Debug("Buffered frames flushed",
		"component", c.name,
		"records", emitted,
		"duration_ms", time.Since(start).Milliseconds())

	return emitted, nil
}

func (c *Ingestor) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

// shouldReconnect reports whether another connection attempt is allowed, and
// consumes one attempt.
func (c *Ingestor) shouldReconnect() bool {
	if !c.reconnect.Enabled {
		return false
	}

	current := c.reconnectAttempts.Load()
	if c.reconnect.MaxRetries > 0 && int(current) >= c.reconnect.MaxRetries {
		c.logger.Error("Feed reconnect attempts exhausted",
			"component", c.name,
			"url", c.url,
			"attempts", current)
		return false
	}

	c.reconnectAttempts.Add(1)
	return true
}

// reconnectDelay returns the next backoff delay: initial * multiplier^attempts,
// capped at the configured maximum.
func (c *Ingestor) reconnectDelay() time.Duration {
	initial := c.reconnect.InitialInterval
	if initial <= 0 {
		initial = time.Second
	}
	maxDelay := c.reconnect.MaxInterval
	if maxDelay <= 0 {
		maxDelay = 60 * time.Second
	}
	multiplier := c.reconnect.Multiplier
	if multiplier <= 1 {
		multiplier = 2.0
	}

	delay := initial
	for i := int32(1); i < c.reconnectAttempts.Load(); i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if delay > maxDelay {
			return maxDelay
		}
	}
	return delay
}

// Status reports the lifecycle state and most recent activity.
func (c *Ingestor) Status() ingest.Status {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	return ingest.Status{
		Kind:           ingest.KindStreaming,
		State:          state.String(),
		Active:         state == component.StateStarted && c.connected.Load(),
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
		Description: "Device-stream ingestor bridging a WebSocket feed to raw records",
		Version:     "0.1.0",
	}
}

// InputPorts returns the device feed endpoint.
func (c *Ingestor) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:      "device_feed",
			Direction: component.DirectionInput,
			Required:  true,
			Config: component.EndpointPort{
				URL: c.url,
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
	return streamSchema
}

// Health returns the current health status of this ingestor. The feed is
// healthy only while its connection is up.
func (c *Ingestor) Health() component.HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    c.state == component.StateStarted && c.connected.Load(),
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
