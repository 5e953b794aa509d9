package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not component-specific)
type Metrics struct {
	// Component metrics
	ComponentStatus    *prometheus.GaugeVec
	RecordsIngested    *prometheus.CounterVec
	RecordsProcessed   *prometheus.CounterVec
	RecordsPublished   *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
	HealthCheckStatus  *prometheus.GaugeVec

	// Ingestion aggregation metrics (written by the coordinator tick)
	IngestionTotalRecords  prometheus.Gauge
	IngestionActiveSources prometheus.Gauge

	// Warehouse metrics
	WarehouseLoads *prometheus.CounterVec

	// NATS metrics
	NATSConnected      prometheus.Gauge
	NATSRTT            prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "etlstreams",
				Subsystem: "component",
				Name:      "status",
				Help:      "Component status (0=created, 1=initialized, 2=started, 3=stopping, 4=stopped, 5=failed)",
			},
			[]string{"component"},
		),

		RecordsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "etlstreams",
				Subsystem: "records",
				Name:      "ingested_total",
				Help:      "Total number of records ingested by source kind",
			},
			[]string{"source"},
		),

		RecordsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "etlstreams",
				Subsystem: "records",
				Name:      "processed_total",
				Help:      "Total number of records processed",
			},
			[]string{"component", "status"},
		),

		RecordsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "etlstreams",
				Subsystem: "records",
				Name:      "published_total",
				Help:      "Total number of records published",
			},
			[]string{"component", "subject"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "etlstreams",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Record processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "etlstreams",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "etlstreams",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		IngestionTotalRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "etlstreams",
				Subsystem: "ingestion",
				Name:      "total_records",
				Help:      "Total records ingested across all active sources, updated each aggregation tick",
			},
		),

		IngestionActiveSources: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "etlstreams",
				Subsystem: "ingestion",
				Name:      "active_sources",
				Help:      "Number of active ingestion sources, updated each aggregation tick",
			},
		),

		WarehouseLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "etlstreams",
				Subsystem: "warehouse",
				Name:      "loads_total",
				Help:      "Total number of warehouse load operations",
			},
			[]string{"store", "status"},
		),

		// NATS metrics
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "etlstreams",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "etlstreams",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "etlstreams",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		NATSCircuitBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "etlstreams",
				Subsystem: "nats",
				Name:      "circuit_breaker",
				Help:      "NATS circuit breaker status (0=closed, 1=open, 2=half-open)",
			},
		),
	}
}

// RecordComponentStatus updates component status metric
func (c *Metrics) RecordComponentStatus(component string, status int) {
	c.ComponentStatus.WithLabelValues(component).Set(float64(status))
}

// RecordIngested increments the ingested record counter for a source kind
func (c *Metrics) RecordIngested(source string, count int) {
	c.RecordsIngested.WithLabelValues(source).Add(float64(count))
}

// RecordProcessed increments processed record counter
func (c *Metrics) RecordProcessed(component, status string) {
	c.RecordsProcessed.WithLabelValues(component, status).Inc()
}

// RecordPublished increments published record counter
func (c *Metrics) RecordPublished(component, subject string) {
	c.RecordsPublished.WithLabelValues(component, subject).Inc()
}

// RecordProcessingDuration records processing time
func (c *Metrics) RecordProcessingDuration(component, operation string, duration time.Duration) {
	c.ProcessingDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordError increments error counter
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordIngestionAggregate updates the coordinator aggregation gauges
func (c *Metrics) RecordIngestionAggregate(totalRecords int64, activeSources int) {
	c.IngestionTotalRecords.Set(float64(totalRecords))
	c.IngestionActiveSources.Set(float64(activeSources))
}

// RecordWarehouseLoad increments warehouse load counter
func (c *Metrics) RecordWarehouseLoad(store, status string) {
	c.WarehouseLoads.WithLabelValues(store, status).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates circuit breaker status
func (c *Metrics) RecordCircuitBreakerState(state int) {
	c.NATSCircuitBreaker.Set(float64(state))
}
