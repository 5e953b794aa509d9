package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/etlstreams/metric"
)

// Metrics holds the Prometheus instruments shared by the ingestor variants.
// Each variant registers its own set under an "ingest_<kind>" subsystem, with
// instruments labeled by component instance name.
type Metrics struct {
	recordsIngested  *prometheus.CounterVec
	sourcesProcessed *prometheus.CounterVec
	ingestErrors     *prometheus.CounterVec
	passDuration     *prometheus.HistogramVec
}

// NewMetrics creates and registers ingestion metrics for one ingestor kind.
// Returns nil when the registry is nil; all recording methods nil-check so
// metrics stay optional.
func NewMetrics(registry *metric.MetricsRegistry, kind string) (*Metrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	subsystem := "ingest_" + kind

	m := &Metrics{
		recordsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etlstreams",
			Subsystem: subsystem,
			Name:      "records_total",
			Help:      "Total records emitted to the raw record subject",
		}, []string{"component"}),

		sourcesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etlstreams",
			Subsystem: subsystem,
			Name:      "sources_total",
			Help:      "Total sources (files, endpoints, targets) fully processed",
		}, []string{"component"}),

		ingestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etlstreams",
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total ingestion failures by type",
		}, []string{"component", "error_type"}),

		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "etlstreams",
			Subsystem: subsystem,
			Name:      "pass_duration_seconds",
			Help:      "Duration of one ingestion pass over a source",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"component"}),
	}

	if err := registry.RegisterCounterVec(subsystem, "records_total", m.recordsIngested); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(subsystem, "sources_total", m.sourcesProcessed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(subsystem, "errors_total", m.ingestErrors); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec(subsystem, "pass_duration", m.passDuration); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordIngested adds emitted records for a component.
func (m *Metrics) RecordIngested(componentName string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsIngested.WithLabelValues(componentName).Add(float64(n))
}

// RecordSource records one completed source and its pass duration.
func (m *Metrics) RecordSource(componentName string, d time.Duration) {
	if m == nil {
		return
	}
	m.sourcesProcessed.WithLabelValues(componentName).Inc()
	m.passDuration.WithLabelValues(componentName).Observe(d.Seconds())
}

// RecordError counts one ingestion failure. The error type is one of
// "read", "decode", "publish", "row", or "queue".
func (m *Metrics) RecordError(componentName, errorType string) {
	if m == nil {
		return
	}
	m.ingestErrors.WithLabelValues(componentName, errorType).Inc()
}
