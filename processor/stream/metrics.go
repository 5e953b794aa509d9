package stream

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/etlstreams/metric"
)

// procMetrics holds Prometheus metrics for stream processor operations.
type procMetrics struct {
	// Stage counters
	stageTotal     *prometheus.CounterVec // By component_name and stage
	processedTotal *prometheus.CounterVec // By component_name

	// Operation errors
	errors *prometheus.CounterVec // By component_name and error_type

	// Sink outcomes
	sinkWrites *prometheus.CounterVec // By component_name, target and status

	// Performance metrics
	processingDuration *prometheus.HistogramVec // By component_name
}

// newProcMetrics creates and registers stream processor metrics with the
// provided registry.
func newProcMetrics(registry *metric.MetricsRegistry) (*procMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &procMetrics{
		stageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etlstreams",
			Subsystem: "stream_processor",
			Name:      "records_stage_total",
			Help:      "Total number of records that cleared each pipeline stage",
		}, []string{"component", "stage"}), // stage: validate, transform, enrich

		processedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etlstreams",
			Subsystem: "stream_processor",
			Name:      "records_processed_total",
			Help:      "Total number of records processed end to end",
		}, []string{"component"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etlstreams",
			Subsystem: "stream_processor",
			Name:      "errors_total",
			Help:      "Total number of record processing failures",
		}, []string{"component", "error_type"}), // error_type: decode, validate, transform, enrich, sink

		sinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etlstreams",
			Subsystem: "stream_processor",
			Name:      "sink_writes_total",
			Help:      "Total number of sink write attempts by target",
		}, []string{"component", "target", "status"}), // target: nats, warehouse

		processingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "etlstreams",
			Subsystem: "stream_processor",
			Name:      "processing_duration_seconds",
			Help:      "Per-record processing duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}, // Millisecond to sink-bound seconds
		}, []string{"component"}),
	}

	// Register all metrics
	if err := registry.RegisterCounterVec("stream_processor", "records_stage", m.stageTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("stream_processor", "records_processed", m.processedTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("stream_processor", "errors", m.errors); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("stream_processor", "sink_writes", m.sinkWrites); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("stream_processor", "processing_duration", m.processingDuration); err != nil {
		return nil, err
	}

	return m, nil
}

// recordStage records a record clearing one pipeline stage.
func (m *procMetrics) recordStage(componentName, stage string) {
	if m == nil {
		return
	}

	m.stageTotal.WithLabelValues(componentName, stage).Inc()
}

// recordProcessed records one record finishing the full pipeline.
func (m *procMetrics) recordProcessed(componentName string, duration time.Duration) {
	if m == nil {
		return
	}

	m.processedTotal.WithLabelValues(componentName).Inc()
	m.processingDuration.WithLabelValues(componentName).Observe(duration.Seconds())
}

// recordError records a record processing failure.
func (m *procMetrics) recordError(componentName, errorType string) {
	if m == nil {
		return
	}

	m.errors.WithLabelValues(componentName, errorType).Inc()
}

// recordSink records one sink write attempt.
func (m *procMetrics) recordSink(componentName, target string, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sinkWrites.WithLabelValues(componentName, target, status).Inc()
}
