package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/etlstreams/metric"
)

// engineMetrics holds Prometheus metrics for engine lifecycle operations.
type engineMetrics struct {
	creates *prometheus.CounterVec // By component and status (success/failure)
	starts  *prometheus.CounterVec // By component and status
	stops   *prometheus.CounterVec // By component and status

	startDuration *prometheus.HistogramVec // By component
	stopDuration  *prometheus.HistogramVec // By component

	running prometheus.Gauge // Current number of started components
}

// newEngineMetrics creates and registers engine metrics with the provided
// registry. A nil registry disables metrics.
func newEngineMetrics(registry *metric.MetricsRegistry) (*engineMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &engineMetrics{
		creates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etlstreams",
			Subsystem: "engine",
			Name:      "component_creates_total",
			Help:      "Total number of component create operations",
		}, []string{"component", "status"}),

		starts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etlstreams",
			Subsystem: "engine",
			Name:      "component_starts_total",
			Help:      "Total number of component start operations",
		}, []string{"component", "status"}),

		stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etlstreams",
			Subsystem: "engine",
			Name:      "component_stops_total",
			Help:      "Total number of component stop operations",
		}, []string{"component", "status"}),

		startDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "etlstreams",
			Subsystem: "engine",
			Name:      "component_start_duration_seconds",
			Help:      "Component start duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		}, []string{"component"}),

		stopDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "etlstreams",
			Subsystem: "engine",
			Name:      "component_stop_duration_seconds",
			Help:      "Component stop duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"component"}),

		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "etlstreams",
			Subsystem: "engine",
			Name:      "running_components",
			Help:      "Current number of started components",
		}),
	}

	if err := registry.RegisterCounterVec("engine", "component_creates", m.creates); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "component_starts", m.starts); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "component_stops", m.stops); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("engine", "component_start_duration", m.startDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("engine", "component_stop_duration", m.stopDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("engine", "running_components", m.running); err != nil {
		return nil, err
	}

	return m, nil
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// recordCreate records a component create operation.
func (m *engineMetrics) recordCreate(name string, success bool) {
	if m == nil {
		return
	}
	m.creates.WithLabelValues(name, status(success)).Inc()
}

// recordStart records a component start operation.
func (m *engineMetrics) recordStart(name string, success bool, duration float64) {
	if m == nil {
		return
	}
	m.starts.WithLabelValues(name, status(success)).Inc()
	m.startDuration.WithLabelValues(name).Observe(duration)
	if success {
		m.running.Inc()
	}
}

// recordStop records a component stop operation.
func (m *engineMetrics) recordStop(name string, success bool, duration float64) {
	if m == nil {
		return
	}
	m.stops.WithLabelValues(name, status(success)).Inc()
	m.stopDuration.WithLabelValues(name).Observe(duration)
	if success {
		m.running.Dec()
	}
}

// setRunning sets the running components gauge directly.
func (m *engineMetrics) setRunning(count float64) {
	if m != nil {
		m.running.Set(count)
	}
}
