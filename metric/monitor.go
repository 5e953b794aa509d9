package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Monitor is the fire-and-forget observation sink for pipeline components.
// Components report named values without caring how they are exposed; the
// monitor routes well-known names onto typed core metrics and everything
// else onto a generic observations gauge vector.
//
// A nil Monitor is valid and drops all observations, so components can hold
// one unconditionally.
type Monitor struct {
	core         *Metrics
	observations *prometheus.GaugeVec
}

// Well-known observation names routed to typed core metrics.
const (
	MetricIngestionTotalRecords  = "ingestion_total_records"
	MetricIngestionActiveSources = "ingestion_active_sources"
)

// NewMonitor creates a monitor backed by the given registry.
// Returns nil when registry is nil so call sites can treat metrics as optional.
func NewMonitor(registry *MetricsRegistry) *Monitor {
	if registry == nil {
		return nil
	}

	observations := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "etlstreams",
			Subsystem: "monitor",
			Name:      "observations",
			Help:      "Last observed value per reported metric name",
		},
		[]string{"metric"},
	)

	if err := registry.RegisterGaugeVec("monitor", "observations", observations); err != nil {
		// Already registered by a previous monitor instance; reuse is fine.
		observations = nil
	}

	return &Monitor{
		core:         registry.CoreMetrics(),
		observations: observations,
	}
}

// RecordMetric records a named observation. Never blocks, never fails.
func (m *Monitor) RecordMetric(name string, value float64) {
	if m == nil {
		return
	}

	switch name {
	case MetricIngestionTotalRecords:
		m.core.IngestionTotalRecords.Set(value)
	case MetricIngestionActiveSources:
		m.core.IngestionActiveSources.Set(value)
	}

	if m.observations != nil {
		m.observations.WithLabelValues(name).Set(value)
	}
}

// RecordDuration records a named duration observation in seconds.
func (m *Monitor) RecordDuration(name string, seconds float64) {
	m.RecordMetric(name, seconds)
}
