package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockIngestor simulates a component that can register its own metrics
type MockIngestor struct {
	name    string
	metrics struct {
		filesProcessed prometheus.Counter
		batchDepth     prometheus.Gauge
	}
}

func NewMockIngestor(name string) *MockIngestor {
	return &MockIngestor{name: name}
}

func (m *MockIngestor) Name() string {
	return m.name
}

// RegisterMetrics registers domain-specific metrics for the mock ingestor
func (m *MockIngestor) RegisterMetrics(registrar MetricsRegistrar) error {
	// Register a custom counter
	m.metrics.filesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "etlstreams",
		Subsystem: "mock_ingestor",
		Name:      "files_processed_total",
		Help:      "Total number of source files processed",
	})

	err := registrar.RegisterCounter(m.name, "files_processed_total", m.metrics.filesProcessed)
	if err != nil {
		return err
	}

	// Register a custom gauge
	m.metrics.batchDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "etlstreams",
		Subsystem: "mock_ingestor",
		Name:      "batch_depth",
		Help:      "Current depth of pending ingestion batches",
	})

	return registrar.RegisterGauge(m.name, "batch_depth", m.metrics.batchDepth)
}

// IngestFiles simulates file ingestion and updates metrics
func (m *MockIngestor) IngestFiles(files int, batchDepth int) {
	m.metrics.filesProcessed.Add(float64(files))
	m.metrics.batchDepth.Set(float64(batchDepth))
}

func TestMetricsIntegration_ComponentRegistration(t *testing.T) {
	// Create a new metrics registry
	registry := NewMetricsRegistry()

	// Create mock ingestor
	mockIngestor := NewMockIngestor("test-ingestor")

	// Register the ingestor's metrics
	err := mockIngestor.RegisterMetrics(registry)
	require.NoError(t, err)

	// Simulate some ingestion activity
	mockIngestor.IngestFiles(10, 5)

	// Verify metrics are registered and have values
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	// Verify custom metrics are registered
	assert.True(t, foundMetrics["etlstreams_mock_ingestor_files_processed_total"],
		"Custom files_processed metric should be registered")
	assert.True(t, foundMetrics["etlstreams_mock_ingestor_batch_depth"],
		"Custom batch_depth metric should be registered")
}

func TestMetricsIntegration_NoDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	// Create two ingestors with the same name (this shouldn't happen in real usage)
	ingestor1 := NewMockIngestor("duplicate-ingestor")
	ingestor2 := NewMockIngestor("duplicate-ingestor")

	// Register first ingestor's metrics
	err := ingestor1.RegisterMetrics(registry)
	require.NoError(t, err)

	// Try to register second ingestor's metrics - should fail
	err = ingestor2.RegisterMetrics(registry)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestMetricsIntegration_CoreAndComponentMetricsSeparate(t *testing.T) {
	registry := NewMetricsRegistry()
	coreMetrics := registry.CoreMetrics()

	mockIngestor := NewMockIngestor("separation-test")
	err := mockIngestor.RegisterMetrics(registry)
	require.NoError(t, err)

	// Use core metrics
	coreMetrics.RecordComponentStatus("separation-test", 2)
	coreMetrics.RecordIngested("csv", 3)

	// Use component-specific metrics
	mockIngestor.IngestFiles(5, 3)

	// Verify both types of metrics are present
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	// Verify core metrics
	assert.True(t, foundMetrics["etlstreams_component_status"],
		"core component status metric should be present")
	assert.True(t, foundMetrics["etlstreams_records_ingested_total"],
		"core records ingested metric should be present")

	// Verify component-specific metrics
	assert.True(t, foundMetrics["etlstreams_mock_ingestor_files_processed_total"],
		"Component-specific files processed metric should be present")
	assert.True(t, foundMetrics["etlstreams_mock_ingestor_batch_depth"],
		"Component-specific batch depth metric should be present")

	// Verify source-specific metrics are NOT present (they should be registered by specific components only)
	assert.False(t, foundMetrics["etlstreams_scraper_pages_rendered_total"],
		"Scraper page metric should NOT be in core registry")
	assert.False(t, foundMetrics["etlstreams_devicestream_frames_total"],
		"Device stream frame metric should NOT be in core registry")
}

func TestMetricsIntegration_MetricsUnregistration(t *testing.T) {
	registry := NewMetricsRegistry()

	mockIngestor := NewMockIngestor("unregister-test")

	// Register metrics
	err := mockIngestor.RegisterMetrics(registry)
	require.NoError(t, err)

	// Process some data to make metrics visible
	mockIngestor.IngestFiles(1, 1)

	// Verify metrics are present
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundBefore := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundBefore[mf.GetName()] = true
	}

	assert.True(t, foundBefore["etlstreams_mock_ingestor_files_processed_total"],
		"Metric should be present before unregistration")

	// Unregister one of the metrics
	success := registry.Unregister("unregister-test", "files_processed_total")
	assert.True(t, success, "Unregistration should succeed")

	// Verify metric is no longer present
	metricFamilies, err = registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundAfter := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundAfter[mf.GetName()] = true
	}

	assert.False(t, foundAfter["etlstreams_mock_ingestor_files_processed_total"],
		"Metric should be absent after unregistration")
	assert.True(t, foundAfter["etlstreams_mock_ingestor_batch_depth"],
		"Other component metrics should remain")
}

func TestMetricsIntegration_MultipleComponentsWithUniqueMetrics(t *testing.T) {
	registry := NewMetricsRegistry()

	// Create multiple components - they need different metric names to coexist
	ingestor1 := NewMockIngestor("csv-ingestor")
	ingestor2 := NewMockIngestor("api-ingestor")

	// Register first component
	err := ingestor1.RegisterMetrics(registry)
	require.NoError(t, err)

	// The second component will fail because it tries to register the same Prometheus metric names
	// This demonstrates that our registry correctly prevents Prometheus-level conflicts
	err = ingestor2.RegisterMetrics(registry)
	assert.Error(t, err, "Second component should fail due to Prometheus metric name conflict")
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestMetricsIntegration_MultipleComponentsSameNames(t *testing.T) {
	registry := NewMetricsRegistry()

	// Create components with identical names - this simulates trying to register
	// the same component twice, which should be prevented
	ingestor1 := NewMockIngestor("identical-ingestor")
	ingestor2 := NewMockIngestor("identical-ingestor")

	// Register first component
	err := ingestor1.RegisterMetrics(registry)
	require.NoError(t, err)

	// Second component with same name should fail at our registry level
	err = ingestor2.RegisterMetrics(registry)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}
