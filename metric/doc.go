// Package metric provides Prometheus-based metrics collection and an HTTP
// exposition server for ETLStreams observability.
//
// The package offers a centralized metrics registry managing core platform
// metrics (component status, record counts, NATS health, warehouse loads)
// alongside component-specific metrics registered at construction time. The
// Monitor type is the fire-and-forget observation sink used by the ingestion
// coordinator's aggregation tick.
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil && err != http.ErrServerClosed {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core platform metrics
//	core := registry.CoreMetrics()
//	core.RecordComponentStatus("stream-processor", 2)
//	core.RecordProcessed("stream-processor", "success")
//
// Components register their own metrics against the registry with a
// duplicate-checked component/metric key:
//
//	recordsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
//	    Name: "csv_records_total",
//	    Help: "Records read from CSV files",
//	}, []string{"file"})
//	if err := registry.RegisterCounterVec("csv-ingestor", "csv_records_total", recordsTotal); err != nil {
//	    return err
//	}
//
// # Monitor
//
// The Monitor accepts named observations without any registration step;
// well-known names (ingestion_total_records, ingestion_active_sources) are
// routed onto typed gauges:
//
//	monitor := metric.NewMonitor(registry)
//	monitor.RecordMetric(metric.MetricIngestionTotalRecords, 15)
//
// A nil registry yields a nil Monitor, and a nil Monitor silently drops all
// observations — metrics stay optional throughout the pipeline.
//
// # Namespace
//
// All core metrics use the namespace "etlstreams":
//   - etlstreams_component_status{component="..."}
//   - etlstreams_records_processed_total{component="...",status="..."}
//   - etlstreams_ingestion_total_records
//   - etlstreams_nats_connected
//
// Component-specific metrics use the name given at registration.
//
// # Thread Safety
//
// Registration uses mutex protection; metric recording is lock-free
// (Prometheus guarantee); CoreMetrics() returns a shared thread-safe instance.
package metric
