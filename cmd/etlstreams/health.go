package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360/etlstreams/coordinator"
	"github.com/c360/etlstreams/engine"
	"github.com/c360/etlstreams/health"
)

// healthProbeTimeout bounds the component probe behind one health request.
const healthProbeTimeout = 2 * time.Second

const coordinatorName = "ingestion-coordinator"

// healthServer serves the aggregated platform health over HTTP. Every
// request probes the engine components and the coordinator live, so the
// report never goes stale between polls.
type healthServer struct {
	port        int
	monitor     *health.Monitor
	engine      *engine.Engine
	coordinator *coordinator.Coordinator
	server      *http.Server
}

func newHealthServer(port int, eng *engine.Engine, coord *coordinator.Coordinator) *healthServer {
	return &healthServer{
		port:        port,
		monitor:     health.NewMonitor(),
		engine:      eng,
		coordinator: coord,
	}
}

// Start begins serving /healthz in a background goroutine.
func (h *healthServer) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)

	h.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", h.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server stopped", "error", err)
		}
	}()

	slog.Info("Health server listening", "port", h.port, "path", "/healthz")
}

// Stop shuts the health listener down.
func (h *healthServer) Stop() {
	if h.server != nil {
		_ = h.server.Close()
	}
}

// handleHealth refreshes the monitor from live component probes and writes
// the aggregate. Unhealthy aggregates answer 503 so load balancers can act
// on the status code alone.
func (h *healthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	h.refresh(ctx)
	aggregate := h.monitor.AggregateHealth(appName)

	w.Header().Set("Content-Type", "application/json")
	if !aggregate.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(aggregate); err != nil {
		slog.Warn("Health response write failed", "error", err)
	}
}

// refresh snapshots every managed component plus the coordinator into the
// monitor.
func (h *healthServer) refresh(ctx context.Context) {
	for name, ch := range h.engine.ComponentHealth(ctx) {
		h.monitor.Update(name, health.FromComponentHealth(name, ch))
	}

	if h.coordinator == nil {
		return
	}

	status := h.coordinator.Status()
	switch {
	case status.Running && len(status.ActiveSources) == len(status.Sources):
		h.monitor.UpdateHealthy(coordinatorName,
			fmt.Sprintf("%d sources active", len(status.ActiveSources)))
	case status.Running:
		h.monitor.UpdateDegraded(coordinatorName,
			fmt.Sprintf("%d of %d sources active", len(status.ActiveSources), len(status.Sources)))
	default:
		h.monitor.UpdateUnhealthy(coordinatorName, "coordinator not running")
	}
}
