package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/etlstreams/component"
	"github.com/c360/etlstreams/component/flowgraph"
	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/types"
)

const (
	// componentStopTimeout bounds how long a single component may take to
	// drain during shutdown. The overall Stop deadline still wins when it
	// is shorter.
	componentStopTimeout = 10 * time.Second

	// healthProbeLimit caps concurrent Health() probes so a platform with
	// many components does not burst goroutines on every status poll.
	healthProbeLimit = 8
)

// Engine owns the runtime lifecycle of all configured components.
//
// Engine follows the platform lifecycle:
//
//	Initialize() - create and initialize components from config, skip disabled
//	Start(ctx)   - start initialized components, recording start order
//	Stop(d)      - stop components in reverse start order, bounded by d
//
// Component creation failures are logged and skipped so one broken config
// entry cannot keep the rest of the platform down. Callers that need
// stricter guarantees run Validator over the config first.
type Engine struct {
	registry *component.Registry
	configs  map[string]types.ComponentConfig
	deps     component.Dependencies
	logger   *slog.Logger
	metrics  *engineMetrics

	// components tracks managed instances by name, startOrder records the
	// order Start brought them up so Stop can reverse it.
	components map[string]*component.ManagedComponent
	startOrder []string

	mu          sync.RWMutex
	initMu      sync.Mutex
	startMu     sync.Mutex
	initialized atomic.Bool
	started     atomic.Bool
}

// ComponentStatus combines lifecycle state with health and flow metrics.
type ComponentStatus struct {
	Name      string                 `json:"name"`
	Factory   string                 `json:"factory"`
	State     component.State        `json:"state"`
	Health    component.HealthStatus `json:"health"`
	DataFlow  component.FlowMetrics  `json:"data_flow"`
	LastError string                 `json:"last_error,omitempty"`
}

// New creates an Engine over the given factory registry and component
// configuration map. The map key is the instance name; entries with
// Enabled=false are kept for status reporting but never created.
func New(registry *component.Registry, configs map[string]types.ComponentConfig, deps component.Dependencies) (*Engine, error) {
	if registry == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Engine", "New", "registry validation")
	}
	if configs == nil {
		configs = make(map[string]types.ComponentConfig)
	}

	logger := deps.GetLoggerWithComponent("engine")

	metrics, err := newEngineMetrics(deps.MetricsRegistry)
	if err != nil {
		logger.Warn("Engine metrics unavailable", "error", err)
		metrics = nil
	}

	return &Engine{
		registry:   registry,
		configs:    configs,
		deps:       deps,
		logger:     logger,
		metrics:    metrics,
		components: make(map[string]*component.ManagedComponent),
		startOrder: make([]string, 0),
	}, nil
}

// Initialize creates every enabled component from configuration but does not
// start any of them. Instances are created in instance-name order so runs are
// deterministic. A component that fails to create or initialize is logged and
// skipped; the remaining components still come up.
func (e *Engine) Initialize() error {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.initialized.Load() {
		e.logger.Debug("Engine already initialized")
		return nil
	}

	for _, name := range e.sortedConfigNames() {
		cfg := e.configs[name]
		if !cfg.Enabled {
			e.logger.Debug("Skipping disabled component", "instance", name, "factory", cfg.Name)
			continue
		}

		if err := e.createComponent(name, cfg); err != nil {
			e.metrics.recordCreate(name, false)
			e.logger.Error("Failed to create component",
				"instance", name,
				"factory", cfg.Name,
				"type", cfg.Type,
				"error", err)
			continue
		}

		e.metrics.recordCreate(name, true)
		e.logger.Info("Component created",
			"instance", name,
			"factory", cfg.Name,
			"type", cfg.Type)
	}

	e.reportWiring()
	e.initialized.Store(true)
	return nil
}

// createComponent builds one instance through the registry and runs its
// Initialize phase. The registry rejects unknown factories, type mismatches,
// schema violations and resource conflicts before the factory executes.
func (e *Engine) createComponent(name string, cfg types.ComponentConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.components[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("component %q already exists", name),
			"Engine", "createComponent", "duplicate instance check")
	}

	comp, err := e.registry.CreateComponent(name, cfg, e.deps)
	if err != nil {
		return err
	}

	mc := &component.ManagedComponent{
		Component: comp,
		State:     component.StateCreated,
	}

	if lifecycle, ok := component.AsLifecycleComponent(comp); ok {
		if err := lifecycle.Initialize(); err != nil {
			e.registry.UnregisterInstance(name)
			return errors.Wrap(err, "Engine", "createComponent", "component initialization")
		}
		mc.State = component.StateInitialized
	}

	e.components[name] = mc
	return nil
}

// Start brings up all initialized components in instance-name order, giving
// each its own child context and recording the order for reverse shutdown.
// A component that fails to start is marked failed and skipped; Start itself
// only fails when the engine was never initialized.
func (e *Engine) Start(ctx context.Context) error {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	if !e.initialized.Load() {
		return errors.WrapFatal(errors.ErrNotInitialized, "Engine", "Start", "lifecycle check")
	}
	if e.started.Load() {
		e.logger.Debug("Engine already started")
		return nil
	}

	e.mu.Lock()
	names := make([]string, 0, len(e.components))
	for name := range e.components {
		names = append(names, name)
	}
	sort.Strings(names)
	e.startOrder = make([]string, 0, len(names))
	e.mu.Unlock()

	for _, name := range names {
		e.startComponent(ctx, name)
	}

	e.started.Store(true)
	e.metrics.setRunning(float64(len(e.startOrder)))

	e.logger.Info("Engine started",
		"components", len(names),
		"running", len(e.startOrder))
	return nil
}

// startComponent starts one managed component under its own cancelable
// child context and appends it to the start order on success.
func (e *Engine) startComponent(ctx context.Context, name string) {
	e.mu.Lock()
	mc, exists := e.components[name]
	if !exists {
		e.mu.Unlock()
		return
	}
	lifecycle, ok := component.AsLifecycleComponent(mc.Component)
	if !ok {
		e.mu.Unlock()
		return
	}
	childCtx, cancel := context.WithCancel(ctx)
	mc.Context = childCtx
	mc.Cancel = cancel
	e.mu.Unlock()

	began := time.Now()
	if err := lifecycle.Start(childCtx); err != nil {
		cancel()
		e.mu.Lock()
		mc.State = component.StateFailed
		mc.LastError = err
		mc.Context = nil
		mc.Cancel = nil
		e.mu.Unlock()
		e.metrics.recordStart(name, false, time.Since(began).Seconds())
		e.logger.Error("Component failed to start", "component", name, "error", err)
		return
	}

	e.mu.Lock()
	mc.State = component.StateStarted
	mc.LastError = nil
	mc.StartOrder = len(e.startOrder)
	e.startOrder = append(e.startOrder, name)
	e.mu.Unlock()

	e.metrics.recordStart(name, true, time.Since(began).Seconds())
	e.logger.Info("Component started", "component", name, "type", mc.Component.Meta().Type)
}

// Stop shuts down all started components in reverse start order. Every
// component context is canceled first so downstream components see the
// shutdown signal while upstream ones drain. Each component gets up to
// componentStopTimeout, clipped to whatever remains of the overall timeout.
// Stop keeps going past individual failures and reports them at the end.
func (e *Engine) Stop(timeout time.Duration) error {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	if !e.started.Load() {
		return nil
	}

	deadline := time.Now().Add(timeout)

	e.mu.Lock()
	stopOrder := make([]string, len(e.startOrder))
	copy(stopOrder, e.startOrder)
	for i := len(stopOrder) - 1; i >= 0; i-- {
		if mc, exists := e.components[stopOrder[i]]; exists && mc.Cancel != nil {
			mc.Cancel()
		}
	}
	e.mu.Unlock()

	var failed []string
	for i := len(stopOrder) - 1; i >= 0; i-- {
		name := stopOrder[i]

		remaining := time.Until(deadline)
		if remaining <= 0 {
			e.setComponentState(name, component.StateFailed, errors.ErrShuttingDown)
			e.metrics.recordStop(name, false, 0)
			e.logger.Warn("Shutdown deadline exceeded, component not stopped", "component", name)
			failed = append(failed, name)
			continue
		}

		stopTimeout := componentStopTimeout
		if remaining < stopTimeout {
			stopTimeout = remaining
		}

		if err := e.stopComponent(name, stopTimeout); err != nil {
			e.logger.Warn("Component failed to stop", "component", name, "error", err)
			failed = append(failed, name)
		}
	}

	e.mu.Lock()
	e.startOrder = e.startOrder[:0]
	for _, mc := range e.components {
		mc.Context = nil
		mc.Cancel = nil
	}
	e.mu.Unlock()

	e.started.Store(false)
	e.metrics.setRunning(0)

	if len(failed) > 0 {
		return errors.WrapTransient(
			fmt.Errorf("%d of %d components failed to stop: %v", len(failed), len(stopOrder), failed),
			"Engine", "Stop", "reverse-order shutdown")
	}

	e.logger.Info("Engine stopped", "components", len(stopOrder))
	return nil
}

// stopComponent stops a single component and records the outcome.
func (e *Engine) stopComponent(name string, timeout time.Duration) error {
	e.mu.RLock()
	mc, exists := e.components[name]
	e.mu.RUnlock()
	if !exists {
		return nil
	}

	lifecycle, ok := component.AsLifecycleComponent(mc.Component)
	if !ok {
		e.setComponentState(name, component.StateStopped, nil)
		return nil
	}

	began := time.Now()
	if err := lifecycle.Stop(timeout); err != nil {
		e.setComponentState(name, component.StateFailed, err)
		e.metrics.recordStop(name, false, time.Since(began).Seconds())
		return err
	}

	e.setComponentState(name, component.StateStopped, nil)
	e.metrics.recordStop(name, true, time.Since(began).Seconds())
	return nil
}

// setComponentState updates managed state under the engine lock.
func (e *Engine) setComponentState(name string, state component.State, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if mc, exists := e.components[name]; exists {
		mc.State = state
		mc.LastError = err
	}
}

// IsInitialized reports whether Initialize has completed.
func (e *Engine) IsInitialized() bool {
	return e.initialized.Load()
}

// IsStarted reports whether the engine is running.
func (e *Engine) IsStarted() bool {
	return e.started.Load()
}

// Component retrieves a managed component instance by name, nil if absent.
func (e *Engine) Component(name string) component.Discoverable {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if mc, exists := e.components[name]; exists {
		return mc.Component
	}
	return nil
}

// Registry exposes the factory registry for schema introspection.
func (e *Engine) Registry() *component.Registry {
	return e.registry
}

// Running returns the names of currently started components in start order.
func (e *Engine) Running() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	order := make([]string, len(e.startOrder))
	copy(order, e.startOrder)
	return order
}

// Status returns combined lifecycle, health and flow state for every managed
// component. The snapshot is safe to serve from any goroutine.
func (e *Engine) Status() map[string]ComponentStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make(map[string]ComponentStatus, len(e.components))
	for name, mc := range e.components {
		status := ComponentStatus{
			Name:    name,
			Factory: e.configs[name].Name,
			State:   mc.State,
		}
		if mc.LastError != nil {
			status.LastError = mc.LastError.Error()
		}
		if mc.Component != nil {
			status.Health = mc.Component.Health()
			status.DataFlow = mc.Component.DataFlow()
		}
		result[name] = status
	}
	return result
}

// ComponentHealth probes every managed component in parallel and returns a
// health snapshot keyed by instance name. A component that does not answer
// before ctx is done is reported unhealthy instead of blocking the probe.
func (e *Engine) ComponentHealth(ctx context.Context) map[string]component.HealthStatus {
	e.mu.RLock()
	probes := make(map[string]component.Discoverable, len(e.components))
	for name, mc := range e.components {
		if mc.Component != nil {
			probes[name] = mc.Component
		}
	}
	e.mu.RUnlock()

	var resultMu sync.Mutex
	result := make(map[string]component.HealthStatus, len(probes))

	g, probeCtx := errgroup.WithContext(ctx)
	g.SetLimit(healthProbeLimit)
	for name, comp := range probes {
		g.Go(func() error {
			answer := make(chan component.HealthStatus, 1)
			go func() { answer <- comp.Health() }()

			var health component.HealthStatus
			select {
			case health = <-answer:
			case <-probeCtx.Done():
				health = component.HealthStatus{
					Healthy:   false,
					LastCheck: time.Now(),
					LastError: "health probe timed out",
				}
			}

			resultMu.Lock()
			result[name] = health
			resultMu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // probes never return errors, Wait only joins them

	return result
}

// WiringAnalysis builds a port graph over every created component and reports
// how the pipeline hangs together: subject-level connections discovered from
// declared ports, components with no connections at all, and ports nothing
// publishes to or consumes from. Initialize runs this once so a mistyped
// subject shows up in the boot log instead of as silently missing records.
func (e *Engine) WiringAnalysis() (*flowgraph.FlowAnalysisResult, error) {
	e.mu.RLock()
	snapshot := make(map[string]component.Discoverable, len(e.components))
	for name, mc := range e.components {
		if mc.Component != nil {
			snapshot[name] = mc.Component
		}
	}
	e.mu.RUnlock()

	graph := flowgraph.NewFlowGraph()
	for name, comp := range snapshot {
		if err := graph.AddComponentNode(name, comp); err != nil {
			return nil, errors.Wrap(err, "Engine", "WiringAnalysis", "graph construction")
		}
	}

	if err := graph.ConnectComponentsByPatterns(); err != nil {
		// Binding conflicts and multi-writer buckets are reported here but
		// the connectivity analysis still runs over what did connect.
		e.logger.Warn("Pipeline wiring conflicts detected", "error", err)
	}

	return graph.AnalyzeConnectivity(), nil
}

// reportWiring logs the wiring analysis outcome after component creation.
func (e *Engine) reportWiring() {
	analysis, err := e.WiringAnalysis()
	if err != nil {
		e.logger.Warn("Pipeline wiring analysis failed", "error", err)
		return
	}

	for _, node := range analysis.DisconnectedNodes {
		e.logger.Warn("Component has no pipeline connections", "component", node.ComponentName)
	}
	for _, port := range analysis.OrphanedPorts {
		if !port.Required || port.Pattern != flowgraph.PatternStream {
			continue
		}
		e.logger.Warn("Required stream port is not wired",
			"component", port.ComponentName,
			"port", port.PortName,
			"direction", port.Direction,
			"subject", port.ConnectionID,
			"issue", port.Issue)
	}

	e.logger.Debug("Pipeline wiring analyzed",
		"clusters", len(analysis.ConnectedComponents),
		"connections", len(analysis.ConnectedEdges),
		"orphaned_ports", len(analysis.OrphanedPorts))
}

// sortedConfigNames returns configured instance names in a stable order.
func (e *Engine) sortedConfigNames() []string {
	names := make([]string, 0, len(e.configs))
	for name := range e.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
