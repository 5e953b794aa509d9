// Package worker provides a generic, thread-safe worker pool for concurrent task processing.
//
// # Overview
//
// The worker package implements a worker pool pattern with:
//   - Generic type support (Go 1.18+) for type-safe work processing
//   - Bounded queues with backpressure (non-blocking submit)
//   - Context-aware cancellation and graceful shutdown
//   - Dual-tracking observability (always-on statistics + optional Prometheus metrics)
//   - Configurable worker count and queue sizing
//
// # Core Concepts
//
// The pool manages a fixed number of goroutines (workers) that process work items
// from a bounded channel (queue). Using Go generics, the pool can process any work
// type T without type assertions:
//
//	type FetchJob struct {
//	    URL      string
//	    Selector string
//	}
//
//	pool := worker.NewPool[FetchJob](
//	    4,    // workers
//	    100,  // queue size
//	    func(ctx context.Context, job FetchJob) error {
//	        // Render and extract the page
//	        return nil
//	    },
//	)
//
// Dual-tracking observability:
//   - Statistics: ALWAYS tracked using atomic operations (zero-allocation)
//   - Metrics: OPTIONAL Prometheus metrics for external monitoring
//
// # Architecture Decisions
//
// Submit() uses a non-blocking send (select with default case) rather than
// blocking on a full queue. Callers never block waiting for queue space;
// ErrQueueFull is the backpressure signal that workers can't keep up.
//
// Workers receive context from Start() and check it on each iteration. The
// processor function signature func(context.Context, T) error lets work
// processors respect cancellation themselves.
//
// Stop(timeout) provides best-effort graceful shutdown:
//  1. Close work channel (no new submissions)
//  2. Workers drain remaining queue items
//  3. Wait for all workers with timeout
//  4. Return ErrStopTimeout if workers don't finish
//
// Individual workers don't have per-worker timeouts. If you need per-work-item
// timeouts, implement them in the processor function using the context.
//
// # Usage Example
//
//	pool := worker.NewPool[FetchJob](
//	    4, 100,
//	    func(ctx context.Context, job FetchJob) error {
//	        return renderPage(ctx, job)
//	    },
//	)
//
//	ctx := context.Background()
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
//
//	for _, url := range urls {
//	    if err := pool.Submit(FetchJob{URL: url}); err != nil {
//	        if errors.Is(err, worker.ErrQueueFull) {
//	            // Queue full - back off or drop
//	        }
//	    }
//	}
//
// With Prometheus metrics:
//
//	import "github.com/c360/etlstreams/metric"
//
//	registry := metric.NewMetricsRegistry()
//
//	pool := worker.NewPool[FetchJob](
//	    4, 100, renderPage,
//	    worker.WithMetricsRegistry[FetchJob](registry, "scrape_fetch"),
//	)
//
//	// Metrics exposed:
//	// - scrape_fetch_queue_depth (current queue depth)
//	// - scrape_fetch_utilization (queue depth / queue size)
//	// - scrape_fetch_submitted_total (total submitted)
//	// - scrape_fetch_processed_total (total processed)
//	// - scrape_fetch_failed_total (total failed)
//	// - scrape_fetch_dropped_total (total dropped when queue full)
//	// - scrape_fetch_processing_duration_seconds (histogram by status)
//
// # Thread Safety
//
// All public methods are safe for concurrent use:
//
//   - Submit(): Lock-free using channel semantics
//   - Start(): Protected by lifecycleMu mutex
//   - Stop(): Protected by lifecycleMu mutex
//   - Stats(): Atomic loads, no locks required
//
// Lifecycle guarantees:
//   - Start() can only be called once
//   - Submit() fails if not started or already stopped
//   - Stop() is idempotent (safe to call multiple times)
//   - Workers complete in-flight work before exiting
//
// # Error Handling
//
// The worker package uses standard errors (not classified errors) because
// worker pool errors are always programming errors or resource exhaustion:
//
//   - ErrPoolNotStarted: Programming error (Submit before Start)
//   - ErrPoolAlreadyStarted: Programming error (Start called twice)
//   - ErrPoolStopped: Expected after Stop() called
//   - ErrQueueFull: Resource exhaustion (backpressure signal)
//   - ErrNilProcessor: Programming error (validation failure)
//   - ErrStopTimeout: Resource exhaustion (workers stuck)
//
// Processor functions can return classified errors (Fatal, Transient, Invalid)
// and the pool will track them in the failed counter, but doesn't interpret them.
//
// # Known Limitations
//
//  1. No per-work-item timeout: Implement in processor function
//  2. No priority queues: All work processed FIFO
//  3. No work cancellation: Can't cancel individual queued items
//  4. Queue depth metrics: 1-second granularity (ticker-based)
//  5. No dynamic worker scaling: Worker count is fixed
//
// # See Also
//
//   - buffer package: For buffering with overflow policies
//   - retry package: For retry logic with exponential backoff
//   - metric package: For metrics registry integration
package worker
