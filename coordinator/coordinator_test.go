package coordinator

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/ingest"
)

// callLog records lifecycle calls across fakes so tests can assert order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// fakeIngestor implements ingest.Ingestor with scriptable failures.
type fakeIngestor struct {
	kind      string
	log       *callLog
	initErr   error
	startErr  error
	stopErr   error
	ingestN   int
	ingestErr error
	records   int64

	mu        sync.Mutex
	active    bool
	lastCfg   ingest.Config
	ingestRan bool
}

func (f *fakeIngestor) Kind() string { return f.kind }

func (f *fakeIngestor) Initialize() error {
	f.log.add("init:" + f.kind)
	return f.initErr
}

func (f *fakeIngestor) Start(context.Context) error {
	f.log.add("start:" + f.kind)
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.active = true
	f.mu.Unlock()
	return nil
}

func (f *fakeIngestor) Stop(time.Duration) error {
	f.log.add("stop:" + f.kind)
	f.mu.Lock()
	f.active = false
	f.mu.Unlock()
	return f.stopErr
}

func (f *fakeIngestor) Ingest(_ context.Context, cfg ingest.Config) (int, error) {
	f.mu.Lock()
	f.lastCfg = cfg
	f.ingestRan = true
	f.mu.Unlock()
	return f.ingestN, f.ingestErr
}

func (f *fakeIngestor) Status() ingest.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ingest.Status{Kind: f.kind, Active: f.active}
}

func (f *fakeIngestor) Stats() ingest.Stats {
	return ingest.Stats{RecordsIngested: f.records, IngestErrors: 0}
}

func newFake(kind string, log *callLog) *fakeIngestor {
	return &fakeIngestor{kind: kind, log: log}
}

func fastConfig() Config {
	return Config{AggregateEvery: 10 * time.Millisecond, BackoffEvery: 500 * time.Millisecond}
}

func newCoordinator(t *testing.T, cfg Config, ingestors ...ingest.Ingestor) *Coordinator {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord, err := New(ingestors, cfg, nil, logger)
	require.NoError(t, err)
	return coord
}

func newStartedCoordinator(t *testing.T, cfg Config, ingestors ...ingest.Ingestor) *Coordinator {
	t.Helper()

	coord := newCoordinator(t, cfg, ingestors...)
	require.NoError(t, coord.Initialize())
	require.NoError(t, coord.Start(context.Background()))
	t.Cleanup(func() { _ = coord.Stop(time.Second) })
	return coord
}

func TestNew_RejectsDuplicateKinds(t *testing.T) {
	log := &callLog{}
	_, err := New(
		[]ingest.Ingestor{newFake("csv", log), newFake("csv", log)},
		DefaultConfig(), nil, nil,
	)
	require.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestCoordinator_InitializeSortedOrder(t *testing.T) {
	log := &callLog{}
	coord := newCoordinator(t, DefaultConfig(),
		newFake("streaming", log), newFake("api", log), newFake("csv", log))

	require.NoError(t, coord.Initialize())
	assert.Equal(t, []string{"init:api", "init:csv", "init:streaming"}, log.list())
	assert.Equal(t, []string{"api", "csv", "streaming"}, coord.Kinds())
}

func TestCoordinator_InitializeFirstFailureFatal(t *testing.T) {
	log := &callLog{}
	bad := newFake("api", log)
	bad.initErr = stderrors.New("no endpoint")
	coord := newCoordinator(t, DefaultConfig(), newFake("csv", log), bad)

	err := coord.Initialize()
	require.Error(t, err)

	// Sorted order puts api first, so csv is never touched.
	assert.Equal(t, []string{"init:api"}, log.list())
}

func TestCoordinator_StartRollsBackOnFailure(t *testing.T) {
	log := &callLog{}
	bad := newFake("csv", log)
	bad.startErr = stderrors.New("bad landing dir")
	coord := newCoordinator(t, DefaultConfig(),
		newFake("api", log), bad, newFake("streaming", log))

	require.NoError(t, coord.Initialize())
	require.Error(t, coord.Start(context.Background()))

	assert.Equal(t, []string{
		"init:api", "init:csv", "init:streaming",
		"start:api", "start:csv", "stop:api",
	}, log.list())
	assert.False(t, coord.Status().Running)
}

func TestCoordinator_StopReverseBestEffort(t *testing.T) {
	log := &callLog{}
	bad := newFake("csv", log)
	bad.stopErr = stderrors.New("drain failed")
	coord := newCoordinator(t, DefaultConfig(),
		newFake("api", log), bad, newFake("streaming", log))

	require.NoError(t, coord.Initialize())
	require.NoError(t, coord.Start(context.Background()))
	require.NoError(t, coord.Stop(time.Second), "one failing ingestor must not fail the stop")

	calls := log.list()
	assert.Equal(t, []string{"stop:streaming", "stop:csv", "stop:api"}, calls[len(calls)-3:])
	assert.Equal(t, "stopped", coord.Status().State)
}

func TestCoordinator_IngestFromSource(t *testing.T) {
	log := &callLog{}
	csv := newFake("csv", log)
	csv.ingestN = 42
	api := newFake("api", log)
	coord := newStartedCoordinator(t, DefaultConfig(), csv, api)

	n, err := coord.IngestFromSource(context.Background(), "csv", ingest.Config{Path: "/data/in"})
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, "/data/in", csv.lastCfg.Path)
	assert.False(t, api.ingestRan)

	_, err = coord.IngestFromSource(context.Background(), "carrier_pigeon", ingest.Config{})
	require.ErrorIs(t, err, ingest.ErrUnknownSourceKind)
}

func TestCoordinator_IngestBeforeStart(t *testing.T) {
	coord := newCoordinator(t, DefaultConfig(), newFake("csv", &callLog{}))

	_, err := coord.IngestFromSource(context.Background(), "csv", ingest.Config{})
	require.ErrorIs(t, err, errors.ErrNotStarted)
}

func TestCoordinator_AggregatesAcrossSources(t *testing.T) {
	log := &callLog{}
	csv := newFake("csv", log)
	csv.records = 10
	api := newFake("api", log)
	api.records = 0
	streaming := newFake("streaming", log)
	streaming.records = 5
	coord := newStartedCoordinator(t, DefaultConfig(), csv, api, streaming)

	// A zero-record source still counts as active.
	stats := coord.Stats()
	assert.Equal(t, int64(15), stats.TotalRecords)
	assert.Equal(t, 3, stats.ActiveSources)
	assert.Equal(t, int64(10), stats.Sources["csv"].RecordsIngested)

	status := coord.Status()
	assert.Equal(t, []string{"api", "csv", "streaming"}, status.ActiveSources)
	require.Len(t, status.Sources, 3)

	require.NoError(t, coord.aggregateOnce())
}

func TestCoordinator_AggregationLoopTicks(t *testing.T) {
	coord := newCoordinator(t, fastConfig(), newFake("csv", &callLog{}))

	var ticks atomic.Int32
	coord.aggregateFn = func() error {
		ticks.Add(1)
		return nil
	}

	require.NoError(t, coord.Initialize())
	require.NoError(t, coord.Start(context.Background()))
	t.Cleanup(func() { _ = coord.Stop(time.Second) })

	require.Eventually(t, func() bool {
		return ticks.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestCoordinator_BackoffAfterFailedTick(t *testing.T) {
	coord := newCoordinator(t, fastConfig(), newFake("csv", &callLog{}))

	var ticks atomic.Int32
	coord.aggregateFn = func() error {
		if ticks.Add(1) == 1 {
			return stderrors.New("monitor offline")
		}
		return nil
	}

	require.NoError(t, coord.Initialize())
	require.NoError(t, coord.Start(context.Background()))
	t.Cleanup(func() { _ = coord.Stop(time.Second) })

	require.Eventually(t, func() bool {
		return ticks.Load() == 1
	}, time.Second, time.Millisecond)

	// The failed tick stretched the wait to the backoff period, so no
	// second tick lands inside the normal cadence.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), ticks.Load())

	// After the backoff elapses the loop resumes.
	require.Eventually(t, func() bool {
		return ticks.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCoordinator_Lifecycle(t *testing.T) {
	log := &callLog{}
	coord := newCoordinator(t, DefaultConfig(), newFake("csv", log))

	err := coord.Start(context.Background())
	require.ErrorIs(t, err, errors.ErrNotInitialized)

	require.NoError(t, coord.Initialize())
	require.ErrorIs(t, coord.Initialize(), errors.ErrAlreadyInitialized)

	require.NoError(t, coord.Start(context.Background()))
	require.ErrorIs(t, coord.Start(context.Background()), errors.ErrAlreadyStarted)

	status := coord.Status()
	assert.Equal(t, "started", status.State)
	assert.True(t, status.Running)
	assert.Equal(t, []string{"csv"}, status.ActiveSources)

	require.NoError(t, coord.Stop(time.Second))
	assert.Equal(t, "stopped", coord.Status().State)

	// Stopping twice is a no-op.
	require.NoError(t, coord.Stop(time.Second))
}
