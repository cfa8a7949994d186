// Package profiler records operation timings and pipeline metrics for detection runs.
package profiler

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// MetricsCollector supplies custom metrics on every sample tick.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// RuntimeProfiler tracks operation timings, custom metrics and runtime memory use.
//
// It is safe for concurrent use. Reports are emitted through slog while the
// profiler is started; timings and metrics can be recorded without starting it.
type RuntimeProfiler struct {
	reportInterval time.Duration
	sampleInterval time.Duration
	maxSamples     int
	logger         *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	startTime time.Time
	running   bool

	memStats    runtime.MemStats
	lastGCCount uint32

	metrics    map[string]*metricTracker
	collectors []MetricsCollector
	operations map[string]*timeTracker
}

type metricTracker struct {
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

func (t *metricTracker) add(v float64, maxSamples int) {
	if t.count == 0 {
		t.min, t.max = v, v
	}
	t.values = append(t.values, v)
	t.sum += v
	if len(t.values) > maxSamples {
		t.sum -= t.values[0]
		t.values = t.values[1:]
	}
	t.count++
	t.min = min(t.min, v)
	t.max = max(t.max, v)
}

type timeTracker struct {
	durations []time.Duration
	total     time.Duration
	min       time.Duration
	max       time.Duration
	count     int64
}

func (t *timeTracker) add(d time.Duration, maxSamples int) {
	if t.count == 0 {
		t.min, t.max = d, d
	}
	t.durations = append(t.durations, d)
	t.total += d
	if len(t.durations) > maxSamples {
		t.total -= t.durations[0]
		t.durations = t.durations[1:]
	}
	t.count++
	t.min = min(t.min, d)
	t.max = max(t.max, d)
}

// ProfilingOptions configures the runtime profiler.
type ProfilingOptions struct {
	// ReportInterval specifies how often to emit status reports (default: 2s)
	ReportInterval time.Duration
	// SampleInterval specifies how often to poll collectors and memory (default: 100ms)
	SampleInterval time.Duration
	// MaxSamples caps the retained samples per metric (default: 600)
	MaxSamples int
	// Logger receives the reports (default: slog.Default())
	Logger *slog.Logger
}

// NewRuntimeProfiler creates a profiler with the specified options.
//
// Arguments:
//   - opts: Configuration options for the profiler.
//
// Returns:
//   - *RuntimeProfiler: A configured, stopped profiler.
//
// @example
// p := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{ReportInterval: 5 * time.Second})
// p.Start()
// defer p.Stop()
// done := p.StartOperation("detect")
// ...
// done()
func NewRuntimeProfiler(opts ProfilingOptions) *RuntimeProfiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 2 * time.Second
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = 100 * time.Millisecond
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RuntimeProfiler{
		reportInterval: opts.ReportInterval,
		sampleInterval: opts.SampleInterval,
		maxSamples:     opts.MaxSamples,
		logger:         opts.Logger,
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
		metrics:        make(map[string]*metricTracker),
		operations:     make(map[string]*timeTracker),
	}
}

// Start begins sampling and periodic reporting. Calling it twice is a no-op.
func (rp *RuntimeProfiler) Start() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.running {
		return
	}
	rp.running = true
	rp.startTime = time.Now()

	rp.wg.Add(2)
	go rp.loop(rp.sampleInterval, rp.sample)
	go rp.loop(rp.reportInterval, rp.LogReport)
}

// Stop stops the background goroutines and waits for them.
func (rp *RuntimeProfiler) Stop() {
	rp.mu.Lock()
	if !rp.running {
		rp.mu.Unlock()
		return
	}
	rp.running = false
	rp.mu.Unlock()

	rp.cancel()
	rp.wg.Wait()
}

// AddMetricsCollector registers a collector polled on every sample tick.
func (rp *RuntimeProfiler) AddMetricsCollector(collector MetricsCollector) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.collectors = append(rp.collectors, collector)
}

// RecordMetric records a custom metric value.
//
// Arguments:
//   - name: The name of the metric, e.g. "clip_ratio".
//   - value: The metric value to record.
func (rp *RuntimeProfiler) RecordMetric(name string, value float64) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.recordLocked(name, value)
}

func (rp *RuntimeProfiler) recordLocked(name string, value float64) {
	t, ok := rp.metrics[name]
	if !ok {
		t = &metricTracker{}
		rp.metrics[name] = t
	}
	t.add(value, rp.maxSamples)
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The operation name, e.g. "sample", "detect" or "persist".
//
// Returns:
//   - func(): Call it when the operation completes.
func (rp *RuntimeProfiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		rp.RecordDuration(name, time.Since(start))
	}
}

// RecordDuration records an operation that was timed elsewhere.
func (rp *RuntimeProfiler) RecordDuration(name string, d time.Duration) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	t, ok := rp.operations[name]
	if !ok {
		t = &timeTracker{}
		rp.operations[name] = t
	}
	t.add(d, rp.maxSamples)
}

func (rp *RuntimeProfiler) loop(every time.Duration, fn func()) {
	defer rp.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rp.ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (rp *RuntimeProfiler) sample() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	runtime.ReadMemStats(&rp.memStats)
	for _, c := range rp.collectors {
		for name, v := range c.CollectMetrics() {
			rp.recordLocked(name, v)
		}
	}
}

// MetricStats summarises a custom metric over the retained samples.
type MetricStats struct {
	Avg     float64
	Min     float64
	Max     float64
	Samples int
	Count   int64
}

// OperationStats summarises an operation's timings over the retained samples.
type OperationStats struct {
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
	Count int64
}

// Snapshot is a point-in-time copy of the profiler state.
type Snapshot struct {
	Uptime     time.Duration
	Goroutines int
	HeapAlloc  uint64
	GCCycles   uint32
	Metrics    map[string]MetricStats
	Operations map[string]OperationStats
}

// Snapshot returns the current statistics.
func (rp *RuntimeProfiler) Snapshot() Snapshot {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	s := Snapshot{
		Uptime:     time.Since(rp.startTime),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  rp.memStats.HeapAlloc,
		GCCycles:   rp.memStats.NumGC,
		Metrics:    make(map[string]MetricStats, len(rp.metrics)),
		Operations: make(map[string]OperationStats, len(rp.operations)),
	}
	for name, t := range rp.metrics {
		if len(t.values) == 0 {
			continue
		}
		s.Metrics[name] = MetricStats{
			Avg:     t.sum / float64(len(t.values)),
			Min:     t.min,
			Max:     t.max,
			Samples: len(t.values),
			Count:   t.count,
		}
	}
	for name, t := range rp.operations {
		if len(t.durations) == 0 {
			continue
		}
		s.Operations[name] = OperationStats{
			Avg:   t.total / time.Duration(len(t.durations)),
			Min:   t.min,
			Max:   t.max,
			Count: t.count,
		}
	}
	return s
}

// LogReport writes the current statistics as structured log lines.
func (rp *RuntimeProfiler) LogReport() {
	s := rp.Snapshot()

	rp.mu.Lock()
	newGC := s.GCCycles - rp.lastGCCount
	rp.lastGCCount = s.GCCycles
	rp.mu.Unlock()

	rp.logger.Info("profiler status",
		"uptime", s.Uptime.Truncate(time.Millisecond),
		"goroutines", s.Goroutines,
		"heap_alloc", humanize.Bytes(s.HeapAlloc),
		"gc_cycles", s.GCCycles,
		"gc_new", newGC,
	)

	for _, name := range sortedKeys(s.Operations) {
		o := s.Operations[name]
		rp.logger.Info("operation timing",
			"operation", name,
			"avg", o.Avg.Truncate(time.Microsecond),
			"min", o.Min.Truncate(time.Microsecond),
			"max", o.Max.Truncate(time.Microsecond),
			"count", o.Count,
		)
	}
	for _, name := range sortedKeys(s.Metrics) {
		m := s.Metrics[name]
		rp.logger.Info("metric",
			"metric", name,
			"avg", m.Avg,
			"min", m.Min,
			"max", m.Max,
			"samples", m.Samples,
		)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
