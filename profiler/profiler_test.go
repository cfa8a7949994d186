package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCollector map[string]float64

func (c staticCollector) CollectMetrics() map[string]float64 { return c }

func TestRecordMetric(t *testing.T) {
	p := NewRuntimeProfiler(ProfilingOptions{MaxSamples: 3})

	for _, v := range []float64{0.5, 0.1, 0.9, 0.3} {
		p.RecordMetric("clip_ratio", v)
	}

	s := p.Snapshot()
	m, ok := s.Metrics["clip_ratio"]
	require.True(t, ok)
	assert.Equal(t, 3, m.Samples)
	assert.Equal(t, int64(4), m.Count)
	assert.InDelta(t, (0.1+0.9+0.3)/3, m.Avg, 1e-9)
	assert.InDelta(t, 0.1, m.Min, 1e-9)
	assert.InDelta(t, 0.9, m.Max, 1e-9)
}

func TestOperations(t *testing.T) {
	p := NewRuntimeProfiler(ProfilingOptions{})

	p.RecordDuration("detect", 10*time.Millisecond)
	p.RecordDuration("detect", 30*time.Millisecond)
	done := p.StartOperation("persist")
	done()

	s := p.Snapshot()
	assert.Equal(t, 20*time.Millisecond, s.Operations["detect"].Avg)
	assert.Equal(t, 10*time.Millisecond, s.Operations["detect"].Min)
	assert.Equal(t, 30*time.Millisecond, s.Operations["detect"].Max)
	assert.Equal(t, int64(1), s.Operations["persist"].Count)
}

func TestStartStop_PollsCollectorsAndReports(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := NewRuntimeProfiler(ProfilingOptions{
		SampleInterval: 5 * time.Millisecond,
		ReportInterval: 10 * time.Millisecond,
		Logger:         logger,
	})
	p.AddMetricsCollector(staticCollector{"frames_detected": 2})

	p.Start()
	p.Start()
	assert.Eventually(t, func() bool {
		_, ok := p.Snapshot().Metrics["frames_detected"]
		return ok
	}, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()

	p.LogReport()
	assert.Contains(t, buf.String(), "profiler status")
	assert.Contains(t, buf.String(), "frames_detected")
}
