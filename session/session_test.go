package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/motion"
	"github.com/nvr-ai/go-detect/profiler"
	"github.com/nvr-ai/go-detect/region"
	"github.com/nvr-ai/go-detect/report"
	"github.com/nvr-ai/go-detect/settings"
	"github.com/nvr-ai/go-detect/test"
	"github.com/nvr-ai/go-detect/video"
	"github.com/nvr-ai/go-detect/vision/native"
)

// scriptedDetector reports detections for the chosen call indexes.
type scriptedDetector struct {
	detected map[int]bool
	failAt   int
	family   settings.Family
	calls    int
	before   int
	after    int
	regions  []region.Polygon
}

func (d *scriptedDetector) Detect(frame images.Frame, poly region.Polygon) (detector.Result, error) {
	d.calls++
	d.regions = append(d.regions, poly)
	if d.failAt > 0 && d.calls == d.failAt {
		return detector.Result{}, errors.Wrap(images.ErrInvalidFrame, "scripted failure")
	}
	res := detector.Result{Frame: frame.Clone(), Kind: detector.KindUnknown}
	if d.detected[d.calls] {
		res.Detected = true
		res.Shapes = []images.Rect{images.RectXYWH(0, 0, 2, 2)}
	}
	return res, nil
}

func (d *scriptedDetector) BeforeClip(settings.Settings) error { d.before++; return nil }
func (d *scriptedDetector) AfterClip() error                   { d.after++; return nil }
func (d *scriptedDetector) Style() detector.Style              { return detector.DefaultStyle }
func (d *scriptedDetector) Grayscale() bool                    { return true }
func (d *scriptedDetector) Family() settings.Family            { return d.family }
func (d *scriptedDetector) Close() error                       { return nil }

// stubSource serves 8x8 frames of a fixed duration; bad positions return a 2-channel frame.
type stubSource struct {
	duration time.Duration
	bad      map[time.Duration]bool
	missing  bool
}

func (s *stubSource) Duration(string) (time.Duration, error) { return s.duration, nil }

func (s *stubSource) FrameAt(_ string, ts time.Duration) (images.Frame, bool, error) {
	if s.missing {
		return images.Frame{}, false, nil
	}
	if s.bad[ts] {
		return images.Frame{Width: 8, Height: 8, Channels: 2, Data: make([]byte, 128)}, true, nil
	}
	return images.NewFrame(8, 8, 3), true, nil
}

func (s *stubSource) Extensions() []string { return []string{".stub"} }
func (s *stubSource) Close() error         { return nil }

type memorySink struct {
	clips []report.Clip
}

func (m *memorySink) SaveClip(_ context.Context, c report.Clip) error {
	m.clips = append(m.clips, c)
	return nil
}

func motionSettings(t *testing.T, frames int) settings.Settings {
	s, err := settings.New(settings.Motion, settings.WithFramesToAnalyze(frames))
	require.NoError(t, err)
	return s
}

func TestRunOnClip_RatioBound(t *testing.T) {
	patterns := []map[int]bool{
		{},
		{1: true},
		{2: true, 3: true, 5: true},
		{1: true, 2: true, 3: true, 4: true, 5: true},
	}
	for _, detected := range patterns {
		det := &scriptedDetector{detected: detected, family: settings.Motion}
		s := New(&stubSource{duration: 500 * time.Millisecond})

		clip, err := s.RunOnClip(context.Background(), det, motionSettings(t, 5), "clip.stub", "")
		require.NoError(t, err)

		assert.Equal(t, 5, clip.Analyzed)
		assert.Len(t, clip.Positions, len(detected))
		assert.GreaterOrEqual(t, clip.Ratio, 0.0)
		assert.LessOrEqual(t, clip.Ratio, 1.0)
		assert.InDelta(t, float64(len(detected))/5, clip.Ratio, 1e-9)
		assert.True(t, clip.Consistent())
		assert.Equal(t, 1, det.before)
		assert.Equal(t, 1, det.after)
	}
}

func TestRunOnClip_PositionsInOrder(t *testing.T) {
	det := &scriptedDetector{detected: map[int]bool{2: true, 4: true}, family: settings.Motion}
	s := New(&stubSource{duration: 400 * time.Millisecond})

	clip, err := s.RunOnClip(context.Background(), det, motionSettings(t, 4), "clip.stub", "")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{101 * time.Millisecond, 301 * time.Millisecond}, clip.Positions)
	assert.Empty(t, clip.Frames, "motion runs keep no per-frame details")
}

func TestRunOnClip_SkipsUnconvertibleFrames(t *testing.T) {
	det := &scriptedDetector{detected: map[int]bool{1: true}, family: settings.Motion}
	src := &stubSource{duration: 400 * time.Millisecond, bad: map[time.Duration]bool{101 * time.Millisecond: true}}

	clip, err := New(src).RunOnClip(context.Background(), det, motionSettings(t, 4), "clip.stub", "")
	require.NoError(t, err)
	assert.Equal(t, 3, clip.Analyzed)
	assert.Equal(t, 3, det.calls)
	assert.InDelta(t, 1.0/3, clip.Ratio, 1e-9)
}

func TestRunOnClip_DefaultFrameCount(t *testing.T) {
	det := &scriptedDetector{family: settings.Object}
	cfg := settings.DefaultObject()
	cfg.FramesToAnalyze = 1

	clip, err := New(&stubSource{duration: 2 * time.Second}).RunOnClip(context.Background(), det, cfg, "clip.stub", "")
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultFramesToAnalyze, clip.Analyzed)
	assert.Len(t, clip.Frames, settings.DefaultFramesToAnalyze)
}

func TestRunOnClip_EmptySample(t *testing.T) {
	det := &scriptedDetector{family: settings.Motion}
	_, err := New(&stubSource{duration: time.Second, missing: true}).RunOnClip(context.Background(), det, motionSettings(t, 5), "clip.stub", "")
	assert.ErrorIs(t, err, ErrEmptySample)
	assert.Equal(t, 1, det.after)
}

func TestRunOnClip_DetectorErrorAbortsClip(t *testing.T) {
	det := &scriptedDetector{failAt: 2, family: settings.Motion}
	_, err := New(&stubSource{duration: time.Second}).RunOnClip(context.Background(), det, motionSettings(t, 5), "clip.stub", "")
	assert.ErrorIs(t, err, images.ErrInvalidFrame)
	assert.Equal(t, 2, det.calls)
	assert.Equal(t, 1, det.after)
}

func TestRunOnClip_PassesRegion(t *testing.T) {
	poly := region.Polygon{{0, 0}, {4, 0}, {4, 4}}
	cfg := motionSettings(t, 2)
	cfg.Region = poly
	det := &scriptedDetector{family: settings.Motion}

	_, err := New(&stubSource{duration: time.Second}).RunOnClip(context.Background(), det, cfg, "clip.stub", "")
	require.NoError(t, err)
	require.NotEmpty(t, det.regions)
	assert.Equal(t, poly, det.regions[0])
}

func TestRunOnClip_PersistsFrames(t *testing.T) {
	out := t.TempDir()
	det := &scriptedDetector{detected: map[int]bool{2: true}, family: settings.Motion}

	_, err := New(&stubSource{duration: 200 * time.Millisecond}).RunOnClip(context.Background(), det, motionSettings(t, 2), "clips/a.stub", out)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "a.stub", SourceDir, "a.stub_1_ms.png"))
	assert.FileExists(t, filepath.Join(out, "a.stub", SourceDir, "a.stub_101_ms.png"))
	assert.FileExists(t, filepath.Join(out, "a.stub", DetectedDir, "a.stub_101_ms.png"))
	assert.NoFileExists(t, filepath.Join(out, "a.stub", DetectedDir, "a.stub_1_ms.png"))
}

func TestRunOnClip_RecordsProfile(t *testing.T) {
	p := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{})
	det := &scriptedDetector{detected: map[int]bool{1: true}, family: settings.Motion}
	s := New(&stubSource{duration: time.Second}, WithProfiler(p))

	_, err := s.RunOnClip(context.Background(), det, motionSettings(t, 4), "clip.stub", "")
	require.NoError(t, err)

	snap := p.Snapshot()
	assert.Equal(t, int64(4), snap.Operations["detect"].Count)
	assert.Equal(t, int64(1), snap.Operations["sample"].Count)
	assert.Contains(t, snap.Metrics, "clip_ratio")
	assert.Equal(t, 1.0, s.Stats().CollectMetrics()["frames_detected"])
}

func TestRunOnDirectory_Cancelled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, test.WriteStaticClip(filepath.Join(dir, "a.gif"), 16, 16, 4, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clips, err := New(video.NewGIFSource()).RunOnDirectory(ctx, &scriptedDetector{family: settings.Motion}, motionSettings(t, 4), dir, "", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, clips)
}

func TestRunOnDirectory_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, test.WriteStaticClip(filepath.Join(dir, "a_flat.gif"), 160, 120, 20, 10))
	require.NoError(t, test.WriteCrossingClip(filepath.Join(dir, "b_moving.gif"), 160, 120, 20, 30, 10))
	require.NoError(t, test.WriteCorruptClip(filepath.Join(dir, "c_corrupt.gif")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a clip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	det, err := motion.NewBackgroundDetector(native.New(nil), settings.DefaultMotion())
	require.NoError(t, err)
	defer det.Close()

	sink := &memorySink{}
	s := New(video.NewMux(video.NewGIFSource()), WithSink(sink))

	clips, err := s.RunOnDirectory(context.Background(), det, settings.DefaultMotion(), dir, "report.txt", "")
	require.NoError(t, err)
	require.Len(t, clips, 2)

	flat, moving := clips[0], clips[1]
	assert.Equal(t, filepath.Join(dir, "a_flat.gif"), flat.Video)
	assert.False(t, flat.Detected)
	assert.Zero(t, flat.Ratio)
	assert.Equal(t, 20, flat.Analyzed)

	assert.Equal(t, filepath.Join(dir, "b_moving.gif"), moving.Video)
	assert.True(t, moving.Detected)
	assert.Greater(t, moving.Ratio, 0.0)
	assert.NotEmpty(t, moving.Positions)

	assert.NotEmpty(t, flat.RunID)
	assert.Equal(t, flat.RunID, moving.RunID)
	assert.Len(t, sink.clips, 2)

	data, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "a_flat.gif")
	assert.Contains(t, lines[1], "b_moving.gif")
}
