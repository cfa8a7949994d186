// Package session runs a detector over sampled clips and aggregates the results.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/profiler"
	"github.com/nvr-ai/go-detect/report"
	"github.com/nvr-ai/go-detect/settings"
	"github.com/nvr-ai/go-detect/util"
	"github.com/nvr-ai/go-detect/video"
)

// ErrEmptySample is returned when no frame of a clip could be retrieved.
var ErrEmptySample = errors.New("no frames sampled")

// Persisted frame layout under the output directory.
const (
	SourceDir   = "source"
	DetectedDir = "detected"
)

// Session drives one detector across clips. It is not safe for concurrent use.
type Session struct {
	src      video.Source
	logger   *slog.Logger
	profiler *profiler.RuntimeProfiler
	sink     ReportSink
	now      func() time.Time
	stats    *detector.Stats
}

// New creates a session reading clips from src.
//
// Arguments:
//   - src: Frame source for every clip.
//   - opts: Optional logger, profiler, report sink and clock.
//
// Returns:
//   - *Session: The session.
//
// @example
// s := session.New(video.NewMux(video.NewGIFSource()), session.WithLogger(logger))
// clips, err := s.RunOnDirectory(ctx, det, cfg, "clips", "report.txt", "out")
func New(src video.Source, opts ...Option) *Session {
	s := &Session{
		src:    src,
		logger: slog.Default(),
		now:    time.Now,
		stats:  &detector.Stats{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.profiler != nil {
		s.profiler.AddMetricsCollector(s.stats)
	}
	return s
}

// Stats returns the frame counters accumulated over every run.
func (s *Session) Stats() *detector.Stats { return s.stats }

// RunOnClip samples one clip and runs det on every frame.
//
// Frames that fail to convert are skipped and not counted. Frame persistence
// failures are logged and ignored. A detector error aborts the clip after the
// after-clip hook ran.
//
// Arguments:
//   - ctx: Checked before the clip starts; a running clip is not interrupted.
//   - det: Detector to run.
//   - cfg: Settings for this clip.
//   - ref: Clip reference.
//   - outputDir: Root for persisted frames; empty disables persistence.
//
// Returns:
//   - report.Clip: The clip report.
//   - error: Sampling, ErrEmptySample or detector errors.
func (s *Session) RunOnClip(ctx context.Context, det detector.Detector, cfg settings.Settings, ref, outputDir string) (report.Clip, error) {
	return s.runOnClip(ctx, det, cfg, ref, outputDir, uuid.NewString())
}

func (s *Session) runOnClip(ctx context.Context, det detector.Detector, cfg settings.Settings, ref, outputDir, runID string) (report.Clip, error) {
	if err := ctx.Err(); err != nil {
		return report.Clip{}, err
	}
	if err := cfg.Validate(); err != nil {
		return report.Clip{}, err
	}

	start := s.now()
	logger := s.logger.With("clip", ref)

	if err := det.BeforeClip(cfg); err != nil {
		return report.Clip{}, errors.Wrap(err, "before clip")
	}

	frames, err := s.sample(ref, cfg.FramesToSample(), logger)
	if err != nil {
		s.afterClip(det, logger)
		return report.Clip{}, err
	}

	clipName := filepath.Base(ref)
	keepFrames := det.Family() == settings.Object
	builder := report.NewBuilder(runID, ref)

	for _, frame := range frames {
		normalized, err := images.Normalize(frame)
		if err != nil {
			logger.Warn("frame conversion failed", "position_ms", frame.Timestamp.Milliseconds(), "error", err)
			continue
		}
		if outputDir != "" {
			s.persist(normalized, outputDir, clipName, SourceDir, logger)
		}

		done := s.operation("detect")
		res, err := det.Detect(normalized, cfg.Region)
		done()
		if err != nil {
			s.afterClip(det, logger)
			return report.Clip{}, errors.Wrapf(err, "detect %s at %d ms", ref, frame.Timestamp.Milliseconds())
		}
		s.stats.Observe(res)

		if res.Detected {
			logger.Info("detected", "position_ms", frame.Timestamp.Milliseconds(), "shapes", len(res.Shapes))
			if outputDir != "" {
				s.persist(res.Frame, outputDir, clipName, DetectedDir, logger)
			}
		}

		builder.Add(report.Frame{
			Position: frame.Timestamp,
			Detected: res.Detected,
			Kind:     res.Kind,
			Shapes:   res.Shapes,
			Elapsed:  res.Elapsed,
			Width:    normalized.Width,
			Height:   normalized.Height,
		}, keepFrames)
	}

	s.afterClip(det, logger)

	clip := builder.Build(s.now().Sub(start))
	if s.profiler != nil {
		s.profiler.RecordMetric("clip_ratio", clip.Ratio)
		s.profiler.RecordDuration("clip", clip.Elapsed)
	}
	logger.Info("clip analysed",
		"detected", clip.Detected,
		"ratio", clip.Ratio,
		"analyzed", clip.Analyzed,
		"elapsed_ms", clip.Elapsed.Milliseconds(),
	)
	return clip, nil
}

func (s *Session) sample(ref string, count int, logger *slog.Logger) ([]images.Frame, error) {
	done := s.operation("sample")
	defer done()

	frames, err := video.Sampler{Logger: logger}.Sample(s.src, ref, count)
	if err != nil {
		return nil, errors.Wrap(err, "sample")
	}
	if len(frames) == 0 {
		return nil, errors.Wrapf(ErrEmptySample, "%s", ref)
	}
	return frames, nil
}

func (s *Session) afterClip(det detector.Detector, logger *slog.Logger) {
	if err := det.AfterClip(); err != nil {
		logger.Warn("after clip hook failed", "error", err)
	}
}

// persist writes frame to outputDir/<clip>/<kind>/<clip>_<ms>_ms.png.
func (s *Session) persist(frame images.Frame, outputDir, clipName, kind string, logger *slog.Logger) {
	done := s.operation("persist")
	defer done()

	path := filepath.Join(outputDir, clipName, kind, fmt.Sprintf("%s_%d_ms.png", clipName, frame.Timestamp.Milliseconds()))
	if err := images.WriteFile(path, frame); err != nil {
		logger.Warn("frame not saved", "path", path, "error", err)
		return
	}
	logger.Debug("frame saved", "path", path, "checksum", images.Checksum(frame))
}

func (s *Session) operation(name string) func() {
	if s.profiler == nil {
		return func() {}
	}
	return s.profiler.StartOperation(name)
}

// RunOnDirectory runs det over every supported clip of dir in name order.
//
// Directories, unsupported extensions and clips whose duration cannot be probed
// are skipped. Clips whose run fails are logged and left out of the result.
// Every report goes to the sink when one is configured, and the whole list is
// written to dir/reportName when reportName is not empty.
//
// Arguments:
//   - ctx: Checked between clips.
//   - det: Detector to run.
//   - cfg: Settings for every clip.
//   - dir: Directory holding the clips.
//   - reportName: Report file name inside dir; empty disables the file.
//   - outputDir: Root for persisted frames; empty disables persistence.
//
// Returns:
//   - []report.Clip: One report per processed clip, in enumeration order.
//   - error: Directory, context or report file errors.
func (s *Session) RunOnDirectory(ctx context.Context, det detector.Detector, cfg settings.Settings, dir, reportName, outputDir string) ([]report.Clip, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	files, err := util.LoadDirectoryClipFiles(dir)
	if err != nil {
		return nil, err
	}
	supported, rejected := util.FilterByExtension(files, s.src.Extensions())
	for _, f := range rejected {
		s.logger.Debug("unsupported file skipped", "path", f.Path)
	}
	if len(supported) == 0 {
		s.logger.Warn("no clips to analyse", "dir", dir)
	}

	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	clips := make([]report.Clip, 0, len(supported))

	for _, f := range supported {
		if err := ctx.Err(); err != nil {
			return clips, err
		}

		d, err := s.src.Duration(f.Path)
		if err != nil || d <= 0 {
			logger.Warn("invalid clip skipped", "clip", f.Path, "duration_ms", d.Milliseconds(), "error", err)
			continue
		}

		clip, err := s.runOnClip(ctx, det, cfg, f.Path, outputDir, runID)
		if err != nil {
			logger.Error("clip failed", "clip", f.Path, "error", err)
			continue
		}
		clips = append(clips, clip)

		if s.sink != nil {
			if err := s.sink.SaveClip(ctx, clip); err != nil {
				logger.Warn("clip report not stored", "clip", f.Path, "error", err)
			}
		}
	}

	if reportName != "" {
		path := filepath.Join(dir, reportName)
		if err := report.WriteFile(path, clips); err != nil {
			return clips, err
		}
		logger.Info("report written", "path", path, "clips", len(clips))
	}
	return clips, nil
}
