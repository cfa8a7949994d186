package video

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

const (
	// FirstPosition is the timestamp of the first sampled frame.
	FirstPosition = time.Millisecond
	// MinInterval is the smallest step between sampled timestamps.
	MinInterval = time.Millisecond
)

// Sampler fetches evenly spaced frames from a Source.
type Sampler struct {
	Logger *slog.Logger
}

// Sample fetches targetCount evenly spaced frames of ref with the default logger.
//
// @example
// frames, err := video.Sample(src, "clips/a.gif", 20)
func Sample(src Source, ref string, targetCount int) ([]images.Frame, error) {
	return Sampler{}.Sample(src, ref, targetCount)
}

// Sample fetches evenly spaced frames of ref.
//
// Positions start at FirstPosition and advance by duration/targetCount (at least
// MinInterval) while they do not pass the clip end. Positions the source cannot
// decode are logged and skipped, so fewer than targetCount frames may come back.
//
// Arguments:
//   - src: Frame source.
//   - ref: Clip reference.
//   - targetCount: Number of frames wanted, at least 1.
//
// Returns:
//   - []images.Frame: Frames in strictly ascending timestamp order.
//   - error: ErrInvalidCount or ErrInvalidSource (wrapped).
func (s Sampler) Sample(src Source, ref string, targetCount int) ([]images.Frame, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if targetCount < 1 {
		return nil, errors.Wrapf(ErrInvalidCount, "%d", targetCount)
	}

	duration, err := src.Duration(ref)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSource, "%s: %v", ref, err)
	}
	if duration <= 0 {
		return nil, errors.Wrapf(ErrInvalidSource, "%s: zero duration", ref)
	}

	interval := (duration / time.Duration(targetCount)).Truncate(time.Millisecond)
	if interval < MinInterval {
		interval = MinInterval
	}

	frames := make([]images.Frame, 0, targetCount)
	for ts := FirstPosition; ts <= duration; ts += interval {
		frame, ok, err := src.FrameAt(ref, ts)
		if err != nil {
			logger.Warn("frame fetch failed", "clip", ref, "position_ms", ts.Milliseconds(), "error", err)
			continue
		}
		if !ok || frame.Empty() {
			logger.Warn("no frame at position", "clip", ref, "position_ms", ts.Milliseconds())
			continue
		}
		frame.Timestamp = ts
		frames = append(frames, frame)
	}

	logger.Debug("clip sampled",
		"clip", ref,
		"duration_ms", duration.Milliseconds(),
		"interval_ms", interval.Milliseconds(),
		"frames", len(frames),
	)
	return frames, nil
}
