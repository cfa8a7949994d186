package motion

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/region"
	"github.com/nvr-ai/go-detect/settings"
	"github.com/nvr-ai/go-detect/vision"
)

// Ring slots used by the background detector.
const (
	slotGray = iota
	slotMask
	backgroundSlots
)

// BackgroundDetector reports motion where an adaptive background model finds
// enough foreground area.
//
// Filtered contours are always drawn; the detected flag additionally needs the
// contour area share of the frame to reach the configured ratio.
type BackgroundDetector struct {
	lib      vision.Library
	settings settings.Settings
	style    detector.Style
	logger   *slog.Logger

	ring  *RingBuffer
	model vision.BackgroundModel
}

var _ detector.Detector = (*BackgroundDetector)(nil)

// NewBackgroundDetector creates a background-subtraction motion detector.
//
// Arguments:
//   - lib: Vision backend.
//   - s: Motion settings; they are validated here.
//   - opts: Optional logger and style.
//
// Returns:
//   - *BackgroundDetector: The detector; buffers are allocated on the first frame.
//   - error: A settings.ConfigurationError for invalid settings.
//
// @example
// det, err := motion.NewBackgroundDetector(native.New(nil), settings.DefaultMotion())
// defer det.Close()
// res, err := det.Detect(frame, nil)
func NewBackgroundDetector(lib vision.Library, s settings.Settings, opts ...Option) (*BackgroundDetector, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	c := newConfig(opts)
	return &BackgroundDetector{
		lib:      lib,
		settings: s,
		style:    c.style,
		logger:   c.logger.With("detector", "background"),
		ring:     NewRingBuffer(backgroundSlots),
	}, nil
}

// Ring exposes the detector's buffers for inspection.
func (d *BackgroundDetector) Ring() *RingBuffer { return d.ring }

// Detect updates the background model with frame and reports foreground motion.
func (d *BackgroundDetector) Detect(frame images.Frame, poly region.Polygon) (detector.Result, error) {
	start := time.Now()
	res := detector.Result{Kind: detector.KindUnknown}

	if err := frame.Validate(); err != nil {
		return res, err
	}
	if d.settings.Sensitivity == settings.None {
		res.Frame = frame.Clone()
		res.Elapsed = time.Since(start)
		return res, nil
	}

	if d.ring.EnsureCapacity(frame.Width, frame.Height) || d.model == nil {
		if err := d.resetModel(); err != nil {
			return res, err
		}
		d.logger.Debug("buffers allocated",
			"width", frame.Width, "height", frame.Height, "allocations", d.ring.Allocations())
	}

	src := frame
	if d.settings.Grayscale {
		gray := d.ring.At(slotGray)
		if err := d.lib.GrayInto(frame, gray); err != nil {
			return res, errors.Wrap(err, "grayscale")
		}
		src = *gray
	}
	if k := d.settings.Background.MorphKernelSize; k > 0 {
		cleaned, err := d.lib.Morphology(src, k)
		if err != nil {
			return res, errors.Wrap(err, "morphology")
		}
		src = cleaned
	}

	mask := d.ring.At(slotMask)
	if err := d.model.Apply(src, d.settings.Background.LearningRate, mask); err != nil {
		return res, errors.Wrap(err, "background model")
	}

	contours, err := d.lib.FindContours(*mask)
	if err != nil {
		return res, errors.Wrap(err, "contours")
	}
	filtered := region.Filter(contours, poly)

	res.Frame = frame.Clone()
	d.lib.DrawContours(&res.Frame, filtered, d.style.Color, d.style.Thickness)

	area := 0.0
	for _, c := range filtered {
		area += d.lib.ContourArea(c)
		res.Shapes = append(res.Shapes, c.BoundingRect())
	}
	ratio := area / float64(frame.Area())
	threshold := d.settings.Background.MinContourAreaRatio * d.settings.Sensitivity.AreaRatioScale()
	res.Detected = len(filtered) > 0 && ratio >= threshold
	res.Elapsed = time.Since(start)

	if d.settings.DebugMode {
		d.logger.Debug("frame analysed",
			"position_ms", frame.Timestamp.Milliseconds(),
			"contours", len(contours),
			"filtered", len(filtered),
			"ratio", ratio,
			"threshold", threshold,
			"detected", res.Detected,
		)
	}
	return res, nil
}

func (d *BackgroundDetector) resetModel() error {
	if d.model != nil {
		_ = d.model.Close()
		d.model = nil
	}
	b := d.settings.Background
	model, err := d.lib.NewBackgroundModel(vision.BackgroundParams{
		History:         b.History,
		Mixtures:        b.Mixtures,
		BackgroundRatio: b.BackgroundRatio,
		NoiseSigma:      b.NoiseSigma,
	})
	if err != nil {
		return errors.Wrap(err, "create background model")
	}
	d.model = model
	return nil
}

// BeforeClip applies s and drops the model so the next frame starts a fresh background.
func (d *BackgroundDetector) BeforeClip(s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	d.settings = s
	return d.AfterClip()
}

// AfterClip releases the background model and the buffers.
func (d *BackgroundDetector) AfterClip() error {
	var err error
	if d.model != nil {
		err = d.model.Close()
		d.model = nil
	}
	d.ring.Release()
	return err
}

// Style returns the annotation style.
func (d *BackgroundDetector) Style() detector.Style { return d.style }

// Grayscale reports whether frames are converted before the model sees them.
func (d *BackgroundDetector) Grayscale() bool { return d.settings.Grayscale }

// Family returns settings.Motion.
func (d *BackgroundDetector) Family() settings.Family { return settings.Motion }

// Close releases everything.
func (d *BackgroundDetector) Close() error { return d.AfterClip() }
