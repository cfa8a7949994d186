package motion

import (
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/region"
	"github.com/nvr-ai/go-detect/settings"
	"github.com/nvr-ai/go-detect/vision"
)

const (
	// HistoryDepth is the number of frames kept in the ring.
	HistoryDepth = 4
	// MHIDuration is how long motion stays in the history, in seconds.
	MHIDuration = 1.0
	// MaxTimeDelta is the largest gradient time step and the segmentation threshold, in seconds.
	MaxTimeDelta = 0.5
	// MinTimeDelta is the smallest gradient time step, in seconds.
	MinTimeDelta = 0.05

	// Components with a smaller width+height are ignored.
	minComponentSpan = 100
	// Components need silhouette mass of at least this share of their area.
	minMotionShare = 0.05
	// Length of the direction indicator.
	indicatorMagnitude = 30.0

	// History timestamps start here so a zero entry always means "no motion".
	timeBase = 1.0
)

// HistoryDetector reports motion from a motion history image built over the
// last HistoryDepth frames.
//
// Components are not restricted to a region; callers that need one filter
// Result.Shapes themselves.
type HistoryDetector struct {
	lib      vision.Library
	settings settings.Settings
	style    detector.Style
	logger   *slog.Logger
	now      func() time.Time

	ring       *RingBuffer
	last       int
	history    *historyPlane
	silhouette images.Frame
	epoch      time.Time
}

var _ detector.Detector = (*HistoryDetector)(nil)

// NewHistoryDetector creates a motion-history detector.
//
// Arguments:
//   - lib: Vision backend.
//   - s: Motion settings; they are validated here.
//   - opts: Optional logger, style and clock.
//
// Returns:
//   - *HistoryDetector: The detector.
//   - error: A settings.ConfigurationError for invalid settings.
func NewHistoryDetector(lib vision.Library, s settings.Settings, opts ...Option) (*HistoryDetector, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	c := newConfig(opts)
	return &HistoryDetector{
		lib:      lib,
		settings: s,
		style:    c.style,
		logger:   c.logger.With("detector", "history"),
		now:      c.now,
		ring:     NewRingBuffer(HistoryDepth),
		epoch:    c.now(),
	}, nil
}

// Ring exposes the frame ring for inspection.
func (d *HistoryDetector) Ring() *RingBuffer { return d.ring }

// Detect adds frame to the motion history and reports sufficiently large,
// sufficiently moving components.
func (d *HistoryDetector) Detect(frame images.Frame, _ region.Polygon) (detector.Result, error) {
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

	fresh := d.ring.EnsureCapacity(frame.Width, frame.Height)
	if fresh || d.history == nil {
		d.history = newHistoryPlane(frame.Width, frame.Height)
		d.last = 0
		d.logger.Debug("buffers allocated",
			"width", frame.Width, "height", frame.Height, "allocations", d.ring.Allocations())
	}

	cur := d.ring.At(d.last)
	if err := d.lib.GrayInto(frame, cur); err != nil {
		return res, errors.Wrap(err, "grayscale")
	}
	if fresh {
		// Without earlier frames every slot starts as a copy of the first one.
		for i := 1; i < d.ring.Len(); i++ {
			copy(d.ring.At(d.last+i).Data, cur.Data)
		}
	}
	oldest := d.ring.At(d.last + 1)
	d.last = (d.last + 1) % d.ring.Len()

	if err := d.lib.AbsDiffThreshold(*cur, *oldest, d.settings.Sensitivity.DiffThreshold(), &d.silhouette); err != nil {
		return res, errors.Wrap(err, "silhouette")
	}

	ts := d.timestamp(frame)
	d.history.update(d.silhouette.Data, ts, MHIDuration)
	d.history.gradient(MinTimeDelta, MaxTimeDelta)
	components := d.history.segment(ts, MaxTimeDelta)

	res.Frame = frame.Clone()
	for _, r := range components {
		if r.Width()+r.Height() < minComponentSpan {
			continue
		}
		if silhouetteMass(d.silhouette, r) < float64(r.Width()*r.Height())*minMotionShare {
			continue
		}

		angle := 360 - float64(d.history.orientation(r, ts, MHIDuration))
		d.drawIndicator(&res.Frame, r, angle)
		res.Shapes = append(res.Shapes, r)
	}
	res.Detected = len(res.Shapes) > 0
	res.Elapsed = time.Since(start)

	if d.settings.DebugMode {
		d.logger.Debug("frame analysed",
			"position_ms", frame.Timestamp.Milliseconds(),
			"components", len(components),
			"accepted", len(res.Shapes),
			"detected", res.Detected,
		)
	}
	return res, nil
}

// timestamp returns the history time of frame in seconds.
func (d *HistoryDetector) timestamp(frame images.Frame) float32 {
	if frame.Timestamp > 0 {
		return float32(timeBase + frame.Timestamp.Seconds())
	}
	return float32(timeBase + d.now().Sub(d.epoch).Seconds())
}

func (d *HistoryDetector) drawIndicator(dst *images.Frame, r images.Rect, angle float64) {
	center := image.Pt(r.X1+r.Width()/2, r.Y1+r.Height()/2)
	radius := int(math.Round(indicatorMagnitude * 1.2))
	rad := angle * math.Pi / 180
	tip := image.Pt(
		int(math.Round(float64(center.X)+indicatorMagnitude*math.Cos(rad))),
		int(math.Round(float64(center.Y)-indicatorMagnitude*math.Sin(rad))),
	)
	d.lib.DrawCircle(dst, center, radius, d.style.Color, d.style.Thickness)
	d.lib.DrawLine(dst, center, tip, d.style.Color, d.style.Thickness)
}

// BeforeClip applies s and restarts the history.
func (d *HistoryDetector) BeforeClip(s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	d.settings = s
	d.epoch = d.now()
	return d.AfterClip()
}

// AfterClip releases the ring and the history.
func (d *HistoryDetector) AfterClip() error {
	d.ring.Release()
	d.history = nil
	d.silhouette = images.Frame{}
	d.last = 0
	return nil
}

// Style returns the annotation style.
func (d *HistoryDetector) Style() detector.Style { return d.style }

// Grayscale is always true: the history is built from gray frames.
func (d *HistoryDetector) Grayscale() bool { return true }

// Family returns settings.Motion.
func (d *HistoryDetector) Family() settings.Family { return settings.Motion }

// Close releases everything.
func (d *HistoryDetector) Close() error { return d.AfterClip() }
