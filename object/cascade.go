package object

import (
	"image"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/region"
	"github.com/nvr-ai/go-detect/settings"
	"github.com/nvr-ai/go-detect/vision"
)

// CascadeDetector finds one object class with a single classifier.
type CascadeDetector struct {
	lib      vision.Library
	settings settings.Settings
	kind     detector.Kind
	spec     vision.ClassifierSpec
	style    detector.Style
	logger   *slog.Logger

	classifier vision.Classifier
	loadErr    error
}

var _ detector.Detector = (*CascadeDetector)(nil)

// NewCascadeDetector creates a single-stage object detector and loads its classifier.
//
// A classifier that fails to load does not fail construction; every Detect call
// then returns vision.ErrClassifierNotLoaded.
//
// Arguments:
//   - lib: Vision backend.
//   - kind: Object class, used for parameters and labels.
//   - spec: Classifier to load, see ClassifierFor.
//   - s: Object settings; they are validated here.
//   - opts: Optional logger and style.
//
// Returns:
//   - *CascadeDetector: The detector.
//   - error: A settings.ConfigurationError for invalid settings.
//
// @example
// spec := object.ClassifierFor(detector.KindFace, "models/haarcascade_frontalface_default.xml")
// det, err := object.NewCascadeDetector(lib, detector.KindFace, spec, settings.DefaultObject())
func NewCascadeDetector(lib vision.Library, kind detector.Kind, spec vision.ClassifierSpec, s settings.Settings, opts ...Option) (*CascadeDetector, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	c := newConfig(opts)
	d := &CascadeDetector{
		lib:      lib,
		settings: s,
		kind:     kind,
		spec:     spec,
		style:    c.style,
		logger:   c.logger.With("detector", "cascade", "kind", kind.String()),
	}

	classifier, err := lib.LoadClassifier(spec)
	if err != nil {
		d.loadErr = errors.Wrapf(vision.ErrClassifierNotLoaded, "%s classifier %q: %v", spec.Kind, spec.Path, err)
		d.logger.Error("classifier not loaded", "path", spec.Path, "error", err)
	} else {
		d.classifier = classifier
	}
	return d, nil
}

// Detect runs the classifier on frame and keeps the hits inside poly.
func (d *CascadeDetector) Detect(frame images.Frame, poly region.Polygon) (detector.Result, error) {
	start := time.Now()
	res := detector.Result{Kind: d.kind}

	if err := frame.Validate(); err != nil {
		return res, err
	}
	if d.settings.Sensitivity == settings.None {
		res.Frame = frame.Clone()
		res.Elapsed = time.Since(start)
		return res, nil
	}
	if d.classifier == nil {
		return res, d.loadErr
	}

	p, err := prepare(d.lib, frame, d.settings.ScaleBound, d.settings.Grayscale)
	if err != nil {
		return res, err
	}
	found, err := d.classifier.Detect(p.frame, ParamsFor(d.kind, d.settings.Sensitivity, p.frame.Height))
	if err != nil {
		return res, errors.Wrap(err, "classify")
	}

	candidates := make([]images.Rect, 0, len(found))
	for _, r := range found {
		candidates = append(candidates, p.toSource(r))
	}
	res.Shapes = region.Filter(candidates, poly)

	res.Frame = frame.Clone()
	for _, r := range res.Shapes {
		d.lib.DrawRect(&res.Frame, r, d.style.Color, d.style.Thickness)
		if d.settings.DebugMode {
			d.lib.DrawLabel(&res.Frame, image.Pt(r.X1, r.Y1-3), d.kind.String(), d.style.Color)
		}
	}
	res.Detected = len(res.Shapes) > 0
	res.Elapsed = time.Since(start)

	if d.settings.DebugMode {
		d.logger.Debug("frame analysed",
			"position_ms", frame.Timestamp.Milliseconds(),
			"candidates", len(candidates),
			"accepted", len(res.Shapes),
		)
	}
	return res, nil
}

// BeforeClip applies s. The classifier stays loaded across clips.
func (d *CascadeDetector) BeforeClip(s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	d.settings = s
	return nil
}

// AfterClip is a no-op.
func (d *CascadeDetector) AfterClip() error { return nil }

// Style returns the annotation style.
func (d *CascadeDetector) Style() detector.Style { return d.style }

// Grayscale reports whether frames are converted before classification.
func (d *CascadeDetector) Grayscale() bool { return d.settings.Grayscale }

// Family returns settings.Object.
func (d *CascadeDetector) Family() settings.Family { return settings.Object }

// Kind returns the object class.
func (d *CascadeDetector) Kind() detector.Kind { return d.kind }

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	if d.classifier == nil {
		return nil
	}
	err := d.classifier.Close()
	d.classifier = nil
	d.loadErr = errors.Wrap(vision.ErrClassifierNotLoaded, "detector closed")
	return err
}
