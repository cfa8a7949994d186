package object

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

// VerifyMargin is how far inside a candidate a check hit's centre must lie.
const VerifyMargin = 15

// HitCentre returns the centre of check hit h, found inside the crop of
// candidate r, in full-frame coordinates.
func HitCentre(r, h images.Rect) image.Point {
	return image.Pt(
		int(math.Round(float64(r.X1)+float64(h.X1)+float64(h.Width())*0.5)),
		int(math.Round(float64(r.Y1)+float64(h.Y1)+float64(h.Height())*0.5)),
	)
}

// Verify reports whether check hit h confirms candidate r: the hit centre must
// lie strictly inside r shrunk by VerifyMargin on every side.
//
// Arguments:
//   - r: Primary candidate in frame coordinates.
//   - h: Check classifier hit relative to the crop of r.
//
// Returns:
//   - bool: true when the hit is solidly interior.
//
// @example
// object.Verify(images.RectXYWH(10, 10, 100, 50), images.RectXYWH(45, 20, 10, 10)) // true
func Verify(r, h images.Rect) bool {
	x0, y0 := r.X1, r.Y1
	x1, y1 := r.X1+r.Width()-1, r.Y1+r.Height()-1
	c := HitCentre(r, h)
	return c.X > x0+VerifyMargin && c.X < x1-VerifyMargin &&
		c.Y > y0+VerifyMargin && c.Y < y1-VerifyMargin
}

// VehicleDetector finds vehicles with a set of primary cascades whose
// candidates are confirmed by a check cascade run inside each candidate.
type VehicleDetector struct {
	lib      vision.Library
	settings settings.Settings
	style    detector.Style
	logger   *slog.Logger

	primaryPaths []string
	primaries    []vision.Classifier
	loaded       bool

	check    vision.Classifier
	checkErr error
}

var _ detector.Detector = (*VehicleDetector)(nil)

// NewVehicleDetector creates a two-stage vehicle detector.
//
// The check cascade is loaded once here. Primary cascades are loaded per clip
// in BeforeClip, or on the first Detect, and released in AfterClip.
//
// Arguments:
//   - lib: Vision backend.
//   - primaryPaths: Primary cascade files, tried in order.
//   - checkPath: Check cascade file.
//   - s: Object settings; they are validated here.
//   - opts: Optional logger and style.
//
// Returns:
//   - *VehicleDetector: The detector.
//   - error: A settings.ConfigurationError for invalid settings or no primaries.
//
// @example
// primaries, check := object.VehicleFiles("models")
// det, err := object.NewVehicleDetector(lib, primaries, check, settings.DefaultObject())
func NewVehicleDetector(lib vision.Library, primaryPaths []string, checkPath string, s settings.Settings, opts ...Option) (*VehicleDetector, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(primaryPaths) == 0 {
		return nil, &settings.ConfigurationError{Field: "primaryCascades", Value: primaryPaths, Reason: "at least one file is required"}
	}
	c := newConfig(opts)
	d := &VehicleDetector{
		lib:          lib,
		settings:     s,
		style:        c.style,
		logger:       c.logger.With("detector", "vehicle"),
		primaryPaths: append([]string(nil), primaryPaths...),
	}

	check, err := lib.LoadClassifier(vision.ClassifierSpec{Kind: vision.ClassifierCascade, Path: checkPath})
	if err != nil {
		d.checkErr = errors.Wrapf(vision.ErrClassifierNotLoaded, "check cascade %q: %v", checkPath, err)
		d.logger.Error("check classifier not loaded", "path", checkPath, "error", err)
	} else {
		d.check = check
	}
	return d, nil
}

// Detect runs every primary cascade and keeps the candidates the check cascade confirms.
func (d *VehicleDetector) Detect(frame images.Frame, poly region.Polygon) (detector.Result, error) {
	start := time.Now()
	res := detector.Result{Kind: detector.KindCar}

	if err := frame.Validate(); err != nil {
		return res, err
	}
	if d.settings.Sensitivity == settings.None {
		res.Frame = frame.Clone()
		res.Elapsed = time.Since(start)
		return res, nil
	}
	if d.check == nil {
		return res, d.checkErr
	}
	if !d.loaded {
		d.loadPrimaries()
	}

	p, err := prepare(d.lib, frame, d.settings.ScaleBound, d.settings.Grayscale)
	if err != nil {
		return res, err
	}
	params := ParamsFor(detector.KindCar, d.settings.Sensitivity, p.frame.Height)

	res.Frame = frame.Clone()
	var verified []images.Rect
	for i, primary := range d.primaries {
		if primary == nil {
			continue
		}
		candidates, err := primary.Detect(p.frame, params)
		if err != nil {
			return res, errors.Wrapf(err, "primary cascade %q", d.primaryPaths[i])
		}

		colorIndex := 0
		for _, r := range candidates {
			if r.Empty() {
				d.logger.Warn("empty candidate skipped", "rect", r.String())
				continue
			}
			if !poly.Empty() && !region.ShapeInPolygon(p.toSource(r), poly) {
				continue
			}

			crop, err := d.lib.Crop(p.frame, r)
			if err != nil {
				d.logger.Warn("candidate crop failed", "rect", r.String(), "error", err)
				continue
			}
			hits, err := d.check.Detect(crop, params)
			if err != nil {
				return res, errors.Wrap(err, "check cascade")
			}
			if len(hits) == 0 {
				continue
			}

			for _, h := range hits {
				if h.Empty() || !Verify(r, h) {
					continue
				}
				src := p.toSource(r)
				d.lib.DrawRect(&res.Frame, src, PaletteColor(colorIndex), d.style.Thickness)
				if d.settings.DebugMode {
					d.lib.DrawLabel(&res.Frame, image.Pt(src.X1, src.Y1-3), detector.KindCar.String(), PaletteColor(colorIndex))
				}
				verified = append(verified, src)
				break
			}
			colorIndex++
		}
	}

	res.Shapes = region.Filter(verified, poly)
	res.Detected = len(res.Shapes) > 0
	res.Elapsed = time.Since(start)

	if d.settings.DebugMode {
		d.logger.Debug("frame analysed",
			"position_ms", frame.Timestamp.Milliseconds(),
			"verified", len(res.Shapes),
		)
	}
	return res, nil
}

// loadPrimaries loads every primary cascade; files that fail are skipped.
func (d *VehicleDetector) loadPrimaries() {
	d.releasePrimaries()
	d.primaries = make([]vision.Classifier, len(d.primaryPaths))
	for i, path := range d.primaryPaths {
		c, err := d.lib.LoadClassifier(vision.ClassifierSpec{Kind: vision.ClassifierCascade, Path: path})
		if err != nil {
			d.logger.Error("primary classifier not loaded", "path", path, "error", err)
			continue
		}
		d.primaries[i] = c
	}
	d.loaded = true
}

func (d *VehicleDetector) releasePrimaries() error {
	var first error
	for _, c := range d.primaries {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	d.primaries = nil
	d.loaded = false
	return first
}

// BeforeClip applies s and loads the primary cascades fresh.
func (d *VehicleDetector) BeforeClip(s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	d.settings = s
	d.loadPrimaries()
	return nil
}

// AfterClip releases the primary cascades.
func (d *VehicleDetector) AfterClip() error {
	return d.releasePrimaries()
}

// Style returns the annotation style; verified vehicles use the palette colours.
func (d *VehicleDetector) Style() detector.Style { return d.style }

// Grayscale reports whether frames are converted before classification.
func (d *VehicleDetector) Grayscale() bool { return d.settings.Grayscale }

// Family returns settings.Object.
func (d *VehicleDetector) Family() settings.Family { return settings.Object }

// Close releases every classifier.
func (d *VehicleDetector) Close() error {
	err := d.releasePrimaries()
	if d.check != nil {
		if cerr := d.check.Close(); cerr != nil && err == nil {
			err = cerr
		}
		d.check = nil
		d.checkErr = errors.Wrap(vision.ErrClassifierNotLoaded, "detector closed")
	}
	return err
}
