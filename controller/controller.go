// Package controller selects and guards the detector variant a run uses.
package controller

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/motion"
	"github.com/nvr-ai/go-detect/object"
	"github.com/nvr-ai/go-detect/region"
	"github.com/nvr-ai/go-detect/settings"
	"github.com/nvr-ai/go-detect/vision"
)

// Variant is a detector implementation.
type Variant string

const (
	// Background is the adaptive background subtraction motion detector.
	Background Variant = "background"
	// History is the motion history motion detector.
	History Variant = "history"
	// Cascade is the single-stage classifier detector.
	Cascade Variant = "cascade"
	// Vehicle is the two-stage verified vehicle detector.
	Vehicle Variant = "vehicle"
)

// Variants lists every variant.
var Variants = []Variant{Background, History, Cascade, Vehicle}

// ParseVariant parses a variant name, case-insensitively.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Variants {
		if v == known {
			return v, nil
		}
	}
	return "", errors.Errorf("unknown detector variant %q", s)
}

// Family returns the settings family a variant consumes.
func (v Variant) Family() settings.Family {
	if v == Cascade || v == Vehicle {
		return settings.Object
	}
	return settings.Motion
}

// Options carries what the variants need beyond settings.
type Options struct {
	// Logger for the detector; nil uses slog.Default().
	Logger *slog.Logger
	// Style overrides detector.DefaultStyle when its thickness is positive.
	Style detector.Style
	// Kind is the object class of the Cascade variant.
	Kind detector.Kind
	// CascadePath is the classifier file of the Cascade variant.
	CascadePath string
	// VehicleDir holds the cascade files of the Vehicle variant.
	VehicleDir string
}

func (o Options) style() detector.Style {
	if o.Style.Thickness > 0 {
		return o.Style
	}
	return detector.DefaultStyle
}

// New constructs the detector of variant v.
//
// Arguments:
//   - v: Variant to build.
//   - lib: Vision backend shared by the detector.
//   - s: Settings of the variant's family.
//   - opts: Variant extras.
//
// Returns:
//   - detector.Detector: The detector.
//   - error: A settings.ConfigurationError for settings of the wrong family or
//     invalid values, or an error for an unknown variant.
//
// @example
// det, err := controller.New(controller.Background, native.New(nil), settings.DefaultMotion(), controller.Options{})
func New(v Variant, lib vision.Library, s settings.Settings, opts Options) (detector.Detector, error) {
	if s.Family != v.Family() {
		return nil, &settings.ConfigurationError{Field: "family", Value: s.Family, Reason: "variant " + string(v) + " needs " + v.Family().String() + " settings"}
	}

	var (
		det detector.Detector
		err error
	)
	switch v {
	case Background:
		det, err = unwrap(motion.NewBackgroundDetector(lib, s, motion.WithLogger(opts.Logger), motion.WithStyle(opts.style())))
	case History:
		det, err = unwrap(motion.NewHistoryDetector(lib, s, motion.WithLogger(opts.Logger), motion.WithStyle(opts.style())))
	case Cascade:
		if opts.Kind == detector.KindUnknown {
			return nil, &settings.ConfigurationError{Field: "kind", Value: opts.Kind, Reason: "an object kind is required"}
		}
		det, err = unwrap(object.NewCascadeDetector(lib, opts.Kind, object.ClassifierFor(opts.Kind, opts.CascadePath), s,
			object.WithLogger(opts.Logger), object.WithStyle(opts.style())))
	case Vehicle:
		primaries, check := object.VehicleFiles(opts.VehicleDir)
		det, err = unwrap(object.NewVehicleDetector(lib, primaries, check, s,
			object.WithLogger(opts.Logger), object.WithStyle(opts.style())))
	default:
		return nil, errors.Errorf("unknown detector variant %q", v)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "build %s detector", v)
	}
	return det, nil
}

// unwrap keeps a failed constructor's typed nil out of the interface.
func unwrap[D detector.Detector](d D, err error) (detector.Detector, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Guarded serialises every call into a detector shared between goroutines.
type Guarded struct {
	mu  sync.Mutex
	det detector.Detector
}

var _ detector.Detector = (*Guarded)(nil)

// Guard wraps det.
func Guard(det detector.Detector) *Guarded {
	return &Guarded{det: det}
}

// Detect runs the wrapped Detect under the lock.
func (g *Guarded) Detect(frame images.Frame, poly region.Polygon) (detector.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.det.Detect(frame, poly)
}

// BeforeClip runs the wrapped BeforeClip under the lock.
func (g *Guarded) BeforeClip(s settings.Settings) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.det.BeforeClip(s)
}

// AfterClip runs the wrapped AfterClip under the lock.
func (g *Guarded) AfterClip() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.det.AfterClip()
}

// Style returns the wrapped style.
func (g *Guarded) Style() detector.Style { return g.det.Style() }

// Grayscale returns the wrapped grayscale flag.
func (g *Guarded) Grayscale() bool { return g.det.Grayscale() }

// Family returns the wrapped family.
func (g *Guarded) Family() settings.Family { return g.det.Family() }

// Close closes the wrapped detector under the lock.
func (g *Guarded) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.det.Close()
}
