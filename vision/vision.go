// Package vision defines the image-processing boundary the detectors call into.
//
// Two implementations exist: vision/native (pure Go, always available) and
// vision/cv (OpenCV through gocv, built with the withcv tag). Detectors own all
// state; a Library only holds what it hands out through BackgroundModel and
// Classifier values.
package vision

import (
	"image"
	"image/color"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

var (
	// ErrClassifierNotLoaded is returned when a classifier model could not be loaded.
	ErrClassifierNotLoaded = errors.New("classifier not loaded")
	// ErrUnsupported is returned for operations a backend does not provide.
	ErrUnsupported = errors.New("operation not supported by vision backend")
)

// Preprocessor converts and cleans pixel buffers.
type Preprocessor interface {
	// GrayInto converts src to a single channel into dst, reusing dst's buffer when
	// the size matches.
	GrayInto(src images.Frame, dst *images.Frame) error
	// Morphology applies an elliptical open followed by a close.
	Morphology(src images.Frame, kernelSize int) (images.Frame, error)
	// EqualizeHist equalizes a single-channel frame.
	EqualizeHist(src images.Frame) (images.Frame, error)
	// Resize scales src to width x height.
	Resize(src images.Frame, width, height int) (images.Frame, error)
	// Crop copies the pixels inside r.
	Crop(src images.Frame, r images.Rect) (images.Frame, error)
}

// Segmenter turns pixel buffers into foreground masks and contours.
type Segmenter interface {
	// AbsDiffThreshold writes 255 into dst where |a-b| > threshold and 0 elsewhere.
	AbsDiffThreshold(a, b images.Frame, threshold uint8, dst *images.Frame) error
	// FindContours extracts the outer contours of the non-zero areas of a mask.
	FindContours(mask images.Frame) ([]images.Contour, error)
	// ContourArea returns the polygon area of a contour.
	ContourArea(c images.Contour) float64
	// NewBackgroundModel creates an adaptive per-pixel background model.
	NewBackgroundModel(p BackgroundParams) (BackgroundModel, error)
}

// Drawer annotates frames in place.
type Drawer interface {
	DrawContours(dst *images.Frame, contours []images.Contour, c color.RGBA, thickness int)
	DrawRect(dst *images.Frame, r images.Rect, c color.RGBA, thickness int)
	DrawCircle(dst *images.Frame, center image.Point, radius int, c color.RGBA, thickness int)
	DrawLine(dst *images.Frame, from, to image.Point, c color.RGBA, thickness int)
	DrawLabel(dst *images.Frame, at image.Point, text string, c color.RGBA)
}

// ClassifierLoader loads object classifiers.
type ClassifierLoader interface {
	LoadClassifier(spec ClassifierSpec) (Classifier, error)
}

// Library is the complete set of vision operations the pipeline needs.
type Library interface {
	Preprocessor
	Segmenter
	Drawer
	ClassifierLoader
	// Name identifies the backend in logs.
	Name() string
}

// BackgroundParams configures a background model.
type BackgroundParams struct {
	History         int
	Mixtures        int
	BackgroundRatio float64
	NoiseSigma      float64
}

// BackgroundModel separates moving foreground from the learned background.
type BackgroundModel interface {
	// Apply updates the model with src and writes the foreground mask into fgMask.
	Apply(src images.Frame, learningRate float64, fgMask *images.Frame) error
	Close() error
}

// ClassifierKind selects the classifier family.
type ClassifierKind int

const (
	// ClassifierCascade is a Haar/LBP cascade loaded from an XML file.
	ClassifierCascade ClassifierKind = iota
	// ClassifierHOG is the built-in HOG people detector; it needs no file.
	ClassifierHOG
)

// String returns the kind name.
func (k ClassifierKind) String() string {
	if k == ClassifierHOG {
		return "hog"
	}
	return "cascade"
}

// ClassifierSpec identifies a classifier model.
type ClassifierSpec struct {
	Kind ClassifierKind
	Path string
}

// DetectParams tunes a multi-scale classifier pass.
type DetectParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
	MaxSize      image.Point
}

// Classifier scans a frame at several scales for a target object class.
type Classifier interface {
	Detect(src images.Frame, p DetectParams) ([]images.Rect, error)
	Close() error
}
