// Package object implements cascade-classifier object detectors: a single-stage
// detector for faces and people, and a two-stage verified detector for vehicles.
package object

import (
	"image"
	"image/color"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/settings"
	"github.com/nvr-ai/go-detect/vision"
)

// Cascade files, looked up in a model directory.
const (
	// CheckCascadeFile is the vehicle cascade that verifies primary hits.
	CheckCascadeFile = "lbpcascade_car_check.xml"
	// FaceCascadeFile is the default frontal face cascade.
	FaceCascadeFile = "haarcascade_frontalface_default.xml"
)

// PrimaryCascadeFiles are the interchangeable vehicle cascades, tried in order.
var PrimaryCascadeFiles = []string{
	"lbpcascade_car_1.xml",
	"lbpcascade_car_2.xml",
	"lbpcascade_car_3.xml",
	"lbpcascade_car_4.xml",
}

// VehicleFiles returns the primary and check cascade paths inside dir.
func VehicleFiles(dir string) (primaries []string, check string) {
	for _, name := range PrimaryCascadeFiles {
		primaries = append(primaries, filepath.Join(dir, name))
	}
	return primaries, filepath.Join(dir, CheckCascadeFile)
}

// Face detection uses fixed pyramid settings and a minimum face size relative to the frame.
const (
	faceScaleFactor  = 1.1
	faceMinNeighbors = 2
	faceMinSizeShare = 0.2
)

// ClassifierFor returns the classifier spec of a kind. Human detection uses the
// built-in HOG people detector and ignores path.
func ClassifierFor(kind detector.Kind, path string) vision.ClassifierSpec {
	if kind == detector.KindHuman {
		return vision.ClassifierSpec{Kind: vision.ClassifierHOG}
	}
	return vision.ClassifierSpec{Kind: vision.ClassifierCascade, Path: path}
}

// ParamsFor returns the multi-scale parameters for a kind on a frame of the given height.
//
// Faces use fixed values; every other kind follows the sensitivity.
//
// Arguments:
//   - kind: Object class.
//   - s: Sensitivity level.
//   - frameHeight: Height of the frame handed to the classifier.
//
// Returns:
//   - vision.DetectParams: The classifier parameters.
func ParamsFor(kind detector.Kind, s settings.Sensitivity, frameHeight int) vision.DetectParams {
	if kind == detector.KindFace {
		side := int(float64(frameHeight) * faceMinSizeShare)
		return vision.DetectParams{
			ScaleFactor:  faceScaleFactor,
			MinNeighbors: faceMinNeighbors,
			MinSize:      image.Pt(side, side),
		}
	}
	return vision.DetectParams{
		ScaleFactor:  s.ScaleFactor(),
		MinNeighbors: s.MinNeighbors(),
	}
}

// palette is the round-robin colour set for verified vehicles.
var palette = func() []color.RGBA {
	hsv := [][3]float64{
		{0, 1, 1}, {120, 1, 1}, {240, 1, 1},
		{180, 1, 1}, {300, 1, 1}, {0, 0, 0.5},
		{60, 1, 0.5}, {180, 1, 0.5}, {300, 1, 0.5},
	}
	out := make([]color.RGBA, len(hsv))
	for i, c := range hsv {
		r, g, b := colorful.Hsv(c[0], c[1], c[2]).RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}()

// PaletteColor returns the colour of the i-th verified vehicle.
func PaletteColor(i int) color.RGBA {
	return palette[((i%len(palette))+len(palette))%len(palette)]
}
