// Package native is a pure-Go vision backend.
//
// It needs no cgo and backs the tests and the default CLI build. Classifier
// loading is not available; object detection needs the OpenCV backend.
package native

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/vision"
)

// Library implements vision.Library without cgo.
type Library struct {
	logger *slog.Logger
}

var _ vision.Library = (*Library)(nil)

// New creates a native library.
//
// Arguments:
//   - logger: Logger for diagnostics; nil uses slog.Default().
//
// Returns:
//   - *Library: The library.
func New(logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{logger: logger}
}

// Name identifies the backend.
func (l *Library) Name() string { return "native" }

// GrayInto converts src into a single-channel frame stored in dst.
func (l *Library) GrayInto(src images.Frame, dst *images.Frame) error {
	if err := src.Validate(); err != nil {
		return err
	}
	dst.Resize(src.Width, src.Height, 1)
	dst.Timestamp = src.Timestamp

	if src.Channels == 1 {
		copy(dst.Data, src.Data)
		return nil
	}
	var gray image.Image = effect.Grayscale(src.ToImage())
	copyGray(gray, dst)
	return nil
}

// Morphology applies an open (erode, dilate) then a close (dilate, erode).
func (l *Library) Morphology(src images.Frame, kernelSize int) (images.Frame, error) {
	if err := src.Validate(); err != nil {
		return images.Frame{}, err
	}
	if kernelSize <= 1 {
		return src.Clone(), nil
	}
	radius := float64(kernelSize-1) / 2
	img := src.ToImage()
	opened := effect.Dilate(effect.Erode(img, radius), radius)
	closed := effect.Erode(effect.Dilate(opened, radius), radius)
	return frameLike(closed, src), nil
}

// EqualizeHist spreads the intensity histogram of a gray frame over 0..255.
func (l *Library) EqualizeHist(src images.Frame) (images.Frame, error) {
	if err := src.Validate(); err != nil {
		return images.Frame{}, err
	}
	if src.Channels != 1 {
		return images.Frame{}, errors.Wrapf(images.ErrInvalidFrame, "equalize needs 1 channel, got %d", src.Channels)
	}

	var hist [256]int
	for _, v := range src.Data {
		hist[v]++
	}

	total := len(src.Data)
	cdfMin, cdf := 0, 0
	for _, n := range hist {
		if n > 0 {
			cdfMin = n
			break
		}
	}

	out := src.Clone()
	if total == cdfMin {
		return out, nil
	}

	var lut [256]uint8
	for v, n := range hist {
		cdf += n
		scaled := float64(cdf-cdfMin) * 255 / float64(total-cdfMin)
		if scaled < 0 {
			scaled = 0
		}
		lut[v] = uint8(scaled + 0.5)
	}
	for i, v := range out.Data {
		out.Data[i] = lut[v]
	}
	return out, nil
}

// Resize scales src with bilinear interpolation.
func (l *Library) Resize(src images.Frame, width, height int) (images.Frame, error) {
	if err := src.Validate(); err != nil {
		return images.Frame{}, err
	}
	if width <= 0 || height <= 0 {
		return images.Frame{}, errors.Errorf("invalid target size %dx%d", width, height)
	}
	scaled := resize.Resize(uint(width), uint(height), src.ToImage(), resize.Bilinear)
	return frameLike(scaled, src), nil
}

// Crop copies the pixels inside r, clipped to the frame.
func (l *Library) Crop(src images.Frame, r images.Rect) (images.Frame, error) {
	if err := src.Validate(); err != nil {
		return images.Frame{}, err
	}
	clipped := r.Intersect(src.Bounds())
	if clipped.Empty() {
		return images.Frame{}, errors.Errorf("crop %s outside %dx%d frame", r, src.Width, src.Height)
	}
	cropped := imaging.Crop(src.ToImage(), clipped.Image())
	return frameLike(cropped, src), nil
}

// AbsDiffThreshold builds a binary silhouette of the pixels that changed by more than threshold.
func (l *Library) AbsDiffThreshold(a, b images.Frame, threshold uint8, dst *images.Frame) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if !a.SameSize(b) || a.Channels != b.Channels {
		return errors.Wrapf(images.ErrInvalidFrame, "size mismatch %dx%dx%d vs %dx%dx%d",
			a.Width, a.Height, a.Channels, b.Width, b.Height, b.Channels)
	}

	dst.Resize(a.Width, a.Height, 1)
	dst.Timestamp = a.Timestamp

	copyGray(blend.Difference(a.ToImage(), b.ToImage()), dst)
	for i, v := range dst.Data {
		if v > threshold {
			dst.Data[i] = 255
		} else {
			dst.Data[i] = 0
		}
	}
	return nil
}

// ContourArea returns the polygon area of c.
func (l *Library) ContourArea(c images.Contour) float64 {
	return c.Area()
}

// LoadClassifier is not available without OpenCV.
func (l *Library) LoadClassifier(spec vision.ClassifierSpec) (vision.Classifier, error) {
	return nil, errors.Wrapf(vision.ErrUnsupported, "load %s classifier %q", spec.Kind, spec.Path)
}

// copyGray writes the intensity of img into a single-channel dst of the same size.
func copyGray(img image.Image, dst *images.Frame) {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) && g.Stride == dst.Width && len(g.Pix) == len(dst.Data) {
		copy(dst.Data, g.Pix)
		return
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Data[i] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			i++
		}
	}
}

// frameLike converts img back into a frame with the channel layout of ref.
func frameLike(img image.Image, ref images.Frame) images.Frame {
	if ref.Channels == 1 {
		b := img.Bounds()
		out := images.NewFrame(b.Dx(), b.Dy(), 1)
		out.Timestamp = ref.Timestamp
		copyGray(img, &out)
		return out
	}
	out := images.FromImage(img, ref.Timestamp)
	if ref.Channels == 4 {
		return toBGRA(out)
	}
	return out
}

func toBGRA(f images.Frame) images.Frame {
	out := images.NewFrame(f.Width, f.Height, 4)
	out.Timestamp = f.Timestamp
	for p, q := 0, 0; p < len(f.Data); p, q = p+3, q+4 {
		out.Data[q], out.Data[q+1], out.Data[q+2], out.Data[q+3] = f.Data[p], f.Data[p+1], f.Data[p+2], 255
	}
	return out
}
