//go:build withcv

// Package cv is the OpenCV vision backend, built on gocv.
//
// Build with -tags withcv and an OpenCV 4 installation.
package cv

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/vision"
)

// Library implements vision.Library with OpenCV.
type Library struct {
	logger *slog.Logger
}

var _ vision.Library = (*Library)(nil)

// New creates an OpenCV library.
//
// Arguments:
//   - logger: Logger for diagnostics; nil uses slog.Default().
//
// Returns:
//   - *Library: The library.
//
// @example
// lib := cv.New(slog.Default())
// det, err := controller.New(controller.Background, lib, settings.DefaultMotion(), controller.Options{})
func New(logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{logger: logger}
}

// Name identifies the backend.
func (l *Library) Name() string { return "opencv" }

// GrayInto converts src into a single-channel frame stored in dst.
func (l *Library) GrayInto(src images.Frame, dst *images.Frame) error {
	if src.Channels == 1 {
		if err := src.Validate(); err != nil {
			return err
		}
		dst.Resize(src.Width, src.Height, 1)
		dst.Timestamp = src.Timestamp
		copy(dst.Data, src.Data)
		return nil
	}

	mat, err := ToMat(src)
	if err != nil {
		return err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, grayCode(src.Channels))

	dst.Resize(src.Width, src.Height, 1)
	dst.Timestamp = src.Timestamp
	copy(dst.Data, gray.ToBytes())
	return nil
}

// Morphology applies an elliptical open followed by a close.
func (l *Library) Morphology(src images.Frame, kernelSize int) (images.Frame, error) {
	if kernelSize <= 1 {
		if err := src.Validate(); err != nil {
			return images.Frame{}, err
		}
		return src.Clone(), nil
	}
	mat, err := ToMat(src)
	if err != nil {
		return images.Frame{}, err
	}
	defer mat.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	clean := gocv.NewMat()
	defer clean.Close()
	gocv.MorphologyEx(mat, &clean, gocv.MorphOpen, kernel)
	gocv.MorphologyEx(clean, &clean, gocv.MorphClose, kernel)
	return FromMat(clean, src.Timestamp)
}

// EqualizeHist equalizes a single-channel frame.
func (l *Library) EqualizeHist(src images.Frame) (images.Frame, error) {
	if src.Channels != 1 {
		return images.Frame{}, errors.Wrapf(images.ErrInvalidFrame, "equalize needs 1 channel, got %d", src.Channels)
	}
	mat, err := ToMat(src)
	if err != nil {
		return images.Frame{}, err
	}
	defer mat.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.EqualizeHist(mat, &out)
	return FromMat(out, src.Timestamp)
}

// Resize scales src with bilinear interpolation.
func (l *Library) Resize(src images.Frame, width, height int) (images.Frame, error) {
	if width <= 0 || height <= 0 {
		return images.Frame{}, errors.Errorf("invalid target size %dx%d", width, height)
	}
	mat, err := ToMat(src)
	if err != nil {
		return images.Frame{}, err
	}
	defer mat.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.Resize(mat, &out, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	return FromMat(out, src.Timestamp)
}

// Crop copies the pixels inside r, clipped to the frame.
func (l *Library) Crop(src images.Frame, r images.Rect) (images.Frame, error) {
	clipped := r.Intersect(src.Bounds())
	if clipped.Empty() {
		return images.Frame{}, errors.Errorf("crop %s outside %dx%d frame", r, src.Width, src.Height)
	}
	mat, err := ToMat(src)
	if err != nil {
		return images.Frame{}, err
	}
	defer mat.Close()

	roi := mat.Region(clipped.Image())
	defer roi.Close()
	owned := roi.Clone()
	defer owned.Close()
	return FromMat(owned, src.Timestamp)
}

// AbsDiffThreshold writes 255 into dst where |a-b| > threshold.
func (l *Library) AbsDiffThreshold(a, b images.Frame, threshold uint8, dst *images.Frame) error {
	if !a.SameSize(b) || a.Channels != b.Channels {
		return errors.Wrapf(images.ErrInvalidFrame, "size mismatch %dx%dx%d vs %dx%dx%d",
			a.Width, a.Height, a.Channels, b.Width, b.Height, b.Channels)
	}
	ma, err := ToMat(a)
	if err != nil {
		return err
	}
	defer ma.Close()
	mb, err := ToMat(b)
	if err != nil {
		return err
	}
	defer mb.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(ma, mb, &diff)
	if a.Channels != 1 {
		gocv.CvtColor(diff, &diff, grayCode(a.Channels))
	}
	gocv.Threshold(diff, &diff, float32(threshold), 255, gocv.ThresholdBinary)

	dst.Resize(a.Width, a.Height, 1)
	dst.Timestamp = a.Timestamp
	copy(dst.Data, diff.ToBytes())
	return nil
}

// FindContours extracts the outer contours of a binary mask.
func (l *Library) FindContours(mask images.Frame) ([]images.Contour, error) {
	if mask.Channels != 1 {
		return nil, errors.Wrapf(images.ErrInvalidFrame, "contours need a 1 channel mask, got %d", mask.Channels)
	}
	mat, err := ToMat(mask)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	found := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]images.Contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		contours = append(contours, images.Contour(found.At(i).ToPoints()))
	}
	return contours, nil
}

// ContourArea returns the polygon area of c.
func (l *Library) ContourArea(c images.Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	pv := gocv.NewPointVectorFromPoints(c)
	defer pv.Close()
	return gocv.ContourArea(pv)
}

// DrawContours outlines each contour.
func (l *Library) DrawContours(dst *images.Frame, contours []images.Contour, c color.RGBA, thickness int) {
	if len(contours) == 0 {
		return
	}
	pts := make([][]image.Point, len(contours))
	for i, contour := range contours {
		pts[i] = contour
	}
	l.draw(dst, func(m *gocv.Mat) {
		pv := gocv.NewPointsVectorFromPoints(pts)
		defer pv.Close()
		gocv.DrawContours(m, pv, -1, c, thickness)
	})
}

// DrawRect outlines r.
func (l *Library) DrawRect(dst *images.Frame, r images.Rect, c color.RGBA, thickness int) {
	l.draw(dst, func(m *gocv.Mat) {
		gocv.Rectangle(m, image.Rect(r.X1, r.Y1, r.X2-1, r.Y2-1), c, thickness)
	})
}

// DrawCircle draws a circle outline.
func (l *Library) DrawCircle(dst *images.Frame, center image.Point, radius int, c color.RGBA, thickness int) {
	l.draw(dst, func(m *gocv.Mat) {
		gocv.Circle(m, center, radius, c, thickness)
	})
}

// DrawLine draws a segment.
func (l *Library) DrawLine(dst *images.Frame, from, to image.Point, c color.RGBA, thickness int) {
	l.draw(dst, func(m *gocv.Mat) {
		gocv.Line(m, from, to, c, thickness)
	})
}

// DrawLabel writes text with its baseline at the given point.
func (l *Library) DrawLabel(dst *images.Frame, at image.Point, text string, c color.RGBA) {
	l.draw(dst, func(m *gocv.Mat) {
		gocv.PutText(m, text, at, gocv.FontHersheySimplex, 0.5, c, 1)
	})
}

// draw runs fn on a Mat copy of dst and writes the result back.
func (l *Library) draw(dst *images.Frame, fn func(m *gocv.Mat)) {
	mat, err := ToMat(*dst)
	if err != nil {
		l.logger.Warn("draw skipped", "error", err)
		return
	}
	defer mat.Close()
	fn(&mat)
	copy(dst.Data, mat.ToBytes())
}

func grayCode(channels int) gocv.ColorConversionCode {
	if channels == 4 {
		return gocv.ColorBGRAToGray
	}
	return gocv.ColorBGRToGray
}
