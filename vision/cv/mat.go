//go:build withcv

package cv

import (
	"image"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/images"
)

// ToMat copies a frame into a new Mat. The caller closes it.
func ToMat(f images.Frame) (gocv.Mat, error) {
	if err := f.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	mt := gocv.MatTypeCV8UC3
	switch f.Channels {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 4:
		mt = gocv.MatTypeCV8UC4
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, mt, f.Data)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "frame to mat")
	}
	return mat, nil
}

// FromMat copies an 8-bit Mat into a frame.
func FromMat(m gocv.Mat, ts time.Duration) (images.Frame, error) {
	if m.Empty() {
		return images.Frame{}, errors.Wrap(images.ErrInvalidFrame, "empty mat")
	}
	f := images.Frame{
		Width:     m.Cols(),
		Height:    m.Rows(),
		Channels:  m.Channels(),
		Data:      m.ToBytes(),
		Timestamp: ts,
	}
	if err := f.Validate(); err != nil {
		return images.Frame{}, errors.Wrapf(err, "mat type %v", m.Type())
	}
	return f, nil
}

func toRects(rs []image.Rectangle) []images.Rect {
	out := make([]images.Rect, len(rs))
	for i, r := range rs {
		out[i] = images.RectFrom(r)
	}
	return out
}
