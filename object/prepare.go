package object

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/vision"
)

// prepared is a frame ready for a classifier, with the factors that map its
// coordinates back to the source frame.
type prepared struct {
	frame  images.Frame
	scaleX float64
	scaleY float64
}

// toSource maps a rect found on the prepared frame back to source coordinates.
func (p prepared) toSource(r images.Rect) images.Rect {
	if p.scaleX == 1 && p.scaleY == 1 {
		return r
	}
	return r.Scale(p.scaleX, p.scaleY)
}

// fitWithin returns the largest size with the aspect of size that fits bound.
// A zero bound or a size already inside it is returned unchanged.
func fitWithin(size, bound image.Point) image.Point {
	if bound.X <= 0 || bound.Y <= 0 || (size.X <= bound.X && size.Y <= bound.Y) {
		return size
	}
	scale := math.Min(float64(bound.X)/float64(size.X), float64(bound.Y)/float64(size.Y))
	return image.Pt(
		max(1, int(math.Round(float64(size.X)*scale))),
		max(1, int(math.Round(float64(size.Y)*scale))),
	)
}

// prepare downsizes frame to bound, converts it to gray when asked and
// equalizes single-channel results.
func prepare(lib vision.Library, frame images.Frame, bound image.Point, grayscale bool) (prepared, error) {
	p := prepared{frame: frame, scaleX: 1, scaleY: 1}

	if size := fitWithin(image.Pt(frame.Width, frame.Height), bound); size.X != frame.Width || size.Y != frame.Height {
		small, err := lib.Resize(frame, size.X, size.Y)
		if err != nil {
			return p, errors.Wrap(err, "downscale")
		}
		p.frame = small
		p.scaleX = float64(frame.Width) / float64(size.X)
		p.scaleY = float64(frame.Height) / float64(size.Y)
	}

	if grayscale && p.frame.Channels != 1 {
		var gray images.Frame
		if err := lib.GrayInto(p.frame, &gray); err != nil {
			return p, errors.Wrap(err, "grayscale")
		}
		p.frame = gray
	}

	if p.frame.Channels == 1 {
		eq, err := lib.EqualizeHist(p.frame)
		if err != nil {
			return p, errors.Wrap(err, "equalize")
		}
		p.frame = eq
	}
	return p, nil
}
