package native

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

// Neighbour offsets in clockwise order starting west (y grows downwards).
var ring8 = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

func ringIndex(d image.Point) int {
	for i, p := range ring8 {
		if p == d {
			return i
		}
	}
	return 0
}

// FindContours returns the outer boundary of every 8-connected non-zero area of
// a single-channel mask. Holes are not reported.
func (l *Library) FindContours(mask images.Frame) ([]images.Contour, error) {
	if err := mask.Validate(); err != nil {
		return nil, err
	}
	if mask.Channels != 1 {
		return nil, errors.Wrapf(images.ErrInvalidFrame, "contours need a 1 channel mask, got %d", mask.Channels)
	}

	w, h := mask.Width, mask.Height
	fg := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && mask.Data[p.Y*w+p.X] != 0
	}

	labels := make([]int32, w*h)
	var contours []images.Contour
	var queue []image.Point
	next := int32(0)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.Data[y*w+x] == 0 || labels[y*w+x] != 0 {
				continue
			}

			// Label the component so later raster hits inside it are skipped.
			next++
			size := 0
			labels[y*w+x] = next
			queue = append(queue[:0], image.Pt(x, y))
			for len(queue) > 0 {
				p := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				size++
				for _, d := range ring8 {
					n := p.Add(d)
					if fg(n) && labels[n.Y*w+n.X] == 0 {
						labels[n.Y*w+n.X] = next
						queue = append(queue, n)
					}
				}
			}

			contours = append(contours, trace(image.Pt(x, y), fg, 4*size+8))
		}
	}

	l.logger.Debug("contours extracted", "count", len(contours), "width", w, "height", h)
	return contours, nil
}

// trace follows the outer boundary clockwise from start, the first raster pixel
// of its component, using Moore-neighbour tracing with Jacob's stopping rule.
func trace(start image.Point, fg func(image.Point) bool, limit int) images.Contour {
	contour := images.Contour{start}

	// The pixel west of the raster start is background by construction.
	back := 0
	cur := start
	var first image.Point
	firstSet := false

	for steps := 0; steps < limit; steps++ {
		found := false
		var nxt, prev image.Point
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			if cand := cur.Add(ring8[d]); fg(cand) {
				nxt = cand
				prev = cur.Add(ring8[(d+7)%8])
				found = true
				break
			}
		}
		if !found {
			return contour
		}

		if cur == start {
			if firstSet && nxt == first {
				return contour
			}
			if !firstSet {
				first, firstSet = nxt, true
			}
		}
		if nxt != start {
			contour = append(contour, nxt)
		}
		back = ringIndex(prev.Sub(nxt))
		cur = nxt
	}
	return contour
}
