package motion

import (
	"image"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-detect/images"
)

// historyPlane is a motion history image: each pixel holds the time in seconds
// of the last motion seen there, 0 when there was none within the window.
type historyPlane struct {
	width  int
	height int
	mhi    []float32
	orient []float32
	valid  []bool
}

func newHistoryPlane(width, height int) *historyPlane {
	n := width * height
	return &historyPlane{
		width:  width,
		height: height,
		mhi:    make([]float32, n),
		orient: make([]float32, n),
		valid:  make([]bool, n),
	}
}

// update stamps ts where the silhouette is set and clears entries older than duration.
func (p *historyPlane) update(silhouette []byte, ts, duration float32) {
	limit := ts - duration
	for i, s := range silhouette {
		switch {
		case s != 0:
			p.mhi[i] = ts
		case p.mhi[i] < limit:
			p.mhi[i] = 0
		}
	}
}

func (p *historyPlane) at(x, y int) float32 {
	x = min(max(x, 0), p.width-1)
	y = min(max(y, 0), p.height-1)
	return p.mhi[y*p.width+x]
}

// gradient computes the orientation of the history surface in degrees and marks
// pixels whose 3x3 neighbourhood spans between minDelta and maxDelta seconds.
func (p *historyPlane) gradient(minDelta, maxDelta float32) {
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			i := y*p.width + x

			lo, hi := p.mhi[i], p.mhi[i]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					v := p.at(x+dx, y+dy)
					lo = math32.Min(lo, v)
					hi = math32.Max(hi, v)
				}
			}
			spread := hi - lo
			p.valid[i] = p.mhi[i] > 0 && spread >= minDelta && spread <= maxDelta
			if !p.valid[i] {
				p.orient[i] = 0
				continue
			}

			// 3x3 Sobel
			gx := (p.at(x+1, y-1) + 2*p.at(x+1, y) + p.at(x+1, y+1)) -
				(p.at(x-1, y-1) + 2*p.at(x-1, y) + p.at(x-1, y+1))
			gy := (p.at(x-1, y+1) + 2*p.at(x, y+1) + p.at(x+1, y+1)) -
				(p.at(x-1, y-1) + 2*p.at(x, y-1) + p.at(x+1, y-1))
			p.orient[i] = degrees(math32.Atan2(gy, gx))
		}
	}
}

// segment splits recent motion into components. Seeds are pixels stamped at ts;
// they grow over 8-neighbours holding motion whose time differs by at most
// segThresh from the pixel they are reached from.
func (p *historyPlane) segment(ts, segThresh float32) []images.Rect {
	labels := make([]bool, len(p.mhi))
	var rects []images.Rect
	var stack []image.Point

	for i, v := range p.mhi {
		if v != ts || labels[i] {
			continue
		}
		seed := image.Pt(i%p.width, i/p.width)
		labels[i] = true
		stack = append(stack[:0], seed)
		r := images.Rect{X1: seed.X, Y1: seed.Y, X2: seed.X + 1, Y2: seed.Y + 1}

		for len(stack) > 0 {
			q := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			r.X1, r.Y1 = min(r.X1, q.X), min(r.Y1, q.Y)
			r.X2, r.Y2 = max(r.X2, q.X+1), max(r.Y2, q.Y+1)

			qv := p.mhi[q.Y*p.width+q.X]
			for _, d := range neighbours8 {
				n := q.Add(d)
				if n.X < 0 || n.Y < 0 || n.X >= p.width || n.Y >= p.height {
					continue
				}
				j := n.Y*p.width + n.X
				nv := p.mhi[j]
				if labels[j] || nv <= 0 || math32.Abs(nv-qv) > segThresh {
					continue
				}
				labels[j] = true
				stack = append(stack, n)
			}
		}
		rects = append(rects, r)
	}
	return rects
}

// orientation is the recency-weighted circular mean of the valid gradient
// directions inside r, in degrees within [0, 360).
func (p *historyPlane) orientation(r images.Rect, ts, duration float32) float32 {
	var sx, sy float32
	for y := r.Y1; y < r.Y2; y++ {
		for x := r.X1; x < r.X2; x++ {
			i := y*p.width + x
			if !p.valid[i] {
				continue
			}
			age := ts - p.mhi[i]
			if age > duration {
				continue
			}
			w := 1 - age/duration
			rad := p.orient[i] * math32.Pi / 180
			sx += w * math32.Cos(rad)
			sy += w * math32.Sin(rad)
		}
	}
	if sx == 0 && sy == 0 {
		return 0
	}
	return degrees(math32.Atan2(sy, sx))
}

func degrees(rad float32) float32 {
	deg := rad * 180 / math32.Pi
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

var neighbours8 = [8]image.Point{
	{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// silhouetteMass is the L1 norm of the silhouette inside r.
func silhouetteMass(sil images.Frame, r images.Rect) float64 {
	sum := 0
	for y := r.Y1; y < r.Y2; y++ {
		row := sil.Data[y*sil.Width : (y+1)*sil.Width]
		for x := r.X1; x < r.X2; x++ {
			sum += int(row[x])
		}
	}
	return float64(sum)
}
