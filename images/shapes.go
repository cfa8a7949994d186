// Package images - Shapes produced by detectors.
package images

import (
	"fmt"
	"image"
)

// Rect is a lightweight bounding box.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// RectXYWH builds a Rect from an origin and a size.
func RectXYWH(x, y, w, h int) Rect {
	return Rect{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

// RectFrom converts an image.Rectangle.
func RectFrom(r image.Rectangle) Rect {
	return Rect{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Width returns X2-X1.
func (r Rect) Width() int { return r.X2 - r.X1 }

// Height returns Y2-Y1.
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Empty reports a zero or negative size.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Image converts the rect to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Intersect clips r to o.
func (r Rect) Intersect(o Rect) Rect {
	return RectFrom(r.Image().Intersect(o.Image()))
}

// Scale multiplies every coordinate, truncating towards zero.
func (r Rect) Scale(sx, sy float64) Rect {
	return Rect{
		X1: int(float64(r.X1) * sx),
		Y1: int(float64(r.Y1) * sy),
		X2: int(float64(r.X2) * sx),
		Y2: int(float64(r.Y2) * sy),
	}
}

// Vertices returns the corners (x,y), (x+w,y), (x,y+h), (x+w,y+h).
func (r Rect) Vertices() []image.Point {
	return []image.Point{
		{X: r.X1, Y: r.Y1},
		{X: r.X2, Y: r.Y1},
		{X: r.X1, Y: r.Y2},
		{X: r.X2, Y: r.Y2},
	}
}

// String renders the rect as {x, y, wxh}.
func (r Rect) String() string {
	return fmt.Sprintf("{%d, %d, %dx%d}", r.X1, r.Y1, r.Width(), r.Height())
}

// Contour is a closed boundary as an ordered list of points.
type Contour []image.Point

// Vertices returns the boundary points.
func (c Contour) Vertices() []image.Point { return c }

// BoundingRect returns the smallest Rect containing every point.
func (c Contour) BoundingRect() Rect {
	if len(c) == 0 {
		return Rect{}
	}
	r := Rect{X1: c[0].X, Y1: c[0].Y, X2: c[0].X + 1, Y2: c[0].Y + 1}
	for _, p := range c[1:] {
		r.X1 = min(r.X1, p.X)
		r.Y1 = min(r.Y1, p.Y)
		r.X2 = max(r.X2, p.X+1)
		r.Y2 = max(r.Y2, p.Y+1)
	}
	return r
}

// Area computes the polygon area enclosed by the contour with the shoelace
// formula over point coordinates, matching OpenCV's contourArea.
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	sum := 0
	for i := range c {
		j := (i + 1) % len(c)
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	if sum < 0 {
		sum = -sum
	}
	return float64(sum) / 2
}
