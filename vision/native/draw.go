package native

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/nvr-ai/go-detect/images"
)

// DrawContours outlines each contour as a closed polyline.
func (l *Library) DrawContours(dst *images.Frame, contours []images.Contour, c color.RGBA, thickness int) {
	for _, contour := range contours {
		switch len(contour) {
		case 0:
			continue
		case 1:
			plot(dst, contour[0], c, thickness)
			continue
		}
		for i := range contour {
			l.DrawLine(dst, contour[i], contour[(i+1)%len(contour)], c, thickness)
		}
	}
}

// DrawRect outlines r; the right and bottom edges sit on the last pixel inside it.
func (l *Library) DrawRect(dst *images.Frame, r images.Rect, c color.RGBA, thickness int) {
	if r.Empty() {
		return
	}
	tl := image.Pt(r.X1, r.Y1)
	tr := image.Pt(r.X2-1, r.Y1)
	br := image.Pt(r.X2-1, r.Y2-1)
	bl := image.Pt(r.X1, r.Y2-1)
	l.DrawLine(dst, tl, tr, c, thickness)
	l.DrawLine(dst, tr, br, c, thickness)
	l.DrawLine(dst, br, bl, c, thickness)
	l.DrawLine(dst, bl, tl, c, thickness)
}

// DrawCircle draws a circle outline with the midpoint algorithm.
func (l *Library) DrawCircle(dst *images.Frame, center image.Point, radius int, c color.RGBA, thickness int) {
	if radius <= 0 {
		plot(dst, center, c, thickness)
		return
	}
	x, y, d := radius, 0, 1-radius
	for x >= y {
		for _, p := range [8]image.Point{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			plot(dst, center.Add(p), c, thickness)
		}
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

// DrawLine draws a segment with Bresenham's algorithm.
func (l *Library) DrawLine(dst *images.Frame, from, to image.Point, c color.RGBA, thickness int) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}

	p := from
	e := dx + dy
	for {
		plot(dst, p, c, thickness)
		if p == to {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

// DrawLabel writes text with its baseline at the given point using a 7x13 bitmap font.
func (l *Library) DrawLabel(dst *images.Frame, at image.Point, text string, c color.RGBA) {
	if dst.Validate() != nil || text == "" {
		return
	}
	img := image.NewRGBA(image.Rect(0, 0, dst.Width, dst.Height))
	draw.Draw(img, img.Bounds(), dst.ToImage(), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(text)

	out := frameLike(img, *dst)
	copy(dst.Data, out.Data)
}

// plot paints a square brush of the given thickness centred on p.
func plot(dst *images.Frame, p image.Point, c color.RGBA, thickness int) {
	if thickness <= 1 {
		dst.Set(p.X, p.Y, c)
		return
	}
	lo := -(thickness - 1) / 2
	hi := lo + thickness - 1
	for y := lo; y <= hi; y++ {
		for x := lo; x <= hi; x++ {
			dst.Set(p.X+x, p.Y+y, c)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
