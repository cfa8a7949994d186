package images

import (
	"image"
	"math/rand"
	"testing"
	"time"
)

// BenchmarkRect_IntersectDisjoint measures the early exit for rects that do not overlap.
func BenchmarkRect_IntersectDisjoint(b *testing.B) {
	r1 := Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}
	r2 := Rect{X1: 200, Y1: 200, X2: 300, Y2: 300}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = r1.Intersect(r2)
	}
}

// BenchmarkRect_IntersectRandom measures intersections of detector-sized boxes.
func BenchmarkRect_IntersectRandom(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	rects := make([]Rect, 1024)
	for i := range rects {
		rects[i] = RectXYWH(rng.Intn(1800), rng.Intn(1000), 20+rng.Intn(200), 20+rng.Intn(200))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rects[i%len(rects)].Intersect(rects[(i+1)%len(rects)])
	}
}

// BenchmarkRect_Scale measures mapping a classifier rect back to source coordinates.
func BenchmarkRect_Scale(b *testing.B) {
	r := RectXYWH(123, 45, 67, 89)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = r.Scale(1.5, 1.5)
	}
}

// BenchmarkContour_Area measures the shoelace area of a motion blob outline.
func BenchmarkContour_Area(b *testing.B) {
	c := make(Contour, 0, 400)
	for x := 0; x < 100; x++ {
		c = append(c, image.Pt(x, 0))
	}
	for y := 0; y < 100; y++ {
		c = append(c, image.Pt(100, y))
	}
	for x := 100; x > 0; x-- {
		c = append(c, image.Pt(x, 100))
	}
	for y := 100; y > 0; y-- {
		c = append(c, image.Pt(0, y))
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Area()
	}
}

// BenchmarkNormalize measures the per-frame conversion the session applies, per input layout.
func BenchmarkNormalize(b *testing.B) {
	for _, channels := range []int{1, 3, 4} {
		f := NewFrame(1280, 720, channels)
		f.Timestamp = time.Second
		b.Run(map[int]string{1: "gray", 3: "bgr", 4: "bgra"}[channels], func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Normalize(f)
			}
		})
	}
}
