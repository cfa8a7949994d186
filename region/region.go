// Package region - Region-of-interest geometry used to discard detections outside a polygon.
package region

import (
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Polygon is a closed polygon given by its vertices in order.
//
// An empty polygon means "whole frame".
type Polygon []image.Point

// Shape is anything with a boundary that can be tested for containment.
type Shape interface {
	Vertices() []image.Point
}

// Empty reports whether the polygon carries no vertices.
func (p Polygon) Empty() bool {
	return len(p) == 0
}

// String renders the polygon in the "x,y;x,y" form accepted by Parse.
func (p Polygon) String() string {
	parts := make([]string, len(p))
	for i, pt := range p {
		parts[i] = fmt.Sprintf("%d,%d", pt.X, pt.Y)
	}
	return strings.Join(parts, ";")
}

// Parse reads a polygon from "x,y;x,y;..." notation. An empty string yields an empty polygon.
//
// Arguments:
//   - s: The textual polygon.
//
// Returns:
//   - Polygon: The parsed polygon.
//   - error: An error if any vertex is malformed.
func Parse(s string) (Polygon, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var poly Polygon
	for _, part := range strings.Split(s, ";") {
		xy := strings.Split(strings.TrimSpace(part), ",")
		if len(xy) != 2 {
			return nil, errors.Errorf("malformed vertex %q", part)
		}
		x, err := strconv.Atoi(strings.TrimSpace(xy[0]))
		if err != nil {
			return nil, errors.Wrapf(err, "vertex %q", part)
		}
		y, err := strconv.Atoi(strings.TrimSpace(xy[1]))
		if err != nil {
			return nil, errors.Wrapf(err, "vertex %q", part)
		}
		poly = append(poly, image.Pt(x, y))
	}
	return poly, nil
}

// PointInPolygon reports whether pt lies inside poly using a ray-casting test.
//
// Points on an edge or a vertex count as inside. A polygon with fewer than three
// vertices contains nothing; the condition is logged and false is returned.
//
// Arguments:
//   - poly: The polygon.
//   - pt: The point to test.
//
// Returns:
//   - bool: true when pt is inside or on the boundary.
func PointInPolygon(poly Polygon, pt image.Point) bool {
	if len(poly) < 3 {
		slog.Error("degenerate polygon", "vertices", len(poly))
		return false
	}

	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if onSegment(a, b, pt) {
			return true
		}
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			// Abscissa where the edge crosses the horizontal ray through pt.
			x := float64(b.X-a.X)*float64(pt.Y-a.Y)/float64(b.Y-a.Y) + float64(a.X)
			if float64(pt.X) < x {
				inside = !inside
			}
		}
	}
	return inside
}

// onSegment reports whether p lies on the closed segment ab.
func onSegment(a, b, p image.Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if cross != 0 {
		return false
	}
	return p.X >= min(a.X, b.X) && p.X <= max(a.X, b.X) &&
		p.Y >= min(a.Y, b.Y) && p.Y <= max(a.Y, b.Y)
}

// ShapeInPolygon reports whether every vertex of shape lies inside poly.
//
// This is a containment test: a shape that only overlaps the polygon is rejected.
func ShapeInPolygon(shape Shape, poly Polygon) bool {
	vertices := shape.Vertices()
	if len(vertices) == 0 || len(poly) == 0 {
		return false
	}
	for _, v := range vertices {
		if !PointInPolygon(poly, v) {
			return false
		}
	}
	return true
}

// Filter keeps the shapes fully contained in poly, preserving their order.
//
// An empty polygon returns shapes unchanged.
//
// Arguments:
//   - shapes: Candidate shapes.
//   - poly: The region of interest.
//
// Returns:
//   - []S: The contained shapes.
func Filter[S Shape](shapes []S, poly Polygon) []S {
	if poly.Empty() {
		return shapes
	}

	filtered := make([]S, 0, len(shapes))
	for _, s := range shapes {
		if ShapeInPolygon(s, poly) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
