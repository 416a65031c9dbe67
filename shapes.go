package imm

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// RegularPolygon returns an n-sided polygon centered at (x, y) as a
// triangle fan around a center vertex. rotation is in radians. n is
// raised to 3.
func RegularPolygon(n int, x, y, r, rotation float32, c RGBA) ([]Vertex, []uint16) {
	n = max(n, 3)
	verts := make([]Vertex, 0, n+1)
	idx := make([]uint16, 0, 3*n)
	verts = append(verts, NewVertex(x, y, 0, 0.5, 0.5, c))
	angle := 2 * math.Pi / float64(n)
	for i := range n {
		a := float64(rotation) + angle*float64(i)
		cos, sin := float32(math.Cos(a)), float32(math.Sin(a))
		verts = append(verts, NewVertex(x+r*cos, y+r*sin, 0, 0.5+0.5*cos, 0.5+0.5*sin, c))
	}
	for i := range n {
		next := (i+1)%n + 1
		idx = append(idx, 0, uint16(i+1), uint16(next)) //nolint:gosec // n fits a draw call
	}
	return verts, idx
}

// Circle approximates a circle with segments chosen from the radius.
func Circle(x, y, r float32, c RGBA) ([]Vertex, []uint16) {
	segments := int(math.Ceil(float64(r) / 2))
	return RegularPolygon(min(max(segments, 12), 128), x, y, r, 0, c)
}

// ThickLine returns a quad of the given width along (x0, y0)-(x1, y1).
// A zero-length line yields no geometry.
func ThickLine(x0, y0, x1, y1, width float32, c RGBA) ([]Vertex, []uint16) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return nil, nil
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	return []Vertex{
			NewVertex(x0+nx, y0+ny, 0, 0, 0, c),
			NewVertex(x1+nx, y1+ny, 0, 1, 0, c),
			NewVertex(x1-nx, y1-ny, 0, 1, 1, c),
			NewVertex(x0-nx, y0-ny, 0, 0, 1, c),
		},
		[]uint16{0, 1, 2, 0, 2, 3}
}

// Polyline returns line-list geometry through points, for use with the
// Lines draw mode. closed joins the last point to the first.
func Polyline(points []mgl32.Vec2, closed bool, c RGBA) ([]Vertex, []uint16) {
	if len(points) < 2 {
		return nil, nil
	}
	verts := make([]Vertex, len(points))
	for i, p := range points {
		verts[i] = NewVertex(p[0], p[1], 0, 0, 0, c)
	}
	segs := len(points) - 1
	if closed {
		segs++
	}
	idx := make([]uint16, 0, 2*segs)
	for i := range segs {
		idx = append(idx, uint16(i), uint16((i+1)%len(points))) //nolint:gosec // bounded by caller
	}
	return verts, idx
}
