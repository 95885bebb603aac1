package canvas

import "math"

// FloatsPerVertex is the layout produced by Tessellate: x, y, r, g, b, a.
const FloatsPerVertex = 6

// DefaultCircleSegments is the number of fan slices used per circle.
const DefaultCircleSegments = 64

// Tessellate appends a triangle list for every primitive in dl to dst and
// returns the extended slice. Circles become fans of segments triangles,
// rectangles two triangles. Degenerate primitives emit nothing.
func Tessellate(dst []float32, dl *DisplayList, segments int) []float32 {
	if segments < 3 {
		segments = 3
	}
	for _, p := range dl.Primitives() {
		switch p.Kind {
		case KindCircle:
			dst = appendCircle(dst, p, segments)
		case KindRect:
			dst = appendRect(dst, p)
		}
	}
	return dst
}

func appendCircle(dst []float32, p Primitive, segments int) []float32 {
	if p.Radius <= 0 {
		return dst
	}
	step := 2 * math.Pi / float64(segments)
	for i := 0; i < segments; i++ {
		a0 := float64(i) * step
		a1 := float64(i+1) * step
		dst = appendVertex(dst, p.Center.X, p.Center.Y, p.Fill)
		dst = appendVertex(dst, p.Center.X+p.Radius*math.Cos(a0), p.Center.Y+p.Radius*math.Sin(a0), p.Fill)
		dst = appendVertex(dst, p.Center.X+p.Radius*math.Cos(a1), p.Center.Y+p.Radius*math.Sin(a1), p.Fill)
	}
	return dst
}

func appendRect(dst []float32, p Primitive) []float32 {
	if p.Size.X <= 0 || p.Size.Y <= 0 {
		return dst
	}
	x0, y0 := p.Min.X, p.Min.Y
	x1, y1 := x0+p.Size.X, y0+p.Size.Y

	dst = appendVertex(dst, x0, y0, p.Fill)
	dst = appendVertex(dst, x1, y0, p.Fill)
	dst = appendVertex(dst, x1, y1, p.Fill)

	dst = appendVertex(dst, x0, y0, p.Fill)
	dst = appendVertex(dst, x1, y1, p.Fill)
	dst = appendVertex(dst, x0, y1, p.Fill)
	return dst
}

func appendVertex(dst []float32, x, y float64, c Color) []float32 {
	return append(dst,
		float32(x), float32(y),
		float32(c.R), float32(c.G), float32(c.B), float32(c.A))
}
