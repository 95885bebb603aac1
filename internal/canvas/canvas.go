// Package canvas describes renderer output as an ordered list of filled
// primitives that a drawing surface can present.
package canvas

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gg"
)

// Color is an RGBA colour with components in [0, 1].
type Color = gg.RGBA

// Common colours
var (
	Black = gg.Black
	White = gg.White
)

// ParseColor parses "#rgb", "#rgba", "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3, 4, 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid color %q: want 3, 4, 6 or 8 hex digits", s)
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return gg.Hex(hex), nil
}

// Point is a position or extent in surface pixels.
type Point struct {
	X, Y float64
}

// Kind identifies a primitive shape.
type Kind int

const (
	KindCircle Kind = iota
	KindRect
)

func (k Kind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindRect:
		return "rect"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Primitive is a filled circle or axis-aligned rectangle.
//
// Circles use Center and Radius. Rectangles use Min (top-left corner) and
// Size.
type Primitive struct {
	Kind   Kind
	Center Point
	Radius float64
	Min    Point
	Size   Point
	Fill   Color
}

// Circle returns a filled circle primitive.
func Circle(center Point, radius float64, fill Color) Primitive {
	return Primitive{Kind: KindCircle, Center: center, Radius: radius, Fill: fill}
}

// Rect returns a filled rectangle primitive.
func Rect(min, size Point, fill Color) Primitive {
	return Primitive{Kind: KindRect, Min: min, Size: size, Fill: fill}
}

// Translate moves the primitive by (dx, dy).
func (p *Primitive) Translate(dx, dy float64) {
	switch p.Kind {
	case KindCircle:
		p.Center.X += dx
		p.Center.Y += dy
	case KindRect:
		p.Min.X += dx
		p.Min.Y += dy
	}
}

// Bounds returns the top-left and bottom-right corners of the primitive.
func (p Primitive) Bounds() (Point, Point) {
	if p.Kind == KindCircle {
		return Point{p.Center.X - p.Radius, p.Center.Y - p.Radius},
			Point{p.Center.X + p.Radius, p.Center.Y + p.Radius}
	}
	return p.Min, Point{p.Min.X + p.Size.X, p.Min.Y + p.Size.Y}
}

// DisplayList is the ordered set of primitives emitted for one frame.
// Later primitives paint over earlier ones.
type DisplayList struct {
	Background Color
	items      []Primitive
}

// NewDisplayList creates an empty list with room for n primitives.
func NewDisplayList(n int) *DisplayList {
	return &DisplayList{Background: Black, items: make([]Primitive, 0, n)}
}

// Clear drops every emitted primitive, keeping the backing storage.
func (dl *DisplayList) Clear() {
	dl.items = dl.items[:0]
}

// Add appends a primitive.
func (dl *DisplayList) Add(p Primitive) {
	dl.items = append(dl.items, p)
}

// AddCircle appends a filled circle.
func (dl *DisplayList) AddCircle(center Point, radius float64, fill Color) {
	dl.Add(Circle(center, radius, fill))
}

// AddRect appends a filled rectangle.
func (dl *DisplayList) AddRect(min, size Point, fill Color) {
	dl.Add(Rect(min, size, fill))
}

// Translate moves every primitive in the list by (dx, dy).
func (dl *DisplayList) Translate(dx, dy float64) {
	for i := range dl.items {
		dl.items[i].Translate(dx, dy)
	}
}

// Len returns the number of primitives.
func (dl *DisplayList) Len() int {
	return len(dl.items)
}

// Primitives returns the primitives in paint order. The slice is only valid
// until the next Clear.
func (dl *DisplayList) Primitives() []Primitive {
	return dl.items
}

// Surface presents display lists. Implementations own their drawing target.
type Surface interface {
	Present(dl *DisplayList) error
	Closed() bool
}
