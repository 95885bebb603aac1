// Package raster renders display lists into an in-memory image with the gg
// software rasterizer, for headless snapshots.
package raster

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/gogpu/gg"

	"github.com/normanking/cortexface/internal/canvas"
)

// ErrClosed is returned by Present after Close.
var ErrClosed = errors.New("raster surface closed")

// Surface is a canvas.Surface drawing into a gg.Context.
type Surface struct {
	dc     *gg.Context
	closed bool
	frames int
}

// NewSurface creates a width x height surface.
func NewSurface(width, height int) *Surface {
	return &Surface{dc: gg.NewContext(width, height)}
}

// Size returns the surface dimensions.
func (s *Surface) Size() (int, int) {
	return s.dc.Width(), s.dc.Height()
}

// Present paints dl over a cleared background, primitives in list order.
func (s *Surface) Present(dl *canvas.DisplayList) error {
	if s.closed {
		return ErrClosed
	}

	s.dc.ClearWithColor(dl.Background)
	for i, p := range dl.Primitives() {
		switch p.Kind {
		case canvas.KindCircle:
			if p.Radius <= 0 {
				continue
			}
			s.dc.DrawCircle(p.Center.X, p.Center.Y, p.Radius)
		case canvas.KindRect:
			if p.Size.X <= 0 || p.Size.Y <= 0 {
				continue
			}
			s.dc.DrawRectangle(p.Min.X, p.Min.Y, p.Size.X, p.Size.Y)
		default:
			continue
		}
		s.dc.SetRGBA(p.Fill.R, p.Fill.G, p.Fill.B, p.Fill.A)
		if err := s.dc.Fill(); err != nil {
			return fmt.Errorf("fill %s %d: %w", p.Kind, i, err)
		}
	}
	s.frames++
	return nil
}

// Closed reports whether Close was called.
func (s *Surface) Closed() bool {
	return s.closed
}

// Frames returns the number of presented frames.
func (s *Surface) Frames() int {
	return s.frames
}

// Image returns the last presented frame.
func (s *Surface) Image() image.Image {
	return s.dc.Image()
}

// WritePNG encodes the last presented frame as PNG.
func (s *Surface) WritePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}

// SavePNG writes the last presented frame to path.
func (s *Surface) SavePNG(path string) error {
	return s.dc.SavePNG(path)
}

// Close releases the drawing context.
func (s *Surface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.dc.Close()
}
