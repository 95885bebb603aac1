package face

import (
	"math"
	"sync"
	"time"

	"github.com/normanking/cortexface/internal/canvas"
)

const (
	// MinScale replaces zero, negative or non-finite scale factors.
	MinScale = 1e-3

	// gazeGain converts gaze units to design pixels.
	gazeGain = 2
	// breathBob is the vertical travel at full breath, in design pixels.
	breathBob = 3
	// eyelidThreshold omits eyelids thinner than this many pixels.
	eyelidThreshold = 0.1
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithLayout overrides the face geometry.
func WithLayout(l Layout) Option {
	return func(r *Renderer) { r.layout = l }
}

// WithPalette overrides the face colours.
func WithPalette(p Palette) Option {
	return func(r *Renderer) { r.palette = p }
}

// WithFaultHandler registers a callback for recovered invariant faults.
func WithFaultHandler(fn FaultHandler) Option {
	return func(r *Renderer) { r.onFault = fn }
}

// Renderer owns the canonical face state, the modifier chain and the view
// transform. Tick and Draw are called from one goroutine; the setters may be
// called from any goroutine.
type Renderer struct {
	layout  Layout
	palette Palette
	onFault FaultHandler

	mu         sync.Mutex
	current    State
	composited State
	modifiers  []Modifier
	originX    float64
	originY    float64
	scaleX     float64
	scaleY     float64
}

// NewRenderer creates a renderer with the default state, origin at the
// centre of the reference canvas and unit scale.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		layout:     DefaultLayout(),
		palette:    DefaultPalette(),
		current:    DefaultState(),
		composited: DefaultState(),
		originX:    referenceCenterX,
		originY:    referenceCenterY,
		scaleX:     1,
		scaleY:     1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddModifier appends m to the chain. Registration order is apply order.
func (r *Renderer) AddModifier(m Modifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modifiers = append(r.modifiers, m)
}

// SetOrigin moves the screen position of the reference canvas centre.
// Non-finite coordinates are ignored.
func (r *Renderer) SetOrigin(cx, cy float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if isFinite(cx) {
		r.originX = cx
	}
	if isFinite(cy) {
		r.originY = cy
	}
}

// SetScale sets the per-axis view scale. Values <= 0 and non-finite values
// are clamped to MinScale.
func (r *Renderer) SetScale(sx, sy float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scaleX = sanitizeScale(sx)
	r.scaleY = sanitizeScale(sy)
}

// Origin returns the current view origin.
func (r *Renderer) Origin() (cx, cy float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.originX, r.originY
}

// Scale returns the current per-axis view scale.
func (r *Renderer) Scale() (sx, sy float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scaleX, r.scaleY
}

// SetMouthOpen stores the externally driven mouth opening in the canonical
// state. NaN and negative values become 0, values above 1 become 1.
func (r *Renderer) SetMouthOpen(v float64) {
	v = clamp01(v)
	r.mu.Lock()
	r.current.Mouth.Open = v
	r.mu.Unlock()
}

// State returns a copy of the canonical state.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Composited returns the state produced by the last Tick.
func (r *Renderer) Composited() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.composited
}

// Tick copies the canonical state, runs it through every modifier and keeps
// the result for Draw. Negative elapsed is treated as zero.
func (r *Renderer) Tick(elapsed time.Duration) State {
	if elapsed < 0 {
		elapsed = 0
	}

	r.mu.Lock()
	s := r.current
	mods := r.modifiers
	r.mu.Unlock()

	for _, m := range mods {
		s = m.Apply(elapsed, s)
	}
	s = r.enforce(s)

	r.mu.Lock()
	r.composited = s
	r.mu.Unlock()
	return s
}

func (r *Renderer) enforce(s State) State {
	if bad := s.NonFinite(); len(bad) > 0 {
		fault := Fault{Fields: bad, State: s}
		if failFast {
			panic(fault)
		}
		if r.onFault != nil {
			r.onFault(fault)
		}
		s = s.Sanitized()
	}
	return s.Clamped()
}

// Draw clears dl and emits the eyes, eyelids and mouth of the last
// composited state, then shifts everything by the breath bob.
func (r *Renderer) Draw(dl *canvas.DisplayList) {
	r.mu.Lock()
	s := r.composited
	v := view{
		originX: r.originX,
		originY: r.originY,
		scale:   math.Min(r.scaleX, r.scaleY),
	}
	r.mu.Unlock()

	dl.Clear()
	dl.Background = r.palette.Background

	r.drawEye(dl, v, r.layout.LeftEye, s.Eyes.Left)
	r.drawEye(dl, v, r.layout.RightEye, s.Eyes.Right)
	r.drawMouth(dl, v, r.layout.Mouth, s.Mouth)

	dl.Translate(0, s.Breath*breathBob*v.scale)
}

type view struct {
	originX, originY float64
	scale            float64
}

// project maps a design coordinate to screen pixels.
func (v view) project(x, y float64) canvas.Point {
	return canvas.Point{
		X: v.originX + (x-referenceCenterX)*v.scale,
		Y: v.originY + (y-referenceCenterY)*v.scale,
	}
}

func (r *Renderer) drawEye(dl *canvas.DisplayList, v view, l EyeLayout, e Eye) {
	c := v.project(l.X, l.Y)
	c.X += e.GazeX * gazeGain
	c.Y += e.GazeY * gazeGain
	radius := l.Radius * v.scale

	dl.AddCircle(c, radius, r.palette.Face)

	cover := (1 - e.Open) * 2 * radius
	if cover > eyelidThreshold {
		dl.AddRect(
			canvas.Point{X: c.X - radius, Y: c.Y - radius},
			canvas.Point{X: 2 * radius, Y: cover},
			r.palette.Background,
		)
	}
}

func (r *Renderer) drawMouth(dl *canvas.DisplayList, v view, l MouthLayout, m Mouth) {
	c := v.project(l.X, l.Y)
	open := m.Open
	w := (l.MaxWidth + (l.MinWidth-l.MaxWidth)*open) * v.scale
	h := (l.MinHeight + (l.MaxHeight-l.MinHeight)*open) * v.scale

	dl.AddRect(
		canvas.Point{X: c.X - w/2, Y: c.Y - h/2},
		canvas.Point{X: w, Y: h},
		r.palette.Face,
	)
}

func sanitizeScale(s float64) float64 {
	if s <= 0 || !isFinite(s) {
		return MinScale
	}
	return s
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
