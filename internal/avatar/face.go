// Package avatar hosts the animated face: it builds the modifier chain from
// configuration, maps window and feed events onto the renderer and drives
// frames onto a drawing surface.
package avatar

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexface/internal/bus"
	"github.com/normanking/cortexface/internal/canvas"
	"github.com/normanking/cortexface/internal/config"
	"github.com/normanking/cortexface/internal/face"
	"github.com/normanking/cortexface/internal/metrics"
)

// Option configures a Face.
type Option func(*Face)

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(f *Face) { f.now = now }
}

// Face owns a face.Renderer and its display list.
type Face struct {
	cfg      config.AvatarConfig
	logger   zerolog.Logger
	renderer *face.Renderer
	dl       *canvas.DisplayList

	closed atomic.Bool

	now  func() time.Time
	last time.Time
}

// New builds the renderer with Blink, Breath and Saccade modifiers, plus
// mouth smoothing when avatar.mouth_smoothing is set.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Face, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fg, err := canvas.ParseColor(cfg.Avatar.FaceColor)
	if err != nil {
		return nil, err
	}
	bg, err := canvas.ParseColor(cfg.Avatar.BackgroundColor)
	if err != nil {
		return nil, err
	}

	f := &Face{
		cfg:    cfg.Avatar,
		logger: logger,
		dl:     canvas.NewDisplayList(8),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.renderer = face.NewRenderer(
		face.WithPalette(face.Palette{Face: fg, Background: bg}),
		face.WithFaultHandler(f.onFault),
	)

	seed := func(stream uint64) uint64 {
		if cfg.Avatar.Seed == 0 {
			return 0
		}
		return cfg.Avatar.Seed + stream
	}

	blink, err := face.NewBlinkModifier(face.BlinkConfig(cfg.Blink), face.NewRand(seed(0)))
	if err != nil {
		return nil, fmt.Errorf("blink: %w", err)
	}
	breath, err := face.NewBreathModifier(cfg.Breath.Period)
	if err != nil {
		return nil, fmt.Errorf("breath: %w", err)
	}
	saccade, err := face.NewSaccadeModifier(face.SaccadeConfig(cfg.Saccade), face.NewRand(seed(1)))
	if err != nil {
		return nil, fmt.Errorf("saccade: %w", err)
	}

	f.renderer.AddModifier(blink)
	f.renderer.AddModifier(breath)
	f.renderer.AddModifier(saccade)
	if cfg.Avatar.MouthSmoothing > 0 {
		f.renderer.AddModifier(face.NewMouthSmoothModifier(cfg.Avatar.MouthSmoothing))
	}

	f.logger.Debug().
		Uint64("seed", cfg.Avatar.Seed).
		Dur("interval", cfg.Avatar.FrameInterval).
		Dur("mouth_smoothing", cfg.Avatar.MouthSmoothing).
		Msg("Face created")
	return f, nil
}

// Renderer exposes the underlying face renderer.
func (f *Face) Renderer() *face.Renderer {
	return f.renderer
}

// OnResize fits the reference canvas into a w x h surface: the origin moves
// to the surface centre and each axis scales by its ratio to 320x240.
func (f *Face) OnResize(w, h int) {
	f.renderer.SetOrigin(float64(w)/2, float64(h)/2)
	f.renderer.SetScale(float64(w)/face.ReferenceWidth, float64(h)/face.ReferenceHeight)
	f.logger.Debug().Int("width", w).Int("height", h).Msg("Surface resized")
}

// OnClose marks the face closed. Run returns at its next frame.
func (f *Face) OnClose() {
	if !f.closed.Swap(true) {
		f.logger.Info().Msg("Close requested")
	}
}

// IsAlive reports whether OnClose has not been called.
func (f *Face) IsAlive() bool {
	return !f.closed.Load()
}

// SetMouthOpen forwards an external mouth value. Out of range values are
// clamped by the renderer.
func (f *Face) SetMouthOpen(v float64) {
	f.renderer.SetMouthOpen(v)
	metrics.MouthOpen.Set(f.renderer.State().Mouth.Open)
}

// Frame advances the simulation by elapsed and returns the frame's display
// list. The list is reused by the next call.
func (f *Face) Frame(elapsed time.Duration) *canvas.DisplayList {
	f.renderer.Tick(elapsed)
	f.renderer.Draw(f.dl)
	metrics.Ticks.Inc()
	return f.dl
}

// Step measures the time since the previous Step and renders a frame.
func (f *Face) Step() *canvas.DisplayList {
	return f.Frame(f.measure())
}

// measure returns wall time since the previous call truncated to whole
// milliseconds and clamped to MaxElapsed. The first call returns zero.
func (f *Face) measure() time.Duration {
	now := f.now()
	if f.last.IsZero() {
		f.last = now
		return 0
	}
	elapsed := now.Sub(f.last).Truncate(time.Millisecond)
	f.last = f.last.Add(elapsed)

	if elapsed < 0 {
		return 0
	}
	if f.cfg.MaxElapsed > 0 && elapsed > f.cfg.MaxElapsed {
		return f.cfg.MaxElapsed
	}
	return elapsed
}

// Run presents a frame every FrameInterval until ctx ends, the face is
// closed or the surface reports closed.
func (f *Face) Run(ctx context.Context, surface canvas.Surface) error {
	ticker := time.NewTicker(f.cfg.FrameInterval)
	defer ticker.Stop()

	f.logger.Info().Dur("interval", f.cfg.FrameInterval).Msg("Frame loop started")
	defer f.logger.Info().Msg("Frame loop stopped")

	for {
		if !f.IsAlive() || surface.Closed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		start := time.Now()
		if err := surface.Present(f.Step()); err != nil {
			return fmt.Errorf("present frame: %w", err)
		}
		metrics.FrameDuration.Observe(time.Since(start).Seconds())
	}
}

// SubscribeBus routes mouth, resize and close events to the face.
func (f *Face) SubscribeBus(b *bus.EventBus) {
	b.Subscribe(bus.EventTypeMouthOpen, func(e bus.Event) {
		if v, ok := e.Float("value"); ok {
			f.SetMouthOpen(v)
		}
	})
	b.Subscribe(bus.EventTypeResize, func(e bus.Event) {
		w, okW := e.Float("width")
		h, okH := e.Float("height")
		if okW && okH {
			f.OnResize(int(w), int(h))
		}
	})
	b.Subscribe(bus.EventTypeClosed, func(bus.Event) {
		f.OnClose()
	})
}

func (f *Face) onFault(fault face.Fault) {
	metrics.InvariantFaults.Inc()
	f.logger.Error().Err(fault).Strs("fields", fault.Fields).Msg("Composited state sanitized")
}
