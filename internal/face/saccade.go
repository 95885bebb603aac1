package face

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// SaccadeConfig holds the hold window and offset spread of a
// SaccadeModifier.
type SaccadeConfig struct {
	UpdateMin time.Duration
	UpdateMax time.Duration
	// Gain is the standard deviation of each offset component.
	Gain float64
}

// DefaultSaccadeConfig returns a 300ms..2s hold with gain 0.2.
func DefaultSaccadeConfig() SaccadeConfig {
	return SaccadeConfig{
		UpdateMin: 300 * time.Millisecond,
		UpdateMax: 2 * time.Second,
		Gain:      0.2,
	}
}

// Validate reports whether the window and gain are usable.
func (c SaccadeConfig) Validate() error {
	if err := checkRange("saccade update", c.UpdateMin, c.UpdateMax); err != nil {
		return err
	}
	if c.Gain < 0 || math.IsNaN(c.Gain) || math.IsInf(c.Gain, 0) {
		return fmt.Errorf("saccade gain %v: %w", c.Gain, ErrInvalidRange)
	}
	return nil
}

// SaccadeModifier holds a gaze offset and jumps to a new normally
// distributed one each time its countdown runs out. Both eyes move together.
type SaccadeModifier struct {
	cfg SaccadeConfig
	rng *rand.Rand

	countdown time.Duration
	offsetX   float64
	offsetY   float64
}

// NewSaccadeModifier creates a modifier with a centred offset.
func NewSaccadeModifier(cfg SaccadeConfig, rng *rand.Rand) (*SaccadeModifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRand(0)
	}
	sm := &SaccadeModifier{cfg: cfg, rng: rng}
	sm.countdown = randomDuration(rng, cfg.UpdateMin, cfg.UpdateMax)
	return sm, nil
}

// Apply counts down by elapsed, resamples the offset on expiry and adds the
// held offset to both eyes' gaze.
func (sm *SaccadeModifier) Apply(elapsed time.Duration, s State) State {
	sm.countdown -= elapsed
	if sm.countdown <= 0 {
		sm.offsetX = sm.rng.NormFloat64() * sm.cfg.Gain
		sm.offsetY = sm.rng.NormFloat64() * sm.cfg.Gain
		sm.countdown = randomDuration(sm.rng, sm.cfg.UpdateMin, sm.cfg.UpdateMax)
	}

	s.Eyes.Left.GazeX += sm.offsetX
	s.Eyes.Left.GazeY += sm.offsetY
	s.Eyes.Right.GazeX += sm.offsetX
	s.Eyes.Right.GazeY += sm.offsetY
	return s
}

// Offset returns the held gaze offset.
func (sm *SaccadeModifier) Offset() (x, y float64) {
	return sm.offsetX, sm.offsetY
}

// Remaining returns the time left until the next jump.
func (sm *SaccadeModifier) Remaining() time.Duration {
	return sm.countdown
}
