package face

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Blink multiplier bounds: the lid never closes past a sliver of white.
const (
	blinkFloor = 0.2
	blinkRange = 1 - blinkFloor
)

// BlinkConfig holds the timing windows of a BlinkModifier.
type BlinkConfig struct {
	OpenMin  time.Duration
	OpenMax  time.Duration
	CloseMin time.Duration
	CloseMax time.Duration
}

// DefaultBlinkConfig returns open 400ms..5s, blink 200..400ms.
func DefaultBlinkConfig() BlinkConfig {
	return BlinkConfig{
		OpenMin:  400 * time.Millisecond,
		OpenMax:  5 * time.Second,
		CloseMin: 200 * time.Millisecond,
		CloseMax: 400 * time.Millisecond,
	}
}

// Validate reports whether both windows are well formed.
func (c BlinkConfig) Validate() error {
	if err := checkRange("blink open", c.OpenMin, c.OpenMax); err != nil {
		return err
	}
	if err := checkRange("blink close", c.CloseMin, c.CloseMax); err != nil {
		return err
	}
	if c.OpenMax <= 0 || c.CloseMax <= 0 {
		return fmt.Errorf("blink phases must have a positive upper bound: %w", ErrInvalidRange)
	}
	return nil
}

// BlinkModifier alternates between an open phase and a blinking phase, each
// with a randomly drawn duration. While blinking, both eyes are attenuated by
// 0.2 + 0.8*BlinkEase(fraction).
type BlinkModifier struct {
	cfg BlinkConfig
	rng *rand.Rand

	blinking   bool
	count      time.Duration
	nextToggle time.Duration
}

// NewBlinkModifier creates a modifier starting in the open phase.
func NewBlinkModifier(cfg BlinkConfig, rng *rand.Rand) (*BlinkModifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRand(0)
	}
	b := &BlinkModifier{cfg: cfg, rng: rng}
	b.nextToggle = randomDuration(rng, cfg.OpenMin, cfg.OpenMax)
	return b, nil
}

// Apply multiplies both eyes' Open by the current blink multiplier, then
// advances the phase timer.
func (b *BlinkModifier) Apply(elapsed time.Duration, s State) State {
	m := b.Multiplier()

	b.count += elapsed
	if b.count >= b.nextToggle {
		b.blinking = !b.blinking
		b.count = 0
		if b.blinking {
			b.nextToggle = randomDuration(b.rng, b.cfg.CloseMin, b.cfg.CloseMax)
		} else {
			b.nextToggle = randomDuration(b.rng, b.cfg.OpenMin, b.cfg.OpenMax)
		}
	}

	s.Eyes.Left.Open *= m
	s.Eyes.Right.Open *= m
	return s
}

// Multiplier returns the eye-open factor for the current phase position
// without advancing time.
func (b *BlinkModifier) Multiplier() float64 {
	if !b.blinking {
		return 1
	}
	fraction := 1.0
	if b.nextToggle > 0 {
		fraction = clamp01(float64(b.count) / float64(b.nextToggle))
	}
	return blinkFloor + blinkRange*BlinkEase(fraction)
}

// Blinking reports whether the modifier is in the blinking phase.
func (b *BlinkModifier) Blinking() bool {
	return b.blinking
}

// PhaseDuration returns the drawn length of the current phase.
func (b *BlinkModifier) PhaseDuration() time.Duration {
	return b.nextToggle
}

// BlinkEase maps a blink fraction in [0, 1] to a lid opening: linear fall
// from 1 to 0 over the first quarter, then a quadratic rise back to 1.
func BlinkEase(f float64) float64 {
	if f < 0.25 {
		return 1 - 4*f
	}
	d := f - 0.25
	return 16 * d * d / 9
}
