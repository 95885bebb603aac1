package face

import (
	"fmt"
	"math"
	"time"
)

// DefaultBreathPeriod is one full breath cycle.
const DefaultBreathPeriod = 6 * time.Second

// BreathModifier writes sin(2*pi*t/period) into State.Breath, where t is the
// running total of elapsed time modulo the period.
type BreathModifier struct {
	period time.Duration
	time   time.Duration
}

// NewBreathModifier creates a modifier with the given period.
func NewBreathModifier(period time.Duration) (*BreathModifier, error) {
	if period <= 0 {
		return nil, fmt.Errorf("breath period %v: %w", period, ErrInvalidDuration)
	}
	return &BreathModifier{period: period}, nil
}

// Apply accumulates elapsed into the phase and writes the breath value.
func (b *BreathModifier) Apply(elapsed time.Duration, s State) State {
	b.time = (b.time + elapsed) % b.period
	s.Breath = math.Sin(2 * math.Pi * float64(b.time) / float64(b.period))
	return s
}

// Phase returns the position inside the current cycle.
func (b *BreathModifier) Phase() time.Duration {
	return b.time
}
