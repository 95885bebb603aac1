package face

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreathModifier_RejectsNonPositivePeriod(t *testing.T) {
	_, err := NewBreathModifier(0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = NewBreathModifier(-time.Second)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestBreathModifier_QuarterPeriodPeaks(t *testing.T) {
	b, err := NewBreathModifier(DefaultBreathPeriod)
	require.NoError(t, err)

	s := b.Apply(DefaultBreathPeriod/4, DefaultState())
	assert.InDelta(t, 1.0, s.Breath, 1e-12)

	s = b.Apply(DefaultBreathPeriod/2, DefaultState())
	assert.InDelta(t, -1.0, s.Breath, 1e-12)
}

func TestBreathModifier_Periodic(t *testing.T) {
	period := DefaultBreathPeriod
	for _, start := range []time.Duration{0, 17 * time.Millisecond, 1234 * time.Millisecond, 5999 * time.Millisecond} {
		b, err := NewBreathModifier(period)
		require.NoError(t, err)

		before := b.Apply(start, DefaultState()).Breath

		// advance exactly one period in irregular ticks
		remaining := period
		for _, step := range []time.Duration{7, 33, 50, 16, 91} {
			step *= time.Millisecond
			b.Apply(step, DefaultState())
			remaining -= step
		}
		after := b.Apply(remaining, DefaultState()).Breath

		assert.InDelta(t, before, after, 1e-12, "start=%v", start)
	}
}

func TestBreathModifier_ContinuousPhaseUnderIrregularTicks(t *testing.T) {
	period := DefaultBreathPeriod
	irregular, err := NewBreathModifier(period)
	require.NoError(t, err)

	var total time.Duration
	ticks := []time.Duration{33, 29, 41, 33, 1, 250, 4000, 2500, 33}
	var s State
	for _, tick := range ticks {
		tick *= time.Millisecond
		total += tick
		s = irregular.Apply(tick, DefaultState())
	}

	want := math.Sin(2 * math.Pi * float64(total%period) / float64(period))
	assert.InDelta(t, want, s.Breath, 1e-12)
	assert.Equal(t, total%period, irregular.Phase())
}
