package face

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 33 * time.Millisecond

func TestBlinkEase_BoundaryValues(t *testing.T) {
	assert.InDelta(t, 1.0, BlinkEase(0), 1e-12)
	assert.InDelta(t, 0.0, BlinkEase(0.25), 1e-12)
	assert.InDelta(t, 1.0, BlinkEase(1), 1e-12)
}

func TestBlinkEase_MultiplierRangeAndContinuity(t *testing.T) {
	const steps = 1000
	h := 1.0 / steps
	prev := blinkFloor + blinkRange*BlinkEase(0)

	for i := 1; i <= steps; i++ {
		m := blinkFloor + blinkRange*BlinkEase(float64(i)*h)
		assert.GreaterOrEqual(t, m, 0.2-1e-12)
		assert.LessOrEqual(t, m, 1.0+1e-12)

		// ease is 4-Lipschitz, so one step never moves more than 4*h*0.8
		assert.LessOrEqual(t, abs(m-prev), blinkRange*4*h+1e-12, "jump at step %d", i)
		prev = m
	}
}

func TestBlinkModifier_TogglesAfterOpenMax(t *testing.T) {
	cfg := DefaultBlinkConfig()
	b, err := NewBlinkModifier(cfg, NewRand(42))
	require.NoError(t, err)
	require.False(t, b.Blinking())

	s := b.Apply(cfg.OpenMax, DefaultState())
	assert.Equal(t, 1.0, s.Eyes.Left.Open, "multiplier is taken before the phase advances")
	require.True(t, b.Blinking(), "open phase can never outlast OpenMax")

	closeDur := b.PhaseDuration()
	assert.GreaterOrEqual(t, closeDur, cfg.CloseMin)
	assert.LessOrEqual(t, closeDur, cfg.CloseMax)

	s = b.Apply(frame, DefaultState())
	assert.InDelta(t, 1.0, s.Eyes.Left.Open, 1e-12, "blink starts from fully open")

	s = b.Apply(frame, DefaultState())
	assert.Less(t, s.Eyes.Left.Open, 1.0, "eyes start closing")
	assert.Equal(t, s.Eyes.Left.Open, s.Eyes.Right.Open)
}

func TestBlinkModifier_ClosedPhaseStaysInRange(t *testing.T) {
	cfg := DefaultBlinkConfig()
	b, err := NewBlinkModifier(cfg, NewRand(7))
	require.NoError(t, err)

	b.Apply(cfg.OpenMax, DefaultState())
	require.True(t, b.Blinking())

	frames := 0
	for b.Blinking() {
		s := b.Apply(frame, DefaultState())
		assert.GreaterOrEqual(t, s.Eyes.Left.Open, 0.2-1e-12)
		assert.LessOrEqual(t, s.Eyes.Left.Open, 1.0)
		frames++
		require.Less(t, frames, 100, "blink phase never ended")
	}

	open := b.PhaseDuration()
	assert.GreaterOrEqual(t, open, cfg.OpenMin)
	assert.LessOrEqual(t, open, cfg.OpenMax)
}

func TestBlinkModifier_AttenuatesMultiplicatively(t *testing.T) {
	b, err := NewBlinkModifier(BlinkConfig{
		OpenMin: 10 * time.Millisecond, OpenMax: 10 * time.Millisecond,
		CloseMin: 100 * time.Millisecond, CloseMax: 100 * time.Millisecond,
	}, NewRand(1))
	require.NoError(t, err)

	b.Apply(10*time.Millisecond, DefaultState())
	b.Apply(10*time.Millisecond, DefaultState()) // count = 10ms of 100ms

	m := b.Multiplier()
	in := DefaultState()
	in.Eyes.Left.Open = 0.5
	out := b.Apply(0, in)

	assert.InDelta(t, 0.5*m, out.Eyes.Left.Open, 1e-12)
	assert.InDelta(t, m, out.Eyes.Right.Open, 1e-12)
}

func TestBlinkModifier_SeedIsReproducible(t *testing.T) {
	a, err := NewBlinkModifier(DefaultBlinkConfig(), NewRand(99))
	require.NoError(t, err)
	b, err := NewBlinkModifier(DefaultBlinkConfig(), NewRand(99))
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		sa := a.Apply(frame, DefaultState())
		sb := b.Apply(frame, DefaultState())
		require.Equal(t, sa, sb)
	}
}

func TestBlinkConfig_Validate(t *testing.T) {
	cfg := DefaultBlinkConfig()
	cfg.OpenMin = 10 * time.Second
	_, err := NewBlinkModifier(cfg, nil)
	assert.True(t, errors.Is(err, ErrInvalidRange))

	cfg = DefaultBlinkConfig()
	cfg.CloseMin, cfg.CloseMax = 0, 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidRange)

	assert.NoError(t, DefaultBlinkConfig().Validate())
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
