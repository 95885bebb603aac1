package face

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// MouthSmoothModifier eases the rendered mouth toward the externally driven
// target instead of snapping to it. A new tween starts from the currently
// shown opening whenever the target changes.
type MouthSmoothModifier struct {
	duration time.Duration

	primed  bool
	target  float64
	current float64
	tween   *gween.Tween
}

// NewMouthSmoothModifier creates a smoother that reaches a new target after
// duration. A non-positive duration disables smoothing.
func NewMouthSmoothModifier(duration time.Duration) *MouthSmoothModifier {
	return &MouthSmoothModifier{duration: duration}
}

// Apply replaces Mouth.Open with the eased value.
func (m *MouthSmoothModifier) Apply(elapsed time.Duration, s State) State {
	if m.duration <= 0 {
		return s
	}
	if !m.primed {
		m.primed = true
		m.target = s.Mouth.Open
		m.current = s.Mouth.Open
	}

	if s.Mouth.Open != m.target {
		m.target = s.Mouth.Open
		m.tween = gween.New(float32(m.current), float32(m.target), float32(m.duration.Seconds()), ease.OutQuad)
	}

	if m.tween != nil {
		v, finished := m.tween.Update(float32(elapsed.Seconds()))
		m.current = float64(v)
		if finished {
			m.current = m.target
			m.tween = nil
		}
	}

	s.Mouth.Open = m.current
	return s
}
