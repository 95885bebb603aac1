//go:build debug

package face

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderer_PanicsOnNonFiniteState(t *testing.T) {
	r := NewRenderer()
	r.AddModifier(modifierFunc(func(_ time.Duration, s State) State {
		s.Eyes.Right.Open = math.Inf(1)
		return s
	}))
	assert.Panics(t, func() { r.Tick(frame) })
}
