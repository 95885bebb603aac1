// Package face simulates and renders a minimal animated face.
//
// A Renderer owns the canonical State and an ordered chain of Modifiers.
// Every tick it copies the canonical state, feeds the copy through each
// modifier in registration order and keeps the result for Draw, which emits
// filled primitives into a canvas.DisplayList under the current view
// transform.
package face

import "math"

// Eye holds the expressive parameters of one eye.
type Eye struct {
	// Open is 1 for a fully open eye and 0 for a closed one.
	Open float64
	// GazeX and GazeY offset the eye in design units.
	GazeX float64
	GazeY float64
}

// Eyes groups both eyes.
type Eyes struct {
	Left  Eye
	Right Eye
}

// Mouth holds the mouth parameters.
type Mouth struct {
	// Open is driven externally, 0 closed and 1 fully open.
	Open float64
}

// State is a snapshot of the face. It contains no references, so a plain
// assignment is a full copy.
type State struct {
	Mouth  Mouth
	Eyes   Eyes
	Breath float64
}

// DefaultState returns a closed mouth, fully open eyes, centred gaze and
// breath at zero phase.
func DefaultState() State {
	return State{
		Mouth: Mouth{Open: 0},
		Eyes: Eyes{
			Left:  Eye{Open: 1},
			Right: Eye{Open: 1},
		},
		Breath: 0,
	}
}

// NonFinite returns the names of fields holding NaN or an infinity.
func (s State) NonFinite() []string {
	var bad []string
	check := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, name)
		}
	}
	check("mouth.open", s.Mouth.Open)
	check("eyes.left.open", s.Eyes.Left.Open)
	check("eyes.left.gazeX", s.Eyes.Left.GazeX)
	check("eyes.left.gazeY", s.Eyes.Left.GazeY)
	check("eyes.right.open", s.Eyes.Right.Open)
	check("eyes.right.gazeX", s.Eyes.Right.GazeX)
	check("eyes.right.gazeY", s.Eyes.Right.GazeY)
	check("breath", s.Breath)
	return bad
}

// Sanitized replaces every non-finite field with its default value.
func (s State) Sanitized() State {
	def := DefaultState()
	s.Mouth.Open = finiteOr(s.Mouth.Open, def.Mouth.Open)
	s.Eyes.Left = sanitizeEye(s.Eyes.Left, def.Eyes.Left)
	s.Eyes.Right = sanitizeEye(s.Eyes.Right, def.Eyes.Right)
	s.Breath = finiteOr(s.Breath, def.Breath)
	return s
}

// Clamped returns the state with every open value limited to [0, 1].
func (s State) Clamped() State {
	s.Mouth.Open = clamp01(s.Mouth.Open)
	s.Eyes.Left.Open = clamp01(s.Eyes.Left.Open)
	s.Eyes.Right.Open = clamp01(s.Eyes.Right.Open)
	return s
}

func sanitizeEye(e, def Eye) Eye {
	e.Open = finiteOr(e.Open, def.Open)
	e.GazeX = finiteOr(e.GazeX, def.GazeX)
	e.GazeY = finiteOr(e.GazeY, def.GazeY)
	return e
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// clamp01 limits v to [0, 1]; NaN maps to 0.
func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
