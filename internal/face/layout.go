package face

import "github.com/normanking/cortexface/internal/canvas"

// Design coordinates are authored against a 320x240 reference canvas.
const (
	ReferenceWidth  = 320
	ReferenceHeight = 240

	referenceCenterX = ReferenceWidth / 2
	referenceCenterY = ReferenceHeight / 2
)

// EyeLayout places one eye in design units.
type EyeLayout struct {
	X, Y   float64
	Radius float64
}

// MouthLayout places the mouth in design units. The mouth is MaxWidth x
// MinHeight when closed and MinWidth x MaxHeight when fully open.
type MouthLayout struct {
	X, Y      float64
	MinWidth  float64
	MaxWidth  float64
	MinHeight float64
	MaxHeight float64
}

// Layout is the static geometry of the face.
type Layout struct {
	LeftEye  EyeLayout
	RightEye EyeLayout
	Mouth    MouthLayout
}

// DefaultLayout returns the reference face geometry.
func DefaultLayout() Layout {
	return Layout{
		LeftEye:  EyeLayout{X: 90, Y: 93, Radius: 8},
		RightEye: EyeLayout{X: 230, Y: 96, Radius: 8},
		Mouth: MouthLayout{
			X: 160, Y: 148,
			MinWidth: 50, MaxWidth: 90,
			MinHeight: 8, MaxHeight: 58,
		},
	}
}

// Palette colours the face. Eyelids are painted with the background.
type Palette struct {
	Face       canvas.Color
	Background canvas.Color
}

// DefaultPalette returns white features on black.
func DefaultPalette() Palette {
	return Palette{Face: canvas.White, Background: canvas.Black}
}
