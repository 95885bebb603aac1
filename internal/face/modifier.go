package face

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	// ErrInvalidRange is returned when a timing window has min > max or a
	// negative bound.
	ErrInvalidRange = errors.New("invalid timing range")
	// ErrInvalidDuration is returned for a non-positive period.
	ErrInvalidDuration = errors.New("invalid duration")
)

// Modifier is an independent behaviour generator. Apply advances its private
// timers by elapsed and returns the state with its contribution applied.
// Modifiers only see the working copy passed along the chain.
type Modifier interface {
	Apply(elapsed time.Duration, s State) State
}

// NewRand returns a generator seeded with seed. A zero seed draws one from
// the runtime source so each modifier still gets an independent stream.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func checkRange(name string, min, max time.Duration) error {
	if min < 0 || max < min {
		return fmt.Errorf("%s [%v, %v]: %w", name, min, max, ErrInvalidRange)
	}
	return nil
}

// randomDuration draws uniformly from [min, max].
func randomDuration(r *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.Int64N(int64(max-min)+1))
}
