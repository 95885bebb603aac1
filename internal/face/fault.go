package face

import (
	"fmt"
	"strings"
)

// Fault reports a state that left the modifier chain with non-finite
// fields. It always indicates a modifier bug.
type Fault struct {
	Fields []string
	State  State
}

func (f Fault) Error() string {
	return fmt.Sprintf("face invariant violated: non-finite %s", strings.Join(f.Fields, ", "))
}

// FaultHandler observes invariant faults in builds that recover from them.
type FaultHandler func(Fault)
