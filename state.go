package exttex

import "fmt"

// State is the lifecycle state of a Handle.
//
// Each value is one reachable (released, bound) pair. A released handle is
// never bound, so that combination has no State.
type State uint8

const (
	// StateUnbound is (released=false, bound=false). Initial state.
	StateUnbound State = iota

	// StateBound is (released=false, bound=true).
	StateBound

	// StateReleased is (released=true, bound=false). Terminal.
	StateReleased
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Released reports whether the state is terminal.
func (s State) Released() bool { return s == StateReleased }

// Bound reports whether the source is attached to a context slot.
func (s State) Bound() bool { return s == StateBound }
