package flight

import "sync/atomic"

// State is the in-flight state of a single operator action.
type State string

const (
	StateIdle       State = "Idle"
	StateSubmitting State = "Submitting"
)

// Gate admits one in-flight action at a time. The zero value is Idle.
type Gate struct {
	busy atomic.Bool
}

// TryBegin moves the gate from Idle to Submitting. It reports false when an
// action is already in flight.
func (g *Gate) TryBegin() bool {
	return g.busy.CompareAndSwap(false, true)
}

// End returns the gate to Idle.
func (g *Gate) End() {
	g.busy.Store(false)
}

func (g *Gate) State() State {
	if g.busy.Load() {
		return StateSubmitting
	}
	return StateIdle
}
