package domain

// State is the coordinator's execution state. Transitions:
// IDLE → SIZED → SUBMITTED → {CONFIRMED, REVERTED, TIMED_OUT} → IDLE.
type State string

const (
	StateIdle      State = "idle"
	StateSized     State = "sized"
	StateSubmitted State = "submitted"
	StateConfirmed State = "confirmed"
	StateReverted  State = "reverted"
	StateTimedOut  State = "timed_out"
)

// Terminal reports whether the state returns to idle next.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateReverted, StateTimedOut:
		return true
	}
	return false
}
