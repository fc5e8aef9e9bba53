package usts

import "github.com/bft-labs/usts/internal/app"

// State is the lifecycle state of a Server.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateStopping
	StateCrashed
)

func (s State) String() string {
	return app.State(s).String()
}

// StateChangeEvent describes one lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// StateObserver is notified synchronously after every transition.
type StateObserver interface {
	OnStateChange(StateChangeEvent)
}

// observerAdapter bridges StateObserver to the internal lifecycle.
type observerAdapter struct {
	observer StateObserver
}

func (a observerAdapter) OnStateChange(previous, current app.State, reason string) {
	if a.observer == nil {
		return
	}
	a.observer.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStarting:
		return StateStarting
	case app.StateListening:
		return StateListening
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
