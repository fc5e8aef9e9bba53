package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/pkg/log"
)

// ShutdownTimeout is the default wait for in-flight units of work on Stop.
const ShutdownTimeout = 10 * time.Second

// State is the lifecycle state of a server.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateListening:
		return "Listening"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateStopped:   {StateStarting},
	StateStarting:  {StateListening, StateStopping, StateCrashed},
	StateListening: {StateStopping, StateCrashed},
	StateStopping:  {StateStopped, StateCrashed},
	StateCrashed:   {StateStarting},
}

// StateObserver is notified after every state change.
type StateObserver interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle guards the server state machine and tracks in-flight units of work.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	logger   log.Logger
	observer StateObserver
}

// NewLifecycle creates a lifecycle in StateStopped.
func NewLifecycle(logger log.Logger, observer StateObserver) *Lifecycle {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Lifecycle{
		state:    StateStopped,
		logger:   logger,
		observer: observer,
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to next if the state machine allows it.
// Leaving a stopped or crashed state for anything but Starting yields
// ErrNotRunning; any other refused move yields ErrAlreadyRunning.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state
	if !allowed(prev, next) {
		l.mu.Unlock()
		if prev == StateStopped || prev == StateCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}
	l.state = next
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.OnStateChange(prev, next, reason)
	}
	l.logger.Info("server state changed",
		log.String("from", prev.String()),
		log.String("to", next.String()),
		log.String("reason", reason),
	)
	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart reports whether the server may be started.
func (l *Lifecycle) CanStart() bool {
	s := l.State()
	return s == StateStopped || s == StateCrashed
}

// CanStop reports whether the server may be stopped.
func (l *Lifecycle) CanStop() bool {
	s := l.State()
	return s == StateListening || s == StateStarting
}

// SetCancel stores the function that cancels the receive loop.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel stops the receive loop, if one was registered.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Go runs fn as a tracked unit of work.
func (l *Lifecycle) Go(fn func()) {
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		fn()
	}()
}

// Wait blocks until every tracked unit of work returned or timeout elapsed.
func (l *Lifecycle) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.inflight.Wait()
		close(done)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
		l.logger.Warn("in-flight messages still running at shutdown",
			log.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
