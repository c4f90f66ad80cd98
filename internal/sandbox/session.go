// Package sandbox supervises a command inside an isolated virtual display:
// a private Xvfb server with its own xauth cookie, optional ffmpeg screen
// capture, and an exit-code exchange so the wrapped command's real status
// reaches the caller.
package sandbox

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// State is a sandbox session lifecycle state.
type State int

const (
	StateStarting State = iota
	StateReady
	StateRunning
	StateFailed
	StateCleaning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateCleaning:
		return "cleaning"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists the legal state changes. Cleanup is reachable from
// every non-terminal state so the signal handler can always tear down.
var transitions = map[State][]State{
	StateStarting: {StateReady, StateFailed, StateCleaning},
	StateReady:    {StateRunning, StateFailed, StateCleaning},
	StateRunning:  {StateFailed, StateCleaning},
	StateFailed:   {StateCleaning},
	StateCleaning: {StateDone},
}

// Session tracks one sandbox lifecycle and owns its cleanup stack.
// Cleanup functions registered with OnCleanup run exactly once, in
// reverse registration order, no matter how many paths call Cleanup.
type Session struct {
	id string

	mu       sync.Mutex
	state    State
	cleanups []func()
	cleaned  bool
}

// NewSession returns a session in StateStarting with a fresh ID.
func NewSession() *Session {
	return &Session{id: uuid.NewString(), state: StateStarting}
}

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session to the given state, or errors if the
// change is not legal from the current state.
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *Session) transitionLocked(to State) error {
	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal session transition %s -> %s", s.state, to)
}

// OnCleanup registers fn to run during Cleanup. Registration after
// cleanup has started is rejected; the resource should be released by
// the caller instead.
func (s *Session) OnCleanup(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleaned || s.state == StateCleaning || s.state == StateDone {
		return fmt.Errorf("session %s: cleanup already started", s.id)
	}
	s.cleanups = append(s.cleanups, fn)
	return nil
}

// Cleanup runs all registered cleanup functions in reverse registration
// order and moves the session to StateDone. Safe to call from multiple
// goroutines and multiple times; only the first call runs anything.
func (s *Session) Cleanup() {
	s.mu.Lock()
	if s.cleaned {
		s.mu.Unlock()
		return
	}
	s.cleaned = true
	_ = s.transitionLocked(StateCleaning)
	fns := s.cleanups
	s.cleanups = nil
	s.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}

	s.mu.Lock()
	_ = s.transitionLocked(StateDone)
	s.mu.Unlock()
}
