package analysis

import (
	"sync"

	"github.com/phrazzld/taskrank/internal/domain"
)

// State is the lifecycle of the most recent analysis request.
type State int

// Request states.
const (
	StateIdle State = iota
	StateInFlight
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInFlight:
		return "in_flight"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Guard allows one analysis in flight at a time. A trigger that arrives
// while a request is pending is rejected; it is neither queued nor allowed
// to cancel the pending request.
type Guard struct {
	mu      sync.Mutex
	state   State
	lastErr error
}

// NewGuard returns an idle guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Begin moves the guard to InFlight, or returns domain.ErrAnalysisInFlight
// if a request is already pending.
func (g *Guard) Begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateInFlight {
		return domain.ErrAnalysisInFlight
	}
	g.state = StateInFlight
	g.lastErr = nil
	return nil
}

// Resolve records the outcome of the pending request and releases the guard.
func (g *Guard) Resolve(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = StateResolved
	g.lastErr = err
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// LastErr returns the error the last resolved request ended with, or nil.
func (g *Guard) LastErr() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}
