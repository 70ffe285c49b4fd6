package engine

import (
	"sync"
)

// Mutable container for the side-effect decided during rule execution.
//
// Only the first decision is kept; later rules cannot override an earlier one. The mutex allows rules to fan out goroutines if they need to.
type Effects struct {
	mu       sync.Mutex
	decision Decision
	decided  bool
}

// Records a decision, unless one has already been made. Returns true if this decision was kept.
func (e *Effects) Decide(d Decision) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.decided || d.Kind == Allow {
		return false
	}
	e.decision = d
	e.decided = true
	return true
}

func (e *Effects) Decided() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decided
}

// The decision made, or an Allow decision if none was.
func (e *Effects) Decision() Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decision
}
