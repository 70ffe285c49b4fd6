package engine

import (
	"time"

	"github.com/sieve-chat/sieve/automod/event"
)

type DecisionKind int

const (
	Allow DecisionKind = iota
	DeleteMessage
	TimeoutUser
	KickUser
)

func (k DecisionKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case DeleteMessage:
		return "delete-message"
	case TimeoutUser:
		return "timeout-user"
	case KickUser:
		return "kick-user"
	default:
		return "unknown"
	}
}

// Outcome of running rules against a single event. At most one non-Allow decision is produced per event.
type Decision struct {
	Kind    DecisionKind
	Reason  string
	Subject event.UserID
	// Name of the rule which made the decision
	Rule string
	// Text posted to the channel after a deletion succeeds
	Notice string
	// Only meaningful for TimeoutUser
	Duration time.Duration
}

func (d Decision) IsAllow() bool {
	return d.Kind == Allow
}
