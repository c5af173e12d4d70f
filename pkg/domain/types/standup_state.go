package types

import "fmt"

// StandupState is the lifecycle state of a single standup instance
type StandupState string

const (
	StandupStatePending    StandupState = "pending"
	StandupStateCollecting StandupState = "collecting"
	StandupStatePosted     StandupState = "posted"
)

// AllStandupStates returns all valid states in lifecycle order
func AllStandupStates() []StandupState {
	return []StandupState{
		StandupStatePending,
		StandupStateCollecting,
		StandupStatePosted,
	}
}

// IsValid checks if the state is valid
func (s StandupState) IsValid() bool {
	switch s {
	case StandupStatePending, StandupStateCollecting, StandupStatePosted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible
func (s StandupState) IsTerminal() bool {
	return s == StandupStatePosted
}

// CanTransitionTo reports whether next is the single forward step from s.
// pending -> collecting -> posted is the only allowed path.
func (s StandupState) CanTransitionTo(next StandupState) bool {
	switch s {
	case StandupStatePending:
		return next == StandupStateCollecting
	case StandupStateCollecting:
		return next == StandupStatePosted
	default:
		return false
	}
}

// String returns the string representation of the state
func (s StandupState) String() string {
	return string(s)
}

// ParseStandupState parses a string into a StandupState
func ParseStandupState(s string) (StandupState, error) {
	state := StandupState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid standup state: %s", s)
	}
	return state, nil
}
