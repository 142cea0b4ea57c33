package job

import "fmt"

// State is the lifecycle state of a job or service.
//
// Transitions are driven by the caller and stored as given; see
// ValidTransition for an optional check.
type State int32

const (
	StateUndefined State = iota
	StateWaitingForDriver
	StateWaitingForServices
	StateWaitingForResources
	StateInitializing
	StateRunning
	StateCompleting
	StateCompleted
)

var stateNames = [...]string{
	StateUndefined:           "Undefined",
	StateWaitingForDriver:    "WaitingForDriver",
	StateWaitingForServices:  "WaitingForServices",
	StateWaitingForResources: "WaitingForResources",
	StateInitializing:        "Initializing",
	StateRunning:             "Running",
	StateCompleting:          "Completing",
	StateCompleted:           "Completed",
}

// States lists every state in lifecycle order.
var States = []State{
	StateUndefined,
	StateWaitingForDriver,
	StateWaitingForServices,
	StateWaitingForResources,
	StateInitializing,
	StateRunning,
	StateCompleting,
	StateCompleted,
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ParseState returns the state with the given name.
func ParseState(name string) (State, error) {
	for _, s := range States {
		if s.String() == name {
			return s, nil
		}
	}
	return StateUndefined, fmt.Errorf("unknown job state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsActive reports whether the job is waiting, initializing or running.
func (s State) IsActive() bool {
	switch s {
	case StateWaitingForDriver, StateWaitingForServices, StateWaitingForResources,
		StateInitializing, StateRunning:
		return true
	}
	return false
}

// IsSchedulable reports whether the job is eligible for process allocation.
func (s State) IsSchedulable() bool {
	switch s {
	case StateWaitingForResources, StateInitializing, StateRunning:
		return true
	}
	return false
}

// IsInitialized reports whether the job has finished initializing.
func (s State) IsInitialized() bool {
	switch s {
	case StateRunning, StateCompleting, StateCompleted:
		return true
	}
	return false
}

func (s State) IsRunnable() bool {
	return s == StateRunning
}

func (s State) IsCompleting() bool {
	return s == StateCompleting
}

func (s State) IsCompleted() bool {
	return s == StateCompleted
}

// IsFinished reports whether the job is completing or completed.
func (s State) IsFinished() bool {
	return s == StateCompleting || s == StateCompleted
}

// IsOperational is true for every state except Completed.
func (s State) IsOperational() bool {
	return s != StateCompleted
}
