package job

import (
	"errors"
	"fmt"

	"jobcore/internal/apperrors"
	"jobcore/pkg/jobid"
)

// ErrInvalidTransition is returned by Advance when a state change is not in
// the transition table.
var ErrInvalidTransition = errors.New("invalid state transition")

var waitingStates = []State{StateWaitingForDriver, StateWaitingForServices, StateWaitingForResources}

// validTransitions maps each state to the set of states it may move to.
var validTransitions = func() map[State]map[State]bool {
	t := map[State]map[State]bool{
		StateUndefined:           {},
		StateWaitingForDriver:    {StateWaitingForServices: true, StateWaitingForResources: true, StateInitializing: true},
		StateWaitingForServices:  {StateWaitingForResources: true, StateInitializing: true},
		StateWaitingForResources: {StateInitializing: true},
		StateInitializing:        {StateRunning: true},
		StateRunning:             {},
		StateCompleting:          {StateCompleted: true},
	}
	for _, w := range waitingStates {
		t[StateUndefined][w] = true
	}
	// any non-terminal state may be wound down
	for from, targets := range t {
		if from != StateCompleting {
			targets[StateCompleting] = true
		}
		targets[StateCompleted] = true
	}
	return t
}()

// ValidTransition reports whether moving from one state to another is a
// forward lifecycle step. Completed has no successors.
func ValidTransition(from, to State) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

func invalidTransition(id jobid.ID, from, to State) error {
	return apperrors.Conflict("job",
		fmt.Sprintf("job %s cannot move from %s to %s", id, from, to),
		ErrInvalidTransition)
}
