package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("statemachine: transition needs from, to and event")
	ErrInvalidEvent      = errors.New("statemachine: nil event")
	ErrUnknownState      = errors.New("statemachine: state is not used by any transition")

	// ErrNoTransition matches a TransitionError for an event the current
	// state has no edge for.
	ErrNoTransition = errors.New("statemachine: no transition")
	// ErrRejected matches a TransitionError where every candidate edge was
	// blocked by its guards.
	ErrRejected = errors.New("statemachine: transition rejected")
)

// TransitionError reports why Fire could not move the machine.
type TransitionError struct {
	From     string
	Event    string
	Rejected bool
}

func (e *TransitionError) Error() string {
	if e.Rejected {
		return fmt.Sprintf("statemachine: guards rejected %q in state %q", e.Event, e.From)
	}
	return fmt.Sprintf("statemachine: state %q has no transition for %q", e.From, e.Event)
}

func (e *TransitionError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return e.Rejected
	case ErrNoTransition:
		return !e.Rejected
	}
	return false
}

// IsNoTransitionAvailableError reports whether err means the event is not
// accepted in the current state.
func IsNoTransitionAvailableError(err error) bool {
	return errors.Is(err, ErrNoTransition)
}

// IsTransitionRejectedError reports whether err came from failing guards.
func IsTransitionRejectedError(err error) bool {
	return errors.Is(err, ErrRejected)
}
