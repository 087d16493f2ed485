package statemachine

import "context"

// State is anything with a stable name. The name is what gets persisted.
type State interface {
	Name() string
}

// Event names an input to the machine.
type Event interface {
	Name() string
}

// Guard vetoes a transition when it returns false.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Action runs while a transition is in flight. A non-nil error leaves the
// machine in its previous state.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Transition is one edge of the table. Guards are checked in order and all
// of them must pass; Actions then run in order.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

type (
	// StringState is a State backed by its name.
	StringState string
	// StringEvent is an Event backed by its name.
	StringEvent string
)

func (s StringState) Name() string { return string(s) }

func (e StringEvent) Name() string { return string(e) }
