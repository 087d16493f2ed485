package statemachine

import (
	"context"
	"fmt"
)

// Definition is an immutable transition table. One Definition is shared by
// many Machines, each of which tracks its own current state. This fits
// request-scoped flows where the state is persisted between requests
// (for example in a session) and restored with Start.
type Definition struct {
	// [fromState][event][]Transition
	transitions map[string]map[string][]Transition
	states      map[string]State
}

// Option configures a Definition during construction.
type Option func(*Definition) error

// TransitionOption configures a single transition with guards and actions.
type TransitionOption func(*Transition)

// New builds a Definition from the given options.
func New(opts ...Option) (*Definition, error) {
	d := &Definition{
		transitions: make(map[string]map[string][]Transition),
		states:      make(map[string]State),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// MustNew is New that panics on a misconfigured transition table.
func MustNew(opts ...Option) *Definition {
	d, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine definition: %v", err))
	}
	return d
}

// WithTransition adds a single transition.
// Several transitions may share a from/event pair; the first whose guards pass wins.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(d *Definition) error {
		if from == nil || to == nil || event == nil {
			return ErrInvalidTransition
		}

		t := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}

		if _, ok := d.transitions[from.Name()]; !ok {
			d.transitions[from.Name()] = make(map[string][]Transition)
		}
		d.transitions[from.Name()][event.Name()] = append(d.transitions[from.Name()][event.Name()], t)
		d.states[from.Name()] = from
		d.states[to.Name()] = to
		return nil
	}
}

// WithGuard adds a guard to a transition.
func WithGuard(guard Guard) TransitionOption {
	return func(t *Transition) {
		if guard != nil {
			t.Guards = append(t.Guards, guard)
		}
	}
}

// WithActions appends actions to a transition, run in order.
func WithActions(actions ...Action) TransitionOption {
	return func(t *Transition) {
		for _, action := range actions {
			if action != nil {
				t.Actions = append(t.Actions, action)
			}
		}
	}
}

// Knows reports whether the state appears in any transition.
func (d *Definition) Knows(state State) bool {
	if state == nil {
		return false
	}
	_, ok := d.states[state.Name()]
	return ok
}

// Start returns a Machine positioned at state.
func (d *Definition) Start(state State) (*Machine, error) {
	if !d.Knows(state) {
		return nil, ErrUnknownState
	}
	return &Machine{def: d, current: state}, nil
}

// lookup returns the first transition whose guards pass.
func (d *Definition) lookup(ctx context.Context, current State, event Event, data any) (*Transition, error) {
	candidates := d.transitions[current.Name()][event.Name()]
	if len(candidates) == 0 {
		return nil, &TransitionError{From: current.Name(), Event: event.Name()}
	}

	for i, t := range candidates {
		passed := true
		for _, guard := range t.Guards {
			if !guard(ctx, current, event, data) {
				passed = false
				break
			}
		}
		if passed {
			return &candidates[i], nil
		}
	}
	return nil, &TransitionError{From: current.Name(), Event: event.Name(), Rejected: true}
}
