package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine is a running instance of a Definition.
type Machine struct {
	def     *Definition
	current State
	mu      sync.Mutex
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Fire applies event. Actions run before the state changes; any failing
// action aborts the transition and leaves the state untouched.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.def.lookup(ctx, m.current, event, data)
	if err != nil {
		return err
	}

	for _, action := range t.Actions {
		if err := action(ctx, m.current, t.To, event, data); err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = t.To
	return nil
}

// CanFire reports whether event would be accepted in the current state.
func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.def.lookup(ctx, m.current, event, data)
	return err == nil
}
