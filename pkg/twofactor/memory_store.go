package twofactor

import (
	"context"
	"sync"
)

// MemoryUserStore keeps State in memory.
type MemoryUserStore struct {
	mu     sync.Mutex
	states map[int64]State
}

// NewMemoryUserStore creates an empty store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{states: make(map[int64]State)}
}

// AddUser registers a user with two-factor authentication disabled.
func (s *MemoryUserStore) AddUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[userID]; !ok {
		s.states[userID] = State{}
	}
}

// RemoveUser forgets a user.
func (s *MemoryUserStore) RemoveUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

func (s *MemoryUserStore) LoadState(_ context.Context, userID int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		return State{}, ErrUserNotFound
	}
	return copyState(st), nil
}

func (s *MemoryUserStore) SaveState(_ context.Context, userID int64, next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.states[userID]
	if !ok {
		return ErrUserNotFound
	}
	if cur.Version != next.Version {
		return ErrVersionConflict
	}
	next = copyState(next)
	next.Version++
	s.states[userID] = next
	return nil
}

func copyState(st State) State {
	if st.ConfirmedAt != nil {
		t := *st.ConfirmedAt
		st.ConfirmedAt = &t
	}
	return st
}
