package audit

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and single-node setups.
// It exposes no way to change or delete an entry other than Purge.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry // ascending by id
	nextID  int64
	now     func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{nextID: 1, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stores a copy of entry and fills in its ID and CreatedAt.
func (s *MemoryStore) Append(_ context.Context, entry *Entry) error {
	if entry == nil {
		return ErrInvalidEntry
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextID
	entry.CreatedAt = s.now().UTC()
	s.nextID++
	s.entries = append(s.entries, copyEntry(*entry))
	return nil
}

// Update always fails: entries are immutable.
func (s *MemoryStore) Update(context.Context, *Entry) error {
	return ErrImmutableEntry
}

// Delete always fails: entries leave the store only through Purge.
func (s *MemoryStore) Delete(context.Context, int64) error {
	return ErrImmutableEntry
}

// List returns matching entries newest first.
func (s *MemoryStore) List(_ context.Context, params ListParams) ([]Entry, error) {
	if err := params.Filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Entry, 0)
	for i := range s.entries {
		e := &s.entries[i]
		if params.Filter.Match(e) && params.After.After(e) {
			matched = append(matched, copyEntry(*e))
		}
	}
	sortNewestFirst(matched)

	if params.After == nil && params.Offset > 0 {
		if params.Offset >= len(matched) {
			return []Entry{}, nil
		}
		matched = matched[params.Offset:]
	}
	if params.Limit > 0 && len(matched) > params.Limit {
		matched = matched[:params.Limit]
	}
	return matched, nil
}

// Count returns the number of matching entries.
func (s *MemoryStore) Count(_ context.Context, filter Filter) (int64, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for i := range s.entries {
		if filter.Match(&s.entries[i]) {
			n++
		}
	}
	return n, nil
}

// Get returns the entry with the given id.
func (s *MemoryStore) Get(_ context.Context, id int64) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, found := slices.BinarySearchFunc(s.entries, id, func(e Entry, id int64) int {
		switch {
		case e.ID < id:
			return -1
		case e.ID > id:
			return 1
		}
		return 0
	})
	if !found {
		return nil, ErrEntryNotFound
	}
	e := copyEntry(s.entries[i])
	return &e, nil
}

// Actions returns the distinct actions in ascending order.
func (s *MemoryStore) Actions(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for i := range s.entries {
		seen[s.entries[i].Action] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

// Purge deletes entries created strictly before the cutoff.
func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var removed int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(s.entries[len(kept):])
	s.entries = kept
	return removed, nil
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

func copyEntry(e Entry) Entry {
	if e.Properties != nil {
		e.Properties = maps.Clone(e.Properties)
	}
	if e.Actor != nil {
		a := *e.Actor
		e.Actor = &a
	}
	if e.Subject != nil {
		sub := *e.Subject
		e.Subject = &sub
	}
	return e
}
