package audit

import (
	"context"
	"time"
)

// Writer appends entries. Implementations assign ID and CreatedAt.
type Writer interface {
	Append(ctx context.Context, entry *Entry) error
}

// Finder reads entries. List orders by created_at DESC, id DESC.
type Finder interface {
	List(ctx context.Context, params ListParams) ([]Entry, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Get(ctx context.Context, id int64) (*Entry, error)
	Actions(ctx context.Context) ([]string, error)
}

// Purger removes entries created strictly before the cutoff.
// It is the only path through which entries may ever be deleted.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Store is the full storage contract.
type Store interface {
	Writer
	Finder
	Purger
}

// Filter narrows a listing. Zero values mean "no constraint".
type Filter struct {
	// UserID matches entries whose actor OR subject is this user.
	UserID *int64
	Action string
	// From and To bound created_at inclusively.
	From *time.Time
	To   *time.Time
	// Before bounds created_at exclusively.
	Before *time.Time
}

// Validate rejects a filter whose lower bound is after its upper bound.
func (f Filter) Validate() error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return ErrInvalidFilter
	}
	return nil
}

// Match reports whether e satisfies the filter.
func (f Filter) Match(e *Entry) bool {
	if f.UserID != nil && !e.Involves(*f.UserID) {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	if f.Before != nil && !e.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}

// Cursor is a keyset position in the created_at DESC, id DESC order.
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

// After reports whether e sorts strictly after the cursor.
func (c *Cursor) After(e *Entry) bool {
	if c == nil {
		return true
	}
	if e.CreatedAt.Equal(c.CreatedAt) {
		return e.ID < c.ID
	}
	return e.CreatedAt.Before(c.CreatedAt)
}

// ListParams combines a filter with offset or keyset pagination.
type ListParams struct {
	Filter Filter
	Limit  int
	Offset int
	// After switches to keyset pagination; Offset is ignored when set.
	After *Cursor
}
