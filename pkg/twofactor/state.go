package twofactor

import (
	"context"
	"time"
)

// State is the two-factor part of a user record. Secret and RecoveryCodes
// hold ciphertext only.
type State struct {
	Secret        string
	RecoveryCodes string
	ConfirmedAt   *time.Time
	// Version is bumped by the store on every successful save.
	Version int64
}

// Enabled reports whether setup has been completed. A secret without a
// confirmation timestamp is a partial state and does not count.
func (s State) Enabled() bool {
	return s.Secret != "" && s.ConfirmedAt != nil
}

// UserStore persists State. It is the only write path to these fields.
type UserStore interface {
	// LoadState returns ErrUserNotFound for an unknown user.
	LoadState(ctx context.Context, userID int64) (State, error)
	// SaveState stores next if the current version equals next.Version and
	// increments the version. It returns ErrVersionConflict otherwise.
	SaveState(ctx context.Context, userID int64, next State) error
}
