package twofactor

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned by a UserStore for an unknown user
	ErrUserNotFound = errors.New("twofactor: user not found")

	// ErrVersionConflict is returned by a UserStore when the stored version moved on
	ErrVersionConflict = errors.New("twofactor: version conflict")

	// ErrNotEnabled indicates the operation requires two-factor authentication to be on
	ErrNotEnabled = errors.New("twofactor: not enabled")

	// ErrAlreadyEnabled indicates setup was attempted for a user who already finished it
	ErrAlreadyEnabled = errors.New("twofactor: already enabled")

	// ErrInvalidCode indicates the confirmation code submitted during setup did not verify
	ErrInvalidCode = errors.New("twofactor: invalid code")

	// ErrNoChallenge indicates the session holds no pending challenge
	ErrNoChallenge = errors.New("twofactor: no pending challenge")
)

// StorageError reports a failure to hash, encrypt or persist two-factor
// state. It is never returned for a code that merely failed to verify.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("twofactor: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
