package audit

import "errors"

var (
	// ErrInvalidEntry indicates the entry data is invalid
	ErrInvalidEntry = errors.New("invalid audit entry")

	// ErrEntryNotFound indicates no entry exists with the given id
	ErrEntryNotFound = errors.New("audit entry not found")

	// ErrImmutableEntry is returned by storage for any update or delete outside of a purge
	ErrImmutableEntry = errors.New("audit entries are immutable")

	// ErrInvalidFilter indicates contradictory filter bounds
	ErrInvalidFilter = errors.New("invalid audit filter")

	// ErrJobRunning indicates a retention run is already in progress
	ErrJobRunning = errors.New("audit retention job is already running")

	// ErrArchiveFailed indicates entries could not be archived before a purge
	ErrArchiveFailed = errors.New("failed to archive audit entries")
)
