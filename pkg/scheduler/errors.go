package scheduler

import "errors"

var (
	ErrNotConfigured        = errors.New("scheduler: no jobs registered")
	ErrJobAlreadyRegistered = errors.New("scheduler: job already registered")
	ErrJobNotFound          = errors.New("scheduler: job not found")
	ErrInvalidJob           = errors.New("scheduler: job needs a name, a schedule and a function")
	// ErrJobBusy is returned by RunNow while the previous run is still active.
	ErrJobBusy = errors.New("scheduler: job is still running")
)
