package redis

import "errors"

var (
	// ErrEmptyURL is returned by Connect when Config.ConnectionURL is unset.
	ErrEmptyURL = errors.New("redis connection URL is not configured")
	// ErrInvalidURL wraps the go-redis parse error for a malformed URL.
	ErrInvalidURL = errors.New("invalid redis connection URL")
	// ErrNotReady means no PING succeeded before the retries or the timeout ran out.
	ErrNotReady = errors.New("redis server did not answer ping")
	// ErrUnhealthy is reported by the readiness check.
	ErrUnhealthy = errors.New("redis ping failed")
)
