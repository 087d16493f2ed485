package ratelimiter

import "errors"

var (
	ErrInvalidConfig     = errors.New("ratelimiter: invalid config")
	ErrInvalidTokenCount = errors.New("ratelimiter: invalid token count")
	// ErrStoreUnavailable is joined with Redis errors.
	ErrStoreUnavailable = errors.New("ratelimiter: store unavailable")
)
