package session

import "errors"

var (
	ErrSessionNotFound = errors.New("session.not_found")
	ErrSessionExpired  = errors.New("session.expired")
	// ErrInvalidSession means the presented session belongs to another device.
	ErrInvalidSession = errors.New("session.invalid")
	ErrNoChallenge    = errors.New("session.no_challenge")

	ErrTokenGeneration = errors.New("session.token_generation_failed")
	// ErrStore is joined with the store's own error.
	ErrStore = errors.New("session.store_failed")
)
