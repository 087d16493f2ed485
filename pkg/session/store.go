package session

import (
	"context"
	"time"
)

// Store persists sessions by token.
//
// Get returns ErrSessionNotFound for unknown tokens and ErrSessionExpired for
// sessions past ExpiresAt. Update and Touch only apply to existing sessions.
// Implementations must not hand out references to their internal state.
type Store interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	// Touch records activity without rewriting the rest of the session.
	Touch(ctx context.Context, token string, at time.Time) error
	Delete(ctx context.Context, token string) error
}
