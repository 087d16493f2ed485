package session

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
)

// Challenge is a login that passed the password check and still owes a
// second factor. It lives on the session until completed or abandoned.
type Challenge struct {
	UserID    int64     `json:"user_id"`
	Remember  bool      `json:"remember"`
	StartedAt time.Time `json:"started_at"`
}

// Session represents a browser session.
type Session struct {
	ID     uuid.UUID `json:"id"`
	Token  string    `json:"token"`
	UserID *int64    `json:"user_id,omitempty"`
	// Remember extends the authenticated lifetime (remember-me login).
	Remember bool `json:"remember,omitempty"`
	// TwoFactorVerified is set once the second factor was satisfied for this session.
	TwoFactorVerified bool           `json:"two_factor_verified,omitempty"`
	Challenge         *Challenge     `json:"challenge,omitempty"`
	Fingerprint       string         `json:"fingerprint,omitempty"`
	Data              map[string]any `json:"data,omitempty"`
	ExpiresAt         time.Time      `json:"expires_at"`
	LastActivityAt    time.Time      `json:"last_activity_at"`
	CreatedAt         time.Time      `json:"created_at"`
}

// NewSession creates a new anonymous session.
func NewSession(token, fingerprint string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:             uuid.New(),
		Token:          token,
		Fingerprint:    fingerprint,
		Data:           make(map[string]any),
		ExpiresAt:      now.Add(ttl),
		LastActivityAt: now,
		CreatedAt:      now,
	}
}

// IsAuthenticated returns true if the session has a user ID
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != nil
}

// HasChallenge reports whether a second factor is pending.
func (s *Session) HasChallenge() bool {
	return s != nil && s.Challenge != nil
}

// IsExpired returns true if the session has expired
func (s *Session) IsExpired() bool {
	return s != nil && time.Now().After(s.ExpiresAt)
}

// GetString retrieves a string value from session data
func (s *Session) GetString(key string) (string, bool) {
	if s == nil || s.Data == nil {
		return "", false
	}
	str, ok := s.Data[key].(string)
	return str, ok
}

// Set stores a value in session data
func (s *Session) Set(key string, value any) {
	if s == nil {
		return
	}
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	s.Data[key] = value
}

// Delete removes a value from session data
func (s *Session) Delete(key string) {
	if s == nil || s.Data == nil {
		return
	}
	delete(s.Data, key)
}

// Touch updates the last activity time
func (s *Session) Touch() {
	if s == nil {
		return
	}
	s.LastActivityAt = time.Now()
}

// ValidateFingerprint checks if the provided fingerprint matches the session's fingerprint
func (s *Session) ValidateFingerprint(fingerprint string) bool {
	if s == nil || s.Fingerprint == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(s.Fingerprint), []byte(fingerprint)) == 1
}

// logout drops identity and any 2FA progress, keeping unrelated data.
func (s *Session) logout() {
	s.UserID = nil
	s.Remember = false
	s.TwoFactorVerified = false
	s.Challenge = nil
}

func (s *Session) clone() *Session {
	c := *s
	if s.Data != nil {
		c.Data = make(map[string]any, len(s.Data))
		for k, v := range s.Data {
			c.Data[k] = v
		}
	}
	if s.UserID != nil {
		id := *s.UserID
		c.UserID = &id
	}
	if s.Challenge != nil {
		ch := *s.Challenge
		c.Challenge = &ch
	}
	return &c
}
