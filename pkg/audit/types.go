package audit

import (
	"fmt"
	"time"
)

// EntityKind enumerates what an actor or subject reference may point at.
type EntityKind string

const (
	KindUser EntityKind = "user"
)

// Valid reports whether k is a known kind.
func (k EntityKind) Valid() bool {
	switch k {
	case KindUser:
		return true
	}
	return false
}

// EntityRef is a tagged reference to a domain entity.
type EntityRef struct {
	Kind EntityKind `json:"type"`
	ID   int64      `json:"id"`
}

// User returns a reference to the user with the given id.
func User(id int64) *EntityRef {
	return &EntityRef{Kind: KindUser, ID: id}
}

// IsUser reports whether the reference points at the given user.
func (r *EntityRef) IsUser(id int64) bool {
	return r != nil && r.Kind == KindUser && r.ID == id
}

func (r *EntityRef) String() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Properties is the free-form JSON payload of an entry.
type Properties map[string]any

// Entry is one immutable audit record. ID and CreatedAt are assigned by storage.
type Entry struct {
	ID         int64      `json:"id"`
	Action     string     `json:"action"`
	Actor      *EntityRef `json:"actor,omitempty"`
	Subject    *EntityRef `json:"subject,omitempty"`
	Properties Properties `json:"properties,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

const (
	maxActionLength    = 255
	maxIPAddressLength = 45
)

// Validate checks the fields a caller controls.
func (e *Entry) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidEntry)
	}
	if len(e.Action) > maxActionLength {
		return fmt.Errorf("%w: action exceeds %d characters", ErrInvalidEntry, maxActionLength)
	}
	if len(e.IPAddress) > maxIPAddressLength {
		return fmt.Errorf("%w: ip address exceeds %d characters", ErrInvalidEntry, maxIPAddressLength)
	}
	for _, ref := range []*EntityRef{e.Actor, e.Subject} {
		if ref != nil && !ref.Kind.Valid() {
			return fmt.Errorf("%w: unknown entity kind %q", ErrInvalidEntry, ref.Kind)
		}
	}
	return nil
}

// Involves reports whether userID is the actor or the subject of the entry.
func (e *Entry) Involves(userID int64) bool {
	return e.Actor.IsUser(userID) || e.Subject.IsUser(userID)
}
