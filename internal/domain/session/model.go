package session

import (
	"errors"
	"time"
)

// StorageKey is the fixed cookie name under which a browser's session token is kept.
const StorageKey = "currentAdmin"

// Session is the administrator identity held for one browser.
// Sessions have no expiry; they live until logout.
type Session struct {
	Token     string
	Admin     string // administrator username; empty means anonymous
	CreatedAt time.Time
}

var (
	ErrMissingToken = errors.New("session token is required")
	ErrMissingAdmin = errors.New("administrator username is required")
	ErrNotFound     = errors.New("session not found")
)

// Validate checks required fields for a Session.
// PRE: Session struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (s Session) Validate() error {
	if s.Token == "" {
		return ErrMissingToken
	}
	if s.Admin == "" {
		return ErrMissingAdmin
	}
	return nil
}

// IsAuthenticated reports whether an administrator is logged in.
// INVARIANT: s is not mutated
func (s Session) IsAuthenticated() bool {
	return s.Admin != ""
}
