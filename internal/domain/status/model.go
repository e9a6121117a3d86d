package status

import (
	"errors"
	"time"
)

// HideAfter is how long a status message stays visible once shown.
const HideAfter = 5 * time.Second

// Kind values for a status message.
const (
	KindSuccess = "success"
	KindError   = "error"
)

// Message is the transient banner shown after a signup, unregister or denied action.
// A newer Message replaces the previous one; there is no queue.
type Message struct {
	Text    string
	Kind    string
	ShownAt time.Time
}

var (
	ErrInvalidKind = errors.New("status kind must be success or error")
	ErrEmptyText   = errors.New("status text is required")
)

// Success builds a success message shown at now.
func Success(text string, now time.Time) Message {
	return Message{Text: text, Kind: KindSuccess, ShownAt: now}
}

// Failure builds an error message shown at now.
func Failure(text string, now time.Time) Message {
	return Message{Text: text, Kind: KindError, ShownAt: now}
}

// Validate checks the message can be displayed.
// PRE: Message struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (m Message) Validate() error {
	if m.Text == "" {
		return ErrEmptyText
	}
	if m.Kind != KindSuccess && m.Kind != KindError {
		return ErrInvalidKind
	}
	return nil
}

// Visible reports whether the message is still inside its display window at now.
// INVARIANT: m is not mutated
func (m Message) Visible(now time.Time) bool {
	if m.Text == "" || m.ShownAt.IsZero() {
		return false
	}
	return now.Before(m.ShownAt.Add(HideAfter))
}

// Remaining returns how long the message stays visible after now, or zero once hidden.
func (m Message) Remaining(now time.Time) time.Duration {
	if !m.Visible(now) {
		return 0
	}
	return m.ShownAt.Add(HideAfter).Sub(now)
}
