package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Action is what an administrator (or would-be administrator) did.
type Action string

const (
	ActionLogin            Action = "login"
	ActionLoginFailed      Action = "login_failed"
	ActionLogout           Action = "logout"
	ActionUnregister       Action = "unregister"
	ActionUnregisterDenied Action = "unregister_denied"
)

// Outcome values for an Event.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Event is one entry in the administrator audit trail.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Actor     string    `json:"actor"` // submitted or session username; empty when anonymous
	Activity  string    `json:"activity,omitempty"`
	Email     string    `json:"email,omitempty"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	IPAddress string    `json:"ip_address"`
}

var (
	ErrMissingID     = errors.New("audit event id is required")
	ErrMissingAction = errors.New("audit event action is required")
)

// NewEvent creates a successful event for actor at now.
// POST: Returns an Event with a fresh id and OutcomeOK
func NewEvent(actor string, action Action, now time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		Action:    action,
		Actor:     actor,
		Outcome:   OutcomeOK,
	}
}

// WithTarget sets the participant the action was aimed at.
func (e Event) WithTarget(activity, email string) Event {
	e.Activity = activity
	e.Email = email
	return e
}

// Failed marks the event as unsuccessful with the text the visitor was shown.
func (e Event) Failed(detail string) Event {
	e.Outcome = OutcomeFailed
	e.Detail = detail
	return e
}

// WithRequest sets the client address.
func (e Event) WithRequest(ipAddress string) Event {
	e.IPAddress = ipAddress
	return e
}

// Validate checks required fields for an Event.
// PRE: Event struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (e Event) Validate() error {
	if e.ID == "" {
		return ErrMissingID
	}
	if e.Action == "" {
		return ErrMissingAction
	}
	return nil
}
