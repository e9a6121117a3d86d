package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"activityboard/internal/domain/session"
	"activityboard/internal/domain/status"
)

const (
	MsgAdminRequired    = "Admin login required to unregister students"
	MsgUnregisterFailed = "Failed to unregister. Please try again."
)

// ErrAdminRequired is returned when unregister is attempted without an administrator session.
var ErrAdminRequired = errors.New("admin login required")

// BackendForUnregister defines the backend call needed by Unregister.
type BackendForUnregister interface {
	Unregister(ctx context.Context, activityName, email, username string) (string, error)
}

// UnregisterInput carries the clicked delete control.
type UnregisterInput struct {
	Activity string
	Email    string
	Session  session.Session
}

// UnregisterDeps holds dependencies for Unregister.
type UnregisterDeps struct {
	Backend BackendForUnregister
	Now     func() time.Time
}

// ExecuteUnregister removes a participant from an activity.
// The admin check here only spares a round trip; the backend enforces authorization on its own.
// PRE: input comes from a rendered delete control
// POST: No backend call is made when the session is anonymous
func ExecuteUnregister(ctx context.Context, input UnregisterInput, deps UnregisterDeps) (ActionResult, error) {
	now := nowOrDefault(deps.Now)

	if !input.Session.IsAuthenticated() {
		slog.Warn("auth_denied", "action", "unregister", "activity", input.Activity, "reason", "no admin session")
		return ActionResult{Message: status.Failure(MsgAdminRequired, now)}, ErrAdminRequired
	}

	msg, err := deps.Backend.Unregister(ctx, input.Activity, input.Email, input.Session.Admin)
	if err != nil {
		logActionFailure("unregister_failed", err, "activity", input.Activity, "email", input.Email, "admin", input.Session.Admin)
		return ActionResult{Message: status.Failure(failureText(err, MsgUnregisterFailed), now)}, err
	}

	slog.Info("signup_event", "event", "unregistered", "activity", input.Activity, "email", input.Email, "admin", input.Session.Admin)
	return ActionResult{Message: status.Success(msg, now)}, nil
}
