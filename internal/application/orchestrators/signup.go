package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"activityboard/internal/domain/session"
	"activityboard/internal/domain/status"
)

// MsgSignupFailed is shown when the signup request never completed.
const MsgSignupFailed = "Failed to sign up. Please try again."

// BackendForSignup defines the backend call needed by Signup.
type BackendForSignup interface {
	Signup(ctx context.Context, activityName, email, username string) (string, error)
}

// SignupInput carries the submitted signup form.
type SignupInput struct {
	Email    string
	Activity string
	Session  session.Session // current browser session; anonymous when not logged in
}

// SignupDeps holds dependencies for Signup.
type SignupDeps struct {
	Backend BackendForSignup
	Now     func() time.Time
}

// ExecuteSignup signs email up for an activity.
// The administrator identity is always forwarded, empty for anonymous visitors; the backend decides what it means.
// PRE: input comes from the signup form
// POST: Result.Message holds the server message on success, or the error text; err is non-nil on failure
func ExecuteSignup(ctx context.Context, input SignupInput, deps SignupDeps) (ActionResult, error) {
	now := nowOrDefault(deps.Now)

	msg, err := deps.Backend.Signup(ctx, input.Activity, input.Email, input.Session.Admin)
	if err != nil {
		logActionFailure("signup_failed", err, "activity", input.Activity, "email", input.Email)
		return ActionResult{Message: status.Failure(failureText(err, MsgSignupFailed), now)}, err
	}

	slog.Info("signup_event", "event", "signed_up", "activity", input.Activity, "email", input.Email, "by_admin", input.Session.IsAuthenticated())
	return ActionResult{Message: status.Success(msg, now)}, nil
}
