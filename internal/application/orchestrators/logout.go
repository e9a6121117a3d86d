package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"activityboard/internal/domain/session"
)

// SessionDeleter removes an administrator session.
type SessionDeleter interface {
	Delete(ctx context.Context, token string) error
}

// LogoutDeps holds dependencies for Logout.
type LogoutDeps struct {
	Sessions SessionDeleter
}

// ExecuteLogout ends the current session. Logging out while anonymous is a no-op.
// PRE: sess is the current browser session
// POST: The session token no longer resolves
func ExecuteLogout(ctx context.Context, sess session.Session, deps LogoutDeps) error {
	if sess.Token == "" {
		return nil
	}
	if err := deps.Sessions.Delete(ctx, sess.Token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	slog.Info("auth_event", "event", "logout", "username", sess.Admin)
	return nil
}
