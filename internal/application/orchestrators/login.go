package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"activityboard/internal/adapters/backend"
	"activityboard/internal/domain/session"
)

const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgLoginFailed        = "Login failed. Please try again."
)

var (
	ErrLoginRejected = errors.New("login rejected")
	ErrLoginFailed   = errors.New("login failed")
)

// BackendForLogin defines the backend call needed by Login.
type BackendForLogin interface {
	Login(ctx context.Context, username, password string) (backend.LoginResult, error)
}

// SessionCreator persists a new administrator session.
type SessionCreator interface {
	Create(ctx context.Context, admin string) (session.Session, error)
}

// LoginInput carries the submitted login dialog.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult carries the outcome of a login attempt.
// On failure Session is zero and FailureText is what the dialog shows.
type LoginResult struct {
	Session     session.Session
	FailureText string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Backend  BackendForLogin
	Sessions SessionCreator
}

// ExecuteLogin checks credentials against the backend and opens a session on success.
// PRE: input comes from the login dialog
// POST: A session exists for input.Username only when the backend answered success;
// on any failure no session state changes
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	res, err := deps.Backend.Login(ctx, input.Username, input.Password)
	if err != nil {
		slog.Error("auth_event", "event", "login_failed", "username", input.Username, "reason", "backend_unavailable", "error", err.Error())
		return LoginResult{FailureText: MsgLoginFailed}, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if !res.Success {
		slog.Info("auth_event", "event", "login_failed", "username", input.Username, "reason", "rejected")
		text := res.Detail
		if text == "" {
			text = MsgInvalidCredentials
		}
		return LoginResult{FailureText: text}, ErrLoginRejected
	}

	sess, err := deps.Sessions.Create(ctx, input.Username)
	if err != nil {
		slog.Error("auth_event", "event", "login_failed", "username", input.Username, "reason", "session_store", "error", err.Error())
		return LoginResult{FailureText: MsgLoginFailed}, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	slog.Info("auth_event", "event", "login_success", "username", input.Username)
	return LoginResult{Session: sess}, nil
}
