package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"activityboard/internal/adapters/backend"
	"activityboard/internal/domain/session"
)

// mockBackend records calls and returns canned responses.
type mockBackend struct {
	message string
	err     error
	login   backend.LoginResult

	calls    int
	activity string
	email    string
	username string
}

// Signup implements BackendForSignup.
func (m *mockBackend) Signup(_ context.Context, activityName, email, username string) (string, error) {
	m.calls++
	m.activity, m.email, m.username = activityName, email, username
	return m.message, m.err
}

// Unregister implements BackendForUnregister.
func (m *mockBackend) Unregister(_ context.Context, activityName, email, username string) (string, error) {
	m.calls++
	m.activity, m.email, m.username = activityName, email, username
	return m.message, m.err
}

// Login implements BackendForLogin.
func (m *mockBackend) Login(_ context.Context, username, _ string) (backend.LoginResult, error) {
	m.calls++
	m.username = username
	return m.login, m.err
}

// mockSessions is an in-memory session store for testing.
type mockSessions struct {
	sessions  map[string]session.Session
	createErr error
	next      int
}

func newMockSessions() *mockSessions {
	return &mockSessions{sessions: make(map[string]session.Session)}
}

// Create implements SessionCreator.
func (m *mockSessions) Create(_ context.Context, admin string) (session.Session, error) {
	if m.createErr != nil {
		return session.Session{}, m.createErr
	}
	m.next++
	s := session.Session{Token: fmt.Sprintf("tok-%d", m.next), Admin: admin, CreatedAt: fixedTime}
	m.sessions[s.Token] = s
	return s, nil
}

// Delete implements SessionDeleter.
func (m *mockSessions) Delete(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

var errConnRefused = fmt.Errorf("%w: dial tcp: connection refused", backend.ErrUnavailable)

var adminSession = session.Session{Token: "tok-admin", Admin: "principal", CreatedAt: fixedTime}

var errStore = errors.New("disk full")
