package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"activityboard/internal/domain/session"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "admin_session"

// SessionCookieMaxAge keeps the admin token for a year; sessions have no server-side expiry.
const SessionCookieMaxAge = 365 * 24 * 60 * 60

// SessionLookup resolves a session token to a stored admin session.
type SessionLookup interface {
	Get(ctx context.Context, token string) (session.Session, error)
}

// Auth returns middleware that restores the admin session from the currentAdmin cookie.
// It does NOT block anonymous requests; handlers check IsAuthenticated where it matters.
// POST: context carries the session when the cookie maps to a stored token
func Auth(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.StorageKey)
			if err == nil && cookie.Value != "" {
				sess, err := sessions.Get(r.Context(), cookie.Value)
				switch {
				case err == nil:
					r = r.WithContext(ContextWithSession(r.Context(), sess))
				case errors.Is(err, session.ErrNotFound):
					// Stale token from a restarted in-memory store.
					ClearSessionCookie(w)
				default:
					slog.Error("session_lookup_failed", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin blocks requests without an admin session.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetSessionFromContext(r.Context()).IsAuthenticated() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext extracts the session from the request context.
// POST: Returns the zero Session when the request is anonymous
func GetSessionFromContext(ctx context.Context) session.Session {
	sess, _ := ctx.Value(sessionContextKey).(session.Session)
	return sess
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie stores the admin token in the currentAdmin cookie.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.StorageKey,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   SessionCookieMaxAge,
	})
}

// ClearSessionCookie removes the currentAdmin cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.StorageKey,
		Value:    "",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
