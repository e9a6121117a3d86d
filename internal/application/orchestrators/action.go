package orchestrators

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"activityboard/internal/adapters/backend"
	"activityboard/internal/domain/status"
)

// MsgGenericError is shown when the backend rejects an action without a detail.
const MsgGenericError = "An error occurred"

// ActionResult carries the status message produced by a signup or unregister.
// Message is always set, on success and on failure.
type ActionResult struct {
	Message status.Message
}

// Succeeded reports whether the action completed.
func (r ActionResult) Succeeded() bool {
	return r.Message.Kind == status.KindSuccess
}

// failureText maps a backend error to what the visitor sees.
// Application errors show the server detail (or MsgGenericError); transport errors show transportMsg.
func failureText(err error, transportMsg string) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return MsgGenericError
	}
	return transportMsg
}

// StatusCodeFor picks the HTTP status a JSON caller should see for an action error.
// PRE: err is non-nil
// POST: Returns the backend status for APIError, 401 for the admin guard, 502 otherwise
func StatusCodeFor(err error) int {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, ErrAdminRequired):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func logActionFailure(event string, err error, attrs ...any) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		slog.Info(event, append(attrs, "status", apiErr.StatusCode, "detail", apiErr.Detail)...)
		return
	}
	slog.Error(event, append(attrs, "error", err.Error())...)
}

func nowOrDefault(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
