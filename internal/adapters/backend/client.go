package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/domain/activity"
)

// maxBodyBytes caps how much of a backend response is read.
const maxBodyBytes = 1 << 20

// RequestIDHeader is sent on every outbound call for log correlation.
const RequestIDHeader = "X-Request-ID"

// ErrUnavailable marks transport-level failures: the request never reached the
// backend, or its response could not be read or decoded.
var ErrUnavailable = errors.New("activity backend unavailable")

// APIError is an application-level failure: the backend answered with a non-2xx status.
type APIError struct {
	StatusCode int
	Detail     string // server-supplied detail; empty when the body carried none
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// LoginResult is the decoded body of POST /login.
type LoginResult struct {
	Success bool
	Detail  string
}

// Client calls the activity sign-up backend over HTTP/JSON.
type Client struct {
	baseURL   string
	http      *http.Client
	collector *perf.Collector
}

// NewClient creates a backend client rooted at baseURL.
// PRE: baseURL is an absolute http(s) URL; timeout > 0
// POST: Returns a ready-to-use client; collector may be nil
func NewClient(baseURL string, timeout time.Duration, collector *perf.Collector) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend url %q has no host", baseURL)
	}
	return &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		http:      &http.Client{Timeout: timeout},
		collector: collector,
	}, nil
}

// ListActivities fetches GET /activities.
// PRE: ctx is valid
// POST: Returns activities in backend order, or an *APIError / ErrUnavailable-wrapped error
func (c *Client) ListActivities(ctx context.Context) ([]activity.Activity, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/activities", "GET /activities", nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &APIError{StatusCode: status, Detail: decodeDetail(body)}
	}
	list, err := activity.DecodeCollection(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return list, nil
}

// Signup calls POST /activities/{name}/signup?email=&username=.
// PRE: activityName and email are as entered by the visitor; username may be empty
// POST: Returns the server's success message on 2xx
func (c *Client) Signup(ctx context.Context, activityName, email, username string) (string, error) {
	path := "/activities/" + url.PathEscape(activityName) + "/signup?" + participantQuery(email, username)
	return c.mutate(ctx, http.MethodPost, path, "POST /activities/{name}/signup")
}

// Unregister calls DELETE /activities/{name}/unregister?email=&username=.
// PRE: username is the logged-in administrator
// POST: Returns the server's success message on 2xx
func (c *Client) Unregister(ctx context.Context, activityName, email, username string) (string, error) {
	path := "/activities/" + url.PathEscape(activityName) + "/unregister?" + participantQuery(email, username)
	return c.mutate(ctx, http.MethodDelete, path, "DELETE /activities/{name}/unregister")
}

// Login posts {username, password} as JSON to POST /login.
// A non-2xx response is reported as an unsuccessful LoginResult, not an error.
// PRE: ctx is valid
// POST: Returns an ErrUnavailable-wrapped error only for transport or decode failures
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	payload, err := json.Marshal(struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password})
	if err != nil {
		return LoginResult{}, fmt.Errorf("encode login: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, "/login", "POST /login", payload)
	if err != nil {
		return LoginResult{}, err
	}

	var res struct {
		Success bool            `json:"success"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return LoginResult{}, fmt.Errorf("%w: decode login: %w", ErrUnavailable, err)
	}
	return LoginResult{
		Success: status >= 200 && status <= 299 && res.Success,
		Detail:  rawDetail(res.Detail),
	}, nil
}

func (c *Client) mutate(ctx context.Context, method, path, route string) (string, error) {
	status, body, err := c.do(ctx, method, path, route, nil)
	if err != nil {
		return "", err
	}

	var res struct {
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("%w: decode %s: %w", ErrUnavailable, route, err)
	}
	if status < 200 || status > 299 {
		return "", &APIError{StatusCode: status, Detail: rawDetail(res.Detail)}
	}
	return res.Message, nil
}

// do sends one request and returns status and body. Transport failures wrap ErrUnavailable.
func (c *Client) do(ctx context.Context, method, path, route string, payload []byte) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s: %w", route, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := perf.RequestID(ctx)
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record(route, 0, start, reqID)
		return 0, nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, route, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.record(route, resp.StatusCode, start, reqID)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, route, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) record(route string, status int, start time.Time, reqID string) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	slog.Debug("backend_call",
		"request_id", reqID,
		"route", route,
		"status", status,
		"duration_ms", durationMs,
	)
	if c.collector != nil {
		c.collector.Record(perf.Entry{
			Kind:       perf.KindBackend,
			Path:       route,
			StatusCode: status,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}

func participantQuery(email, username string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("username", username)
	return q.Encode()
}

// decodeDetail pulls a string "detail" out of an error body, if any.
func decodeDetail(body []byte) string {
	var res struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return ""
	}
	return rawDetail(res.Detail)
}

// rawDetail returns detail when it is a JSON string. Structured details
// (validation error lists) are not shown to visitors.
func rawDetail(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
