package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"activityboard/internal/adapters/http/middleware"
	auditStore "activityboard/internal/adapters/storage/audit"
	"activityboard/internal/application/orchestrators"
	"activityboard/internal/application/projections"
	"activityboard/internal/domain/audit"
	"activityboard/internal/domain/modal"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err.Error())
	}
}

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func renderTemplate(w http.ResponseWriter, r *http.Request, code int, templateName string, data any) {
	sess := middleware.GetSessionFromContext(r.Context())

	funcMap := template.FuncMap{
		"isLoggedIn":     sess.IsAuthenticated,
		"currentAdmin":   func() string { return sess.Admin },
		"csrfField":      func() template.HTML { return csrf.TemplateField(r) },
		"renderMarkdown": renderMarkdown,
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	buf.WriteTo(w)
}

// statusView is the status banner as rendered; HideInMs drives the CSS fade.
type statusView struct {
	Text     string
	Kind     string
	HideInMs int64
}

// boardPage is the data behind index.html.
type boardPage struct {
	Board    projections.ActivityBoard
	Status   *statusView
	Email    string // signup email prefill
	Activity string // signup selection prefill
	Modal    modal.State
}

// renderBoard fetches activities and renders the full page for the current viewer.
func (s *server) renderBoard(w http.ResponseWriter, r *http.Request, code int, dialog modal.State) {
	sess := middleware.GetSessionFromContext(r.Context())
	board, _ := projections.QueryGetActivityBoard(r.Context(),
		projections.GetActivityBoardQuery{Session: sess},
		projections.GetActivityBoardDeps{Backend: s.backend},
	)

	page := boardPage{Board: board, Modal: dialog}
	now := s.now()
	if f, ok := s.flash.Read(r, now); ok {
		page.Status = &statusView{
			Text:     f.Message.Text,
			Kind:     f.Message.Kind,
			HideInMs: f.Message.Remaining(now).Milliseconds(),
		}
		page.Email = f.Email
		page.Activity = f.Activity
	}
	renderTemplate(w, r, code, "index.html", page)
}

// handleIndex renders the board at GET /. ?login=open shows the login dialog.
func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderBoard(w, r, http.StatusOK, modal.FromQuery(r.URL.Query().Get(modal.QueryParam)))
}

// actionForm is the payload of signup and unregister.
type actionForm struct {
	Email    string `json:"email"`
	Activity string `json:"activity"`
}

func decodeAction(r *http.Request) (actionForm, error) {
	var f actionForm
	if isJSONBody(r) {
		err := strictDecode(r, &f)
		return f, err
	}
	if err := r.ParseForm(); err != nil {
		return f, err
	}
	f.Email = r.PostFormValue("email")
	f.Activity = r.PostFormValue("activity")
	return f, nil
}

// finishAction reports an action result: JSON for API callers, flash and redirect for browsers.
func (s *server) finishAction(w http.ResponseWriter, r *http.Request, res orchestrators.ActionResult, actionErr error, keep Flash) {
	if !isHTMLRequest(r) {
		if actionErr != nil {
			writeJSON(w, orchestrators.StatusCodeFor(actionErr), map[string]string{"detail": res.Message.Text})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": res.Message.Text})
		return
	}

	keep.Message = res.Message
	if err := s.flash.Set(w, keep); err != nil {
		slog.Error("flash_set_failed", "error", err.Error())
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSignup handles POST /signup
func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	form, err := decodeAction(r)
	if err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	res, err := orchestrators.ExecuteSignup(r.Context(), orchestrators.SignupInput{
		Email:    form.Email,
		Activity: form.Activity,
		Session:  middleware.GetSessionFromContext(r.Context()),
	}, orchestrators.SignupDeps{Backend: s.backend, Now: s.now})

	var keep Flash
	if err != nil {
		keep = Flash{Email: form.Email, Activity: form.Activity}
	}
	s.finishAction(w, r, res, err, keep)
}

// handleUnregister handles POST /unregister
func (s *server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	form, err := decodeAction(r)
	if err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	sess := middleware.GetSessionFromContext(r.Context())
	res, err := orchestrators.ExecuteUnregister(r.Context(), orchestrators.UnregisterInput{
		Activity: form.Activity,
		Email:    form.Email,
		Session:  sess,
	}, orchestrators.UnregisterDeps{Backend: s.backend, Now: s.now})

	action := audit.ActionUnregister
	if errors.Is(err, orchestrators.ErrAdminRequired) {
		action = audit.ActionUnregisterDenied
	}
	event := audit.NewEvent(sess.Admin, action, s.now()).WithTarget(form.Activity, form.Email)
	if err != nil {
		event = event.Failed(res.Message.Text)
	}
	s.recordAudit(r, event)

	s.finishAction(w, r, res, err, Flash{})
}

// loginForm is the payload of the login dialog.
type loginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin handles POST /login
func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if isJSONBody(r) {
		if err := strictDecode(r, &form); err != nil {
			http.Error(w, "Invalid login payload", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		form.Username = r.PostFormValue("username")
		form.Password = r.PostFormValue("password")
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Username: form.Username,
		Password: form.Password,
	}, orchestrators.LoginDeps{Backend: s.backend, Sessions: s.sessions})

	if err != nil {
		s.recordAudit(r, audit.NewEvent(form.Username, audit.ActionLoginFailed, s.now()).Failed(result.FailureText))
		code := http.StatusBadGateway
		if errors.Is(err, orchestrators.ErrLoginRejected) {
			code = http.StatusUnauthorized
		}
		if !isHTMLRequest(r) {
			writeJSON(w, code, map[string]any{"success": false, "detail": result.FailureText})
			return
		}
		s.renderBoard(w, r, code, modal.Failed(form.Username, result.FailureText))
		return
	}

	s.recordAudit(r, audit.NewEvent(form.Username, audit.ActionLogin, s.now()))
	middleware.SetSessionCookie(w, result.Session.Token, s.secure)
	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout handles POST /logout
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSessionFromContext(r.Context())
	if err := orchestrators.ExecuteLogout(r.Context(), sess, orchestrators.LogoutDeps{Sessions: s.sessions}); err != nil {
		internalError(w, err)
		return
	}
	if sess.IsAuthenticated() {
		s.recordAudit(r, audit.NewEvent(sess.Admin, audit.ActionLogout, s.now()))
	}

	middleware.ClearSessionCookie(w)
	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// activityJSON is one activity in the JSON listing.
type activityJSON struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	SpotsLeft       int      `json:"spots_left"`
	Participants    []string `json:"participants"`
}

// handleAPIActivities handles GET /api/activities, in backend order.
func (s *server) handleAPIActivities(w http.ResponseWriter, r *http.Request) {
	list, err := s.backend.ListActivities(r.Context())
	if err != nil {
		slog.Error("activities_load_failed", "error", err.Error())
		writeJSON(w, http.StatusBadGateway, map[string]string{"detail": projections.MsgLoadFailed})
		return
	}

	out := make([]activityJSON, 0, len(list))
	for _, a := range list {
		out = append(out, activityJSON{
			Name:            a.Name,
			Description:     a.Description,
			Schedule:        a.Schedule,
			MaxParticipants: a.MaxParticipants,
			SpotsLeft:       a.SpotsLeft(),
			Participants:    a.Participants,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activities":    out,
		"authenticated": middleware.GetSessionFromContext(r.Context()).IsAuthenticated(),
	})
}

// handleAdminPerf handles GET /admin/perf?window=15m
func (s *server) handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		http.Error(w, "performance collection disabled", http.StatusNotFound)
		return
	}
	window := 15 * time.Minute
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			http.Error(w, "window must be a positive duration", http.StatusBadRequest)
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, s.collector.Snapshot(time.Now().Add(-window), 10))
}

// handleAdminAudit handles GET /admin/audit, newest events first.
func (s *server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditLog == nil {
		http.Error(w, "audit trail disabled", http.StatusNotFound)
		return
	}
	events, err := s.auditLog.List(r.Context(), auditStore.DefaultListLimit)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// recordAudit saves an audit event; failures are logged, never shown to the visitor.
func (s *server) recordAudit(r *http.Request, event audit.Event) {
	if s.auditLog == nil {
		return
	}
	event = event.WithRequest(middleware.ClientIP(r))
	if err := s.auditLog.Save(r.Context(), event); err != nil {
		slog.Error("audit_save_failed", "action", string(event.Action), "error", err.Error())
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
