package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"activityboard/internal/adapters/backend"
	"activityboard/internal/adapters/http/perf"
	auditStore "activityboard/internal/adapters/storage/audit"
	sessionStore "activityboard/internal/adapters/storage/session"
)

// fakeActivity mirrors one backend activity record.
type fakeActivity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// fakeBackend is an in-memory activity backend with call counters.
type fakeBackend struct {
	mu         sync.Mutex
	order      []string
	activities map[string]*fakeActivity
	admins     map[string]string // username -> password
	failList   bool

	listCalls       int
	unregisterCalls int
	signupUsernames []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		order: []string{"Programming Class", "Chess Club", "Gym Class"},
		activities: map[string]*fakeActivity{
			"Chess Club": {
				Description:     "Learn strategies and compete in chess tournaments",
				Schedule:        "Fridays, 3:30 PM - 5:00 PM",
				MaxParticipants: 12,
			},
			"Programming Class": {
				Description:     "Learn programming fundamentals and build **software** projects",
				Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
				MaxParticipants: 20,
				Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
			},
			"Gym Class": {
				Description:     "Physical education and sports activities",
				Schedule:        "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM",
				MaxParticipants: 30,
				Participants:    []string{"john@mergington.edu"},
			},
		},
		admins: map[string]string{"principal": "s3cret"},
	}
}

func (f *fakeBackend) calls() (list, unregister int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.unregisterCalls
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /activities", f.handleList)
	mux.HandleFunc("POST /activities/{name}/signup", f.handleSignup)
	mux.HandleFunc("DELETE /activities/{name}/unregister", f.handleUnregister)
	mux.HandleFunc("POST /login", f.handleLogin)
	return mux
}

func writeBackendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList {
		writeBackendJSON(w, http.StatusInternalServerError, map[string]string{"detail": "database offline"})
		return
	}
	// Written by hand so key order follows f.order.
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range f.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(name)
		val, _ := json.Marshal(f.activities[name])
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

func (f *fakeBackend) handleSignup(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := r.PathValue("name")
	email := r.URL.Query().Get("email")
	f.signupUsernames = append(f.signupUsernames, r.URL.Query().Get("username"))

	a, ok := f.activities[name]
	if !ok {
		writeBackendJSON(w, http.StatusNotFound, map[string]string{"detail": "Activity not found"})
		return
	}
	if slices.Contains(a.Participants, email) {
		writeBackendJSON(w, http.StatusBadRequest, map[string]string{"detail": "Student is already signed up"})
		return
	}
	a.Participants = append(a.Participants, email)
	writeBackendJSON(w, http.StatusOK, map[string]string{"message": "Signed up " + email + " for " + name})
}

func (f *fakeBackend) handleUnregister(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregisterCalls++
	name := r.PathValue("name")
	email := r.URL.Query().Get("email")
	if r.URL.Query().Get("username") == "" {
		writeBackendJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Admin required"})
		return
	}
	a, ok := f.activities[name]
	if !ok {
		writeBackendJSON(w, http.StatusNotFound, map[string]string{"detail": "Activity not found"})
		return
	}
	i := slices.Index(a.Participants, email)
	if i < 0 {
		writeBackendJSON(w, http.StatusBadRequest, map[string]string{"detail": "Student is not signed up for this activity"})
		return
	}
	a.Participants = slices.Delete(a.Participants, i, i+1)
	writeBackendJSON(w, http.StatusOK, map[string]string{"message": "Unregistered " + email + " from " + name})
}

func (f *fakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeBackendJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad payload"})
		return
	}
	f.mu.Lock()
	want, ok := f.admins[creds.Username]
	f.mu.Unlock()
	if !ok || want != creds.Password {
		writeBackendJSON(w, http.StatusOK, map[string]any{"success": false, "detail": "Invalid credentials"})
		return
	}
	writeBackendJSON(w, http.StatusOK, map[string]any{"success": true})
}

// testClock is a settable clock shared by the server and the test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv is a running board server in front of a fake backend.
type testEnv struct {
	backend   *fakeBackend
	sessions  *sessionStore.MemoryStore
	audit     *auditStore.MemoryStore
	collector *perf.Collector
	clock     *testClock
	server    *httptest.Server
}

// newTestEnv starts the board against backendURL, or against a fresh fake backend when empty.
func newTestEnv(t *testing.T, backendURL string) *testEnv {
	t.Helper()
	env := &testEnv{
		sessions:  sessionStore.NewMemoryStore(),
		audit:     auditStore.NewMemoryStore(),
		collector: perf.NewCollector(1000),
		clock:     &testClock{now: time.Now()},
	}
	if backendURL == "" {
		env.backend = newFakeBackend()
		api := httptest.NewServer(env.backend.handler())
		t.Cleanup(api.Close)
		backendURL = api.URL
	}

	client, err := backend.NewClient(backendURL, 2*time.Second, env.collector)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	handler := NewMux(ctx, Deps{
		Backend:   client,
		Sessions:  env.sessions,
		Audit:     env.audit,
		Collector: env.collector,
		CSRFKey:   []byte(strings.Repeat("c", 32)),
		FlashKey:  []byte(strings.Repeat("f", 32)),
		RateLimit: 1000,
		Now:       env.clock.Now,
	})
	env.server = httptest.NewServer(handler)
	t.Cleanup(env.server.Close)
	return env
}

// browser is an HTML client with its own cookie jar.
type browser struct {
	t      *testing.T
	env    *testEnv
	client *http.Client
}

func (env *testEnv) newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, env: env, client: &http.Client{Jar: jar}}
}

func (b *browser) do(req *http.Request) (*http.Response, *goquery.Document) {
	b.t.Helper()
	req.Header.Set("Accept", "text/html")
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		b.t.Fatalf("parse %s: %v", req.URL.Path, err)
	}
	return resp, doc
}

// get loads a page.
func (b *browser) get(path string) (*http.Response, *goquery.Document) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.env.server.URL+path, nil)
	if err != nil {
		b.t.Fatalf("NewRequest: %v", err)
	}
	return b.do(req)
}

// token loads the board and returns the CSRF token of its forms.
func (b *browser) token() string {
	b.t.Helper()
	_, page := b.get("/")
	token, ok := page.Find(`#signup-form input[name="gorilla.csrf.Token"]`).Attr("value")
	if !ok || token == "" {
		b.t.Fatal("board page has no CSRF token")
	}
	return token
}

// post sends a form with token and follows the redirect.
func (b *browser) post(path, token string, form url.Values) (*http.Response, *goquery.Document) {
	b.t.Helper()
	form.Set("gorilla.csrf.Token", token)
	req, err := http.NewRequest(http.MethodPost, b.env.server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		b.t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// submit fetches a fresh token and posts the form.
func (b *browser) submit(path string, form url.Values) (*http.Response, *goquery.Document) {
	b.t.Helper()
	return b.post(path, b.token(), form)
}

// login submits the dialog with the fake backend's admin account.
func (b *browser) login() *goquery.Document {
	b.t.Helper()
	_, doc := b.submit("/login", url.Values{"username": {"principal"}, "password": {"s3cret"}})
	return doc
}

// postJSON sends a JSON API request without a browser session.
func postJSON(t *testing.T, env *testEnv, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(env.server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, out
}
