package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"activityboard/internal/adapters/http/middleware"
	"activityboard/internal/adapters/http/perf"
	auditStore "activityboard/internal/adapters/storage/audit"
	sessionStore "activityboard/internal/adapters/storage/session"
	"activityboard/internal/application/orchestrators"
	"activityboard/internal/application/projections"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Backend is everything the board needs from the activity backend.
type Backend interface {
	projections.ActivityLister
	orchestrators.BackendForSignup
	orchestrators.BackendForUnregister
	orchestrators.BackendForLogin
}

// Deps holds the server's collaborators and settings.
type Deps struct {
	Backend   Backend
	Sessions  sessionStore.Store
	Audit     auditStore.Store // optional
	Collector *perf.Collector  // optional

	CSRFKey        []byte // 32 bytes
	FlashKey       []byte // 32 bytes
	TrustedOrigins []string
	SecureCookies  bool // production: HTTPS-only cookies
	RateLimit      int  // state-changing requests per second per IP
	SlowRequestMs  int

	Now func() time.Time // defaults to time.Now
}

// server carries per-process state shared by all handlers.
type server struct {
	backend   Backend
	sessions  sessionStore.Store
	auditLog  auditStore.Store
	collector *perf.Collector
	flash     *FlashCodec
	secure    bool
	now       func() time.Time
}

// NewMux wires HTTP handlers for the activity board.
// PRE: deps.Backend and deps.Sessions are non-nil; keys are 32 bytes
// POST: Returns the full middleware-wrapped handler; background sweeps stop when ctx is done
func NewMux(ctx context.Context, deps Deps) http.Handler {
	s := &server{
		backend:   deps.Backend,
		sessions:  deps.Sessions,
		auditLog:  deps.Audit,
		collector: deps.Collector,
		flash:     NewFlashCodec(deps.FlashKey, deps.SecureCookies),
		secure:    deps.SecureCookies,
		now:       deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	rate := deps.RateLimit
	if rate <= 0 {
		rate = 10
	}
	limiter := middleware.NewRateLimiter(ctx, rate, time.Second)

	// Outermost last: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(middleware.CSRFOptions{
			Key:            deps.CSRFKey,
			Secure:         deps.SecureCookies,
			TrustedOrigins: deps.TrustedOrigins,
		}),
		middleware.Auth(deps.Sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(deps.Collector, deps.SlowRequestMs),
	)
}

func (s *server) registerRoutes(mux *http.ServeMux) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded at build time
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /unregister", s.handleUnregister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /api/activities", s.handleAPIActivities)
	mux.Handle("GET /admin/perf", middleware.RequireAdmin(http.HandlerFunc(s.handleAdminPerf)))
	mux.Handle("GET /admin/audit", middleware.RequireAdmin(http.HandlerFunc(s.handleAdminAudit)))
	mux.HandleFunc("GET /healthz", handleHealthz)
}
