package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activityboard/internal/adapters/backend"
	web "activityboard/internal/adapters/http"
	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/adapters/storage"
	auditStore "activityboard/internal/adapters/storage/audit"
	sessionStore "activityboard/internal/adapters/storage/session"
	"activityboard/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := perf.NewCollector(perf.DefaultRingSize)

	stores, err := openStores(cfg, collector)
	if err != nil {
		return err
	}
	defer stores.close()

	client, err := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, collector)
	if err != nil {
		return err
	}

	mux := web.NewMux(ctx, web.Deps{
		Backend:        client,
		Sessions:       stores.sessions,
		Audit:          stores.audit,
		Collector:      collector,
		CSRFKey:        cfg.CSRFKey,
		FlashKey:       cfg.FlashKey,
		TrustedOrigins: cfg.TrustedOrigins,
		SecureCookies:  cfg.IsProduction(),
		RateLimit:      cfg.RateLimit,
		SlowRequestMs:  cfg.SlowRequestMs,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Activity board %s starting on %s (env=%s, backend=%s, sessions=%s)", version, cfg.Addr, cfg.Env, cfg.BackendURL, cfg.SessionDB)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_shutdown", "reason", "signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// stores holds the persistence the board runs on.
type stores struct {
	sessions sessionStore.Store
	audit    auditStore.Store
	close    func()
}

// openStores picks the session and audit stores: SQLite behind timing instrumentation, or memory.
func openStores(cfg config.Config, collector *perf.Collector) (stores, error) {
	if cfg.InMemorySessions() {
		log.Println("WARNING: using in-memory admin sessions and audit trail (both lost on restart)")
		return stores{
			sessions: sessionStore.NewMemoryStore(),
			audit:    auditStore.NewMemoryStore(),
			close:    func() {},
		}, nil
	}

	db, err := storage.Open(cfg.SessionDB)
	if err != nil {
		return stores{}, err
	}
	log.Printf("Session database %s ready (schema=%d)", cfg.SessionDB, storage.LatestSchemaVersion())

	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)
	return stores{
		sessions: sessionStore.NewSQLiteStore(timedDB),
		audit:    auditStore.NewSQLiteStore(timedDB),
		close:    func() { timedDB.Close() },
	}, nil
}
