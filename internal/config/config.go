package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// EnvProduction enables secure cookies and requires explicit secrets.
	EnvProduction = "production"
	// SessionDBMemory keeps admin sessions in process memory instead of SQLite.
	SessionDBMemory = "memory"
)

// Config is the server configuration, read from ACTIVITYBOARD_* environment variables.
type Config struct {
	Env            string        `env:"ACTIVITYBOARD_ENV" envDefault:"development"`
	Addr           string        `env:"ACTIVITYBOARD_ADDR" envDefault:":8080"`
	BackendURL     string        `env:"ACTIVITYBOARD_BACKEND_URL" envDefault:"http://localhost:8000"`
	BackendTimeout time.Duration `env:"ACTIVITYBOARD_BACKEND_TIMEOUT" envDefault:"10s"`
	SessionDB      string        `env:"ACTIVITYBOARD_SESSION_DB" envDefault:"activityboard.db"`
	CSRFKeyHex     string        `env:"ACTIVITYBOARD_CSRF_KEY"`
	FlashKeyHex    string        `env:"ACTIVITYBOARD_FLASH_KEY"`
	TrustedOrigins []string      `env:"ACTIVITYBOARD_TRUSTED_ORIGINS" envSeparator:"," envDefault:"localhost:8080,127.0.0.1:8080"`
	LogLevel       string        `env:"ACTIVITYBOARD_LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"ACTIVITYBOARD_LOG_FORMAT" envDefault:"text"`
	RateLimit      int           `env:"ACTIVITYBOARD_RATE_LIMIT" envDefault:"10"`
	SlowRequestMs  int           `env:"ACTIVITYBOARD_SLOW_REQUEST_MS" envDefault:"200"`
	SlowQueryMs    int           `env:"ACTIVITYBOARD_SLOW_QUERY_MS" envDefault:"50"`

	// Decoded secrets, filled by Load.
	CSRFKey  []byte `env:"-"`
	FlashKey []byte `env:"-"`
}

var ErrMissingSecret = errors.New("secret is required in production")

// Load parses the environment and resolves secrets.
// PRE: none
// POST: Returns a validated Config; development gets random per-process keys when unset
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom is Load with an explicit environment map (nil uses the process environment).
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	var err error
	if cfg.CSRFKey, err = cfg.secret("ACTIVITYBOARD_CSRF_KEY", cfg.CSRFKeyHex); err != nil {
		return Config{}, err
	}
	if cfg.FlashKey, err = cfg.secret("ACTIVITYBOARD_FLASH_KEY", cfg.FlashKeyHex); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// InMemorySessions reports whether admin sessions skip the SQLite store.
func (c Config) InMemorySessions() bool {
	return c.SessionDB == SessionDBMemory
}

// SlogLevel maps LogLevel to a slog.Level (unknown values fall back to info).
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) validate() error {
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("ACTIVITYBOARD_BACKEND_TIMEOUT must be positive, got %s", c.BackendTimeout)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("ACTIVITYBOARD_RATE_LIMIT must be positive, got %d", c.RateLimit)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("ACTIVITYBOARD_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// secret decodes a 32-byte hex key. Production requires it; development generates a random one.
func (c Config) secret(name, keyHex string) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("%s must be 64 hex characters (32 bytes)", name)
		}
		return key, nil
	}
	if c.IsProduction() {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingSecret)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate %s: %w", name, err)
	}
	slog.Warn("random_secret", "name", name, "note", "sessions and messages won't survive restart")
	return key, nil
}
