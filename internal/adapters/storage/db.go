package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations is the ordered schema history. Append only; never edit a shipped step.
var migrations = []migration{
	{
		version: 1,
		name:    "admin_session",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS admin_session (
				token TEXT PRIMARY KEY,
				admin TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 2,
		name:    "admin_session_by_admin",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_admin_session_admin ON admin_session(admin)`,
		},
	},
	{
		version: 3,
		name:    "audit_event",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS audit_event (
				id TEXT PRIMARY KEY,
				timestamp TEXT NOT NULL,
				action TEXT NOT NULL,
				actor TEXT NOT NULL DEFAULT '',
				activity TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				outcome TEXT NOT NULL,
				detail TEXT NOT NULL DEFAULT '',
				ip_address TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_event_timestamp ON audit_event(timestamp)`,
		},
	},
}

// LatestSchemaVersion returns the version the newest migration brings the database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the currently applied version (0 for a fresh database).
// PRE: db is a valid database connection
// POST: Returns the highest applied migration version
func SchemaVersion(db *sql.DB) (int, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create schema_version: %w", err)
	}
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB applies every pending migration, each in its own transaction.
// PRE: db is a valid database connection
// POST: Schema is at LatestSchemaVersion; already-applied steps are skipped
func MigrateDB(db *sql.DB) error {
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
		slog.Info("schema_migrated", "version", m.version, "name", m.name)
	}
	return nil
}

// Open opens the SQLite database (sessions and audit trail) with WAL mode, foreign keys and a busy timeout, then migrates it.
// PRE: path is a writable file path
// POST: Returns a migrated, pinged *sql.DB
func Open(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
