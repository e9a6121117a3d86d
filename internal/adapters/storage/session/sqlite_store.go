package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"activityboard/internal/adapters/storage"
	domain "activityboard/internal/domain/session"
)

// SQLiteStore implements Store using SQLite, so sessions survive restarts.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new session store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Create inserts a new session for admin.
// PRE: admin is non-empty
// POST: Session row exists under a fresh random token
func (s *SQLiteStore) Create(ctx context.Context, admin string) (domain.Session, error) {
	token, err := generateToken()
	if err != nil {
		return domain.Session{}, err
	}
	sess := domain.Session{Token: token, Admin: admin, CreatedAt: s.now().UTC().Truncate(time.Second)}
	if err := sess.Validate(); err != nil {
		return domain.Session{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO admin_session (token, admin, created_at) VALUES (?, ?, ?)`,
		sess.Token, sess.Admin, sess.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("save admin_session: %w", err)
	}
	return sess, nil
}

// Get retrieves a session by token.
// PRE: none
// POST: Returns domain.ErrNotFound when no row matches
// INVARIANT: Store state is not mutated
func (s *SQLiteStore) Get(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, domain.ErrNotFound
	}
	var sess domain.Session
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT token, admin, created_at FROM admin_session WHERE token = ?`, token,
	).Scan(&sess.Token, &sess.Admin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get admin_session: %w", err)
	}
	sess.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return domain.Session{}, fmt.Errorf("parse admin_session.created_at: %w", err)
	}
	return sess, nil
}

// Delete removes a session row. Deleting an unknown token is not an error.
// POST: No row with token remains
func (s *SQLiteStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_session WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete admin_session: %w", err)
	}
	return nil
}
