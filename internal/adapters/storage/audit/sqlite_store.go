package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"activityboard/internal/adapters/storage"
	domain "activityboard/internal/domain/audit"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
// PRE: event is valid
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (id, timestamp, action, actor, activity, email, outcome, detail, ip_address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC().Format(dateLayout), string(event.Action), event.Actor,
		event.Activity, event.Email, event.Outcome, event.Detail, event.IPAddress)
	if err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	return nil
}

// List returns the newest events first.
// POST: Returns at most limit events ordered by timestamp desc; limit <= 0 selects DefaultListLimit
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, action, actor, activity, email, outcome, detail, ip_address
		 FROM audit_event ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// scanEvents scans multiple rows into a slice of Events.
func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	events := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		var timestamp, action string
		if err := rows.Scan(&e.ID, &timestamp, &action, &e.Actor, &e.Activity, &e.Email, &e.Outcome, &e.Detail, &e.IPAddress); err != nil {
			return nil, err
		}
		e.Action = domain.Action(action)
		e.Timestamp, _ = time.Parse(dateLayout, timestamp)
		events = append(events, e)
	}
	return events, rows.Err()
}
