package audit

import (
	"context"

	domain "activityboard/internal/domain/audit"
)

// DefaultListLimit is how many events the admin endpoint returns.
const DefaultListLimit = 100

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	// PRE: event is valid
	// POST: Event is persisted
	Save(ctx context.Context, event domain.Event) error

	// List returns the newest events first.
	// PRE: limit > 0
	List(ctx context.Context, limit int) ([]domain.Event, error)
}
