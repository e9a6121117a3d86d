package audit

import (
	"context"
	"slices"
	"sync"

	domain "activityboard/internal/domain/audit"
)

// memoryCap bounds the in-memory trail; older events are dropped.
const memoryCap = 1000

// MemoryStore keeps the newest audit events in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	events []domain.Event
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends event, dropping the oldest once full.
func (m *MemoryStore) Save(_ context.Context, event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	if len(m.events) > memoryCap {
		m.events = slices.Delete(m.events, 0, len(m.events)-memoryCap)
	}
	return nil
}

// List returns up to limit events, newest first.
func (m *MemoryStore) List(_ context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(limit, len(m.events))
	out := make([]domain.Event, 0, n)
	for i := len(m.events) - 1; i >= len(m.events)-n; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}
