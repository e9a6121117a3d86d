package session

import (
	"context"
	"sync"
	"time"

	domain "activityboard/internal/domain/session"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]domain.Session),
		now:      time.Now,
	}
}

// Create stores a new session for admin and returns it with its token.
// PRE: admin is non-empty
// POST: Session is stored under a fresh random token
func (m *MemoryStore) Create(_ context.Context, admin string) (domain.Session, error) {
	token, err := generateToken()
	if err != nil {
		return domain.Session{}, err
	}
	s := domain.Session{Token: token, Admin: admin, CreatedAt: m.now().UTC()}
	if err := s.Validate(); err != nil {
		return domain.Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = s
	return s, nil
}

// Get retrieves a session by token.
// PRE: none
// POST: Returns domain.ErrNotFound for unknown or empty tokens
// INVARIANT: Store state is not mutated
func (m *MemoryStore) Get(_ context.Context, token string) (domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
// POST: Session with given token is removed
func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}
