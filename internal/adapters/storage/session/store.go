package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	domain "activityboard/internal/domain/session"
)

// Store persists administrator sessions keyed by an opaque token.
type Store interface {
	Create(ctx context.Context, admin string) (domain.Session, error)
	Get(ctx context.Context, token string) (domain.Session, error)
	Delete(ctx context.Context, token string) error
}

// generateToken returns 32 random bytes hex-encoded.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
