// Package session binds a SessionIdentity to an opaque id carried in the
// er_session cookie. Backends: Redis, process memory, or a signed cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/ellarises/web/internal/identity/entity"
)

// ErrNotFound is returned by Get for unknown, expired or tampered sessions.
var ErrNotFound = errors.New("session not found")

// Session is one authenticated browser session.
type Session struct {
	ID        string                 `json:"id"`
	Identity  entity.SessionIdentity `json:"identity"`
	CreatedAt time.Time              `json:"createdAt"`
	ExpiresAt time.Time              `json:"expiresAt"`
}

func (s *Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, identity entity.SessionIdentity) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Destroy(ctx context.Context, id string) error
}

// NewID returns 32 random bytes, base64url encoded.
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
