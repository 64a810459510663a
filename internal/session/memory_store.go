package session

import (
	"context"
	"sync"
	"time"

	"github.com/ellarises/web/internal/identity/entity"
)

// MemoryStore keeps sessions in a map for single-process development.
// Expired entries are dropped when read and swept on every Create, so
// abandoned sessions do not accumulate.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]Session
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, sessions: map[string]Session{}, now: time.Now}
}

func (m *MemoryStore) Create(ctx context.Context, identity entity.SessionIdentity) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	now := m.now()
	s := Session{ID: id, Identity: identity, CreatedAt: now, ExpiresAt: now.Add(m.ttl)}

	m.mu.Lock()
	for k, old := range m.sessions {
		if old.Expired(now) {
			delete(m.sessions, k)
		}
	}
	m.sessions[id] = s
	m.mu.Unlock()
	return &s, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired(m.now()) {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}
