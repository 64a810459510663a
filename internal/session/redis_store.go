package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ellarises/web/internal/identity/entity"
)

// RedisStore saves each session as JSON under "session:<id>" with the session
// TTL as key expiry.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "session:", ttl: ttl, now: time.Now}
}

func (r *RedisStore) key(id string) string { return r.prefix + id }

func (r *RedisStore) Create(ctx context.Context, identity entity.SessionIdentity) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	now := r.now()
	s := Session{ID: id, Identity: identity, CreatedAt: now, ExpiresAt: now.Add(r.ttl)}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("session: marshal: %w", err)
	}
	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("session: redis set: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	if s.Expired(r.now()) {
		_ = r.client.Del(ctx, r.key(id)).Err()
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *RedisStore) Destroy(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}
