package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ellarises/web/internal/identity/entity"
)

type cookieClaims struct {
	Identity entity.SessionIdentity `json:"idn"`
	jwt.RegisteredClaims
}

// CookieStore keeps no server-side state: the session id is an HS256 token
// holding the identity. Destroy cannot revoke a token; logout relies on the
// cookie being cleared and on token expiry.
type CookieStore struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCookieStore(secret string, ttl time.Duration) *CookieStore {
	return &CookieStore{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (c *CookieStore) Create(ctx context.Context, identity entity.SessionIdentity) (*Session, error) {
	jti, err := NewID()
	if err != nil {
		return nil, err
	}
	now := c.now()
	exp := now.Add(c.ttl)
	claims := cookieClaims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   identity.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("session: sign: %w", err)
	}
	return &Session{ID: token, Identity: identity, CreatedAt: now, ExpiresAt: exp}, nil
}

func (c *CookieStore) Get(ctx context.Context, id string) (*Session, error) {
	var claims cookieClaims
	_, err := jwt.ParseWithClaims(id, &claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	s := &Session{ID: id, Identity: claims.Identity, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		s.CreatedAt = claims.IssuedAt.Time
	}
	return s, nil
}

func (c *CookieStore) Destroy(ctx context.Context, id string) error { return nil }
