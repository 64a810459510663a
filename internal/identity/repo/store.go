// Package repo holds the credential and profile stores used by the identity
// service: a PostgreSQL implementation over sqlx and an in-memory one.
package repo

import (
	"context"
	"errors"

	"github.com/ellarises/web/internal/identity/entity"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// AccountRepository is the credential store. Emails passed in are already normalized.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	// Create inserts a; a second account with the same email yields ErrDuplicate.
	Create(ctx context.Context, a *entity.Account) error
}

// ProfileRepository is the participant profile store.
type ProfileRepository interface {
	GetByAccountID(ctx context.Context, accountID string) (*entity.Profile, error)
	// ListByEmail returns every profile with the email, oldest first.
	ListByEmail(ctx context.Context, email string) ([]entity.Profile, error)
	// ListUnclaimedByEmail returns profiles with the email and no linked account,
	// oldest first. Inside a transaction the rows stay locked until it ends.
	ListUnclaimedByEmail(ctx context.Context, email string) ([]entity.Profile, error)
	Create(ctx context.Context, p *entity.Profile) error
	// Claim links an unclaimed profile to p.AccountID and stores its names.
	// ErrNotFound means the profile is gone or was claimed meanwhile.
	Claim(ctx context.Context, p *entity.Profile) error
}

// Repositories groups the two stores over one handle (pool or transaction).
type Repositories interface {
	Accounts() AccountRepository
	Profiles() ProfileRepository
}

// Store adds a transaction scope on top of Repositories.
type Store interface {
	Repositories
	// WithinTx runs fn against repositories bound to a single transaction. It
	// commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
