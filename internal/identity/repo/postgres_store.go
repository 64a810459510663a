package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type sqlRepositories struct {
	accounts *AccountRepo
	profiles *ProfileRepo
}

func newSQLRepositories(db sqlx.ExtContext) sqlRepositories {
	return sqlRepositories{accounts: NewAccountRepo(db), profiles: NewProfileRepo(db)}
}

func (r sqlRepositories) Accounts() AccountRepository { return r.accounts }
func (r sqlRepositories) Profiles() ProfileRepository { return r.profiles }

// PostgresStore binds the repositories to a pool and opens transactions on it.
type PostgresStore struct {
	sqlRepositories
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{sqlRepositories: newSQLRepositories(db), db: db}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, newSQLRepositories(tx))
	})
}
