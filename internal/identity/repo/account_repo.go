package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ellarises/web/internal/identity/entity"
)

const accountColumns = `user_id, email, password_hash, role, is_active, created_at, updated_at`

// AccountRepo provides data access for the user_account table using sqlx.
type AccountRepo struct {
	db sqlx.ExtContext
}

func NewAccountRepo(db sqlx.ExtContext) *AccountRepo { return &AccountRepo{db: db} }

// GetByEmail matches case-insensitively against the lower(email) unique index.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM user_account WHERE LOWER(email) = $1`
	var a entity.Account
	if err := sqlx.GetContext(ctx, r.db, &a, q, email); err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	const q = `INSERT INTO user_account (user_id, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q, a.ID, a.Email, a.PasswordHash, string(a.Role), a.IsActive)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return mapError(err)
	}
	return nil
}
