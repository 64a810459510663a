package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ellarises/web/internal/identity/entity"
)

const profileColumns = `participant_id, participant_email, participant_first_name, participant_last_name, user_id, created_at, updated_at`

// ProfileRepo provides data access for the participant_info table using sqlx.
type ProfileRepo struct {
	db sqlx.ExtContext
}

func NewProfileRepo(db sqlx.ExtContext) *ProfileRepo { return &ProfileRepo{db: db} }

func (r *ProfileRepo) GetByAccountID(ctx context.Context, accountID string) (*entity.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM participant_info WHERE user_id = $1`
	var p entity.Profile
	if err := sqlx.GetContext(ctx, r.db, &p, q, accountID); err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (r *ProfileRepo) ListByEmail(ctx context.Context, email string) ([]entity.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM participant_info
		WHERE LOWER(participant_email) = $1 ORDER BY created_at, participant_id`
	out := []entity.Profile{}
	if err := sqlx.SelectContext(ctx, r.db, &out, q, email); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (r *ProfileRepo) ListUnclaimedByEmail(ctx context.Context, email string) ([]entity.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM participant_info
		WHERE LOWER(participant_email) = $1 AND user_id IS NULL
		ORDER BY created_at, participant_id FOR UPDATE`
	out := []entity.Profile{}
	if err := sqlx.SelectContext(ctx, r.db, &out, q, email); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (r *ProfileRepo) Create(ctx context.Context, p *entity.Profile) error {
	const q = `INSERT INTO participant_info (participant_id, participant_email, participant_first_name, participant_last_name, user_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q, p.ID, p.Email, p.FirstName, p.LastName, p.AccountID)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *ProfileRepo) Claim(ctx context.Context, p *entity.Profile) error {
	const q = `UPDATE participant_info
		SET user_id = $2, participant_first_name = $3, participant_last_name = $4, updated_at = NOW()
		WHERE participant_id = $1 AND user_id IS NULL
		RETURNING updated_at`
	row := r.db.QueryRowxContext(ctx, q, p.ID, p.AccountID, p.FirstName, p.LastName)
	if err := row.Scan(&p.UpdatedAt); err != nil {
		return mapError(err)
	}
	return nil
}
