package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellarises/web/internal/identity/entity"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var accountCols = []string{"user_id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}
var profileCols = []string{"participant_id", "participant_email", "participant_first_name", "participant_last_name", "user_id", "created_at", "updated_at"}

func TestAccountRepo_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT .+ FROM user_account WHERE LOWER\(email\) = \$1`).
		WithArgs("amy@x.com").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow("a1", "amy@x.com", "hash", "user", true, now, now))

	a, err := NewAccountRepo(db).GetByEmail(context.Background(), "amy@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, entity.RoleUser, a.Role)
	assert.True(t, a.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM user_account WHERE LOWER\(email\) = \$1`).
		WithArgs("ghost@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := NewAccountRepo(db).GetByEmail(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountRepo_GetByEmail_DBError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM user_account WHERE LOWER\(email\) = \$1`).
		WithArgs("amy@x.com").
		WillReturnError(errors.New("db down"))

	_, err := NewAccountRepo(db).GetByEmail(context.Background(), "amy@x.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "db error: db down")
}

func TestAccountRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO user_account .+ RETURNING created_at, updated_at`).
		WithArgs("a1", "amy@x.com", "hash", "user", true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	a := &entity.Account{ID: "a1", Email: "amy@x.com", PasswordHash: "hash", Role: entity.RoleUser, IsActive: true}
	require.NoError(t, NewAccountRepo(db).Create(context.Background(), a))
	assert.Equal(t, now, a.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Create_UniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`(?s)INSERT INTO user_account`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "user_account_email_lower_idx"})

	err := NewAccountRepo(db).Create(context.Background(), &entity.Account{ID: "a1", Email: "amy@x.com", Role: entity.RoleUser})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorContains(t, err, "user_account_email_lower_idx")
}

func TestProfileRepo_ListUnclaimedByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT .+ FROM participant_info\s+WHERE LOWER\(participant_email\) = \$1 AND user_id IS NULL\s+ORDER BY created_at, participant_id FOR UPDATE`).
		WithArgs("amy@x.com").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("p1", "amy@x.com", "Amy", "", nil, now, now).
			AddRow("p2", "Amy@X.com", "", "", nil, now, now))

	got, err := NewProfileRepo(db).ListUnclaimedByEmail(context.Background(), "amy@x.com")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.True(t, got[0].Unclaimed())
}

func TestProfileRepo_ListByEmail_Empty(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM participant_info\s+WHERE LOWER\(participant_email\) = \$1 ORDER BY`).
		WithArgs("none@x.com").
		WillReturnRows(sqlmock.NewRows(profileCols))

	got, err := NewProfileRepo(db).ListByEmail(context.Background(), "none@x.com")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestProfileRepo_GetByAccountID(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT .+ FROM participant_info WHERE user_id = \$1`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow("p1", "amy@x.com", "Amy", "Lee", "a1", now, now))

	p, err := NewProfileRepo(db).GetByAccountID(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, p.AccountID)
	assert.Equal(t, "a1", *p.AccountID)
}

func TestProfileRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	accountID := "a1"

	mock.ExpectQuery(`(?s)INSERT INTO participant_info .+ RETURNING created_at, updated_at`).
		WithArgs("p1", "amy@x.com", "Amy", "Lee", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	p := &entity.Profile{ID: "p1", Email: "amy@x.com", FirstName: "Amy", LastName: "Lee", AccountID: &accountID}
	require.NoError(t, NewProfileRepo(db).Create(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_Claim(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	accountID := "a1"

	mock.ExpectQuery(`(?s)UPDATE participant_info\s+SET user_id = \$2.+WHERE participant_id = \$1 AND user_id IS NULL`).
		WithArgs("p1", "a1", "Amy", "Lee").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	p := &entity.Profile{ID: "p1", FirstName: "Amy", LastName: "Lee", AccountID: &accountID}
	require.NoError(t, NewProfileRepo(db).Claim(context.Background(), p))
	assert.Equal(t, now, p.UpdatedAt)
}

func TestProfileRepo_Claim_AlreadyClaimed(t *testing.T) {
	db, mock := newMockDB(t)
	accountID := "a1"

	mock.ExpectQuery(`(?s)UPDATE participant_info`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := NewProfileRepo(db).Claim(context.Background(), &entity.Profile{ID: "p1", AccountID: &accountID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithTx_Commit(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE x`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE x")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sqlx.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sqlx.Tx) error {
			panic("kaboom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx *sqlx.Tx) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "no conn")
	assert.False(t, called)
}

func TestPostgresStore_WithinTx_RollsBackAccount(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)INSERT INTO user_account`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(`(?s)INSERT INTO participant_info`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx Repositories) error {
		a := &entity.Account{ID: "a1", Email: "amy@x.com", Role: entity.RoleUser, IsActive: true}
		if err := tx.Accounts().Create(ctx, a); err != nil {
			return err
		}
		return tx.Profiles().Create(ctx, &entity.Profile{ID: "p1", Email: "amy@x.com", AccountID: &a.ID})
	})
	assert.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}
