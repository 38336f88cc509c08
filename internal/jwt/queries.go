package jwt

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type RefreshToken struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	IsActive       bool
	ExpirationDate pgtype.Timestamptz
	CreatedAt      pgtype.Timestamptz
}

const createRefreshToken = `
INSERT INTO refresh_tokens (user_id, expiration_date)
VALUES ($1, $2)
RETURNING id, user_id, is_active, expiration_date, created_at
`

type CreateParams struct {
	UserID         uuid.UUID
	ExpirationDate pgtype.Timestamptz
}

func (q *Queries) Create(ctx context.Context, arg CreateParams) (RefreshToken, error) {
	row := q.db.QueryRow(ctx, createRefreshToken, arg.UserID, arg.ExpirationDate)
	var i RefreshToken
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.IsActive,
		&i.ExpirationDate,
		&i.CreatedAt,
	)
	return i, err
}

const getUserIDByTokenID = `
SELECT user_id FROM refresh_tokens
WHERE id = $1 AND is_active AND expiration_date > now()
`

func (q *Queries) GetUserIDByTokenID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, getUserIDByTokenID, id)
	var userID uuid.UUID
	err := row.Scan(&userID)
	return userID, err
}

const inactivateRefreshToken = `
UPDATE refresh_tokens SET is_active = false WHERE id = $1
`

func (q *Queries) Inactivate(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, inactivateRefreshToken, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteExpiredRefreshTokens = `
DELETE FROM refresh_tokens WHERE expiration_date <= now()
`

func (q *Queries) Delete(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteExpiredRefreshTokens)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
