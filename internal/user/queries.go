package user

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

const createUser = `
INSERT INTO users (email, name, role, state, gender, age_range, university, course, education_level, employment_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, email, name, role, state, gender, age_range, university, course, education_level, employment_status, created_at, updated_at
`

type CreateParams struct {
	Email            string
	Name             pgtype.Text
	Role             string
	State            pgtype.Text
	Gender           pgtype.Text
	AgeRange         pgtype.Text
	University       pgtype.Text
	Course           pgtype.Text
	EducationLevel   pgtype.Text
	EmploymentStatus pgtype.Text
}

func (q *Queries) Create(ctx context.Context, arg CreateParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Email,
		arg.Name,
		arg.Role,
		arg.State,
		arg.Gender,
		arg.AgeRange,
		arg.University,
		arg.Course,
		arg.EducationLevel,
		arg.EmploymentStatus,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.Role,
		&i.State,
		&i.Gender,
		&i.AgeRange,
		&i.University,
		&i.Course,
		&i.EducationLevel,
		&i.EmploymentStatus,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByID = `
SELECT id, email, name, role, state, gender, age_range, university, course, education_level, employment_status, created_at, updated_at
FROM users
WHERE id = $1
`

func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.Role,
		&i.State,
		&i.Gender,
		&i.AgeRange,
		&i.University,
		&i.Course,
		&i.EducationLevel,
		&i.EmploymentStatus,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByEmail = `
SELECT id, email, name, role, state, gender, age_range, university, course, education_level, employment_status, created_at, updated_at
FROM users
WHERE email = $1
`

func (q *Queries) GetByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.Role,
		&i.State,
		&i.Gender,
		&i.AgeRange,
		&i.University,
		&i.Course,
		&i.EducationLevel,
		&i.EmploymentStatus,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const existsUserByID = `
SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
`

func (q *Queries) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	row := q.db.QueryRow(ctx, existsUserByID, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}
