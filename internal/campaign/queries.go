package campaign

import (
	"context"

	"unidata/survey-platform-backend/internal/survey"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const createCampaign = `
INSERT INTO campaigns (title, questions, target_states, target_genders, target_age_ranges, reward, researcher_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, title, questions, target_states, target_genders, target_age_ranges, reward, researcher_id, created_at
`

type CreateParams struct {
	Title           string
	Questions       []survey.Question
	TargetStates    []string
	TargetGenders   []string
	TargetAgeRanges []string
	Reward          int32
	ResearcherID    uuid.UUID
}

func (q *Queries) Create(ctx context.Context, arg CreateParams) (Campaign, error) {
	row := q.db.QueryRow(ctx, createCampaign,
		arg.Title,
		arg.Questions,
		arg.TargetStates,
		arg.TargetGenders,
		arg.TargetAgeRanges,
		arg.Reward,
		arg.ResearcherID,
	)
	var i Campaign
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Questions,
		&i.TargetStates,
		&i.TargetGenders,
		&i.TargetAgeRanges,
		&i.Reward,
		&i.ResearcherID,
		&i.CreatedAt,
	)
	return i, err
}

const listCampaigns = `
SELECT id, title, questions, target_states, target_genders, target_age_ranges, reward, researcher_id, created_at
FROM campaigns
ORDER BY created_at DESC
`

func (q *Queries) List(ctx context.Context) ([]Campaign, error) {
	rows, err := q.db.Query(ctx, listCampaigns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Campaign
	for rows.Next() {
		var i Campaign
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.Questions,
			&i.TargetStates,
			&i.TargetGenders,
			&i.TargetAgeRanges,
			&i.Reward,
			&i.ResearcherID,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCampaignByID = `
SELECT id, title, questions, target_states, target_genders, target_age_ranges, reward, researcher_id, created_at
FROM campaigns
WHERE id = $1
`

func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (Campaign, error) {
	row := q.db.QueryRow(ctx, getCampaignByID, id)
	var i Campaign
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Questions,
		&i.TargetStates,
		&i.TargetGenders,
		&i.TargetAgeRanges,
		&i.Reward,
		&i.ResearcherID,
		&i.CreatedAt,
	)
	return i, err
}
