package campaign

import (
	"unidata/survey-platform-backend/internal/survey"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Campaign is a deployed survey with its targeting sets. An empty target set
// means the dimension is unrestricted.
type Campaign struct {
	ID              uuid.UUID
	Title           string
	Questions       []survey.Question
	TargetStates    []string
	TargetGenders   []string
	TargetAgeRanges []string
	Reward          int32
	ResearcherID    uuid.UUID
	CreatedAt       pgtype.Timestamptz
}
