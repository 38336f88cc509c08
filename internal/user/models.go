package user

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Role string

const (
	RoleResearcher Role = "researcher"
	RoleRespondent Role = "respondent"
)

func (r Role) Valid() bool {
	switch r {
	case RoleResearcher, RoleRespondent:
		return true
	}
	return false
}

type User struct {
	ID               uuid.UUID
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
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}
