package survey

import (
	"github.com/microcosm-cc/bluemonday"
)

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeRating         QuestionType = "rating"
)

func (t QuestionType) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypeShortAnswer, TypeRating:
		return true
	}
	return false
}

type Question struct {
	Text      string       `json:"questionText" validate:"required"`
	Type      QuestionType `json:"type"         validate:"required,question_type"`
	Options   []string     `json:"options,omitempty"`
	Rationale string       `json:"rationale,omitempty"`
}

var strictPolicy = bluemonday.StrictPolicy()

// Sanitized strips markup from the free-text fields. Question text flows in
// from generation output and portal input, both untrusted.
func (q Question) Sanitized() Question {
	out := q
	out.Text = strictPolicy.Sanitize(q.Text)
	out.Rationale = strictPolicy.Sanitize(q.Rationale)
	if q.Options != nil {
		out.Options = make([]string, len(q.Options))
		for i, o := range q.Options {
			out.Options[i] = strictPolicy.Sanitize(o)
		}
	}
	return out
}

func SanitizeAll(questions []Question) []Question {
	if questions == nil {
		return nil
	}
	out := make([]Question, len(questions))
	for i, q := range questions {
		out[i] = q.Sanitized()
	}
	return out
}

// UpdateCommand is a field-level patch against one question of a draft.
// Nil pointers mean "leave as is". Index is required and never defaulted.
type UpdateCommand struct {
	Index     int
	Text      *string
	Type      *QuestionType
	Options   *[]string
	Rationale *string
}
