package internal

import (
	"unidata/survey-platform-backend/internal/demographic"
	"unidata/survey-platform-backend/internal/survey"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return survey.QuestionType(fl.Field().String()).Valid()
	})

	_ = v.RegisterValidation("nigerian_state", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		return demographic.IsValidState(s)
	})

	_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		return demographic.IsValidGender(s)
	})

	_ = v.RegisterValidation("age_range", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		return demographic.IsValidAgeRange(s)
	})

	return v
}

func ValidateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err != nil {
		return err
	}
	return nil
}
