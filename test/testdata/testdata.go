// Package testdata generates randomized fixtures for tests. Builders are
// deterministic when handed a seeded faker.
package testdata

import (
	"unidata/survey-platform-backend/internal/campaign"
	"unidata/survey-platform-backend/internal/demographic"
	"unidata/survey-platform-backend/internal/survey"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

func RandomQuestion(f *gofakeit.Faker) survey.Question {
	types := []survey.QuestionType{survey.TypeMultipleChoice, survey.TypeShortAnswer, survey.TypeRating}
	q := survey.Question{
		Text:      f.Question(),
		Type:      types[f.IntRange(0, len(types)-1)],
		Rationale: f.Sentence(8),
	}
	if q.Type == survey.TypeMultipleChoice {
		n := f.IntRange(2, 5)
		q.Options = make([]string, n)
		for i := range q.Options {
			q.Options[i] = f.Word()
		}
	}
	return q
}

func RandomQuestions(f *gofakeit.Faker, n int) []survey.Question {
	questions := make([]survey.Question, n)
	for i := range questions {
		questions[i] = RandomQuestion(f)
	}
	return questions
}

// RandomAudience draws from the real vocabularies, with a chance of a
// missing value per dimension.
func RandomAudience(f *gofakeit.Faker) campaign.Audience {
	a := campaign.Audience{}
	if f.Bool() || f.Bool() { // ~75%
		a.State = f.RandomString(demographic.States())
	}
	if f.Bool() || f.Bool() {
		a.Gender = f.RandomString(demographic.Genders)
	}
	if f.Bool() || f.Bool() {
		a.AgeRange = f.RandomString(demographic.AgeRanges)
	}
	return a
}

// RandomTargetSet picks a subset of the vocabulary; empty means wildcard.
func RandomTargetSet(f *gofakeit.Faker, vocabulary []string) []string {
	var set []string
	for _, v := range vocabulary {
		if f.IntRange(0, 3) == 0 {
			set = append(set, v)
		}
	}
	return set
}

func RandomCampaign(f *gofakeit.Faker) campaign.Campaign {
	return campaign.Campaign{
		ID:              uuid.New(),
		Title:           f.Sentence(4),
		Questions:       RandomQuestions(f, f.IntRange(1, 5)),
		TargetStates:    RandomTargetSet(f, demographic.States()),
		TargetGenders:   RandomTargetSet(f, demographic.Genders),
		TargetAgeRanges: RandomTargetSet(f, demographic.AgeRanges),
		Reward:          int32(f.IntRange(100, 2000)),
		ResearcherID:    uuid.New(),
	}
}

func RandomCampaigns(f *gofakeit.Faker, n int) []campaign.Campaign {
	campaigns := make([]campaign.Campaign, n)
	for i := range campaigns {
		campaigns[i] = RandomCampaign(f)
	}
	return campaigns
}
