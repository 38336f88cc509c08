package campaign_test

import (
	"testing"

	"unidata/survey-platform-backend/internal/campaign"
	"unidata/survey-platform-backend/test/testdata"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

func TestMatches(t *testing.T) {
	respondent := campaign.Audience{State: "Lagos", Gender: "Female", AgeRange: "18-24"}

	testCases := []struct {
		name     string
		audience campaign.Audience
		target   campaign.Campaign
		want     bool
	}{
		{
			name:     "all dimensions unrestricted matches anyone",
			audience: respondent,
			target:   campaign.Campaign{},
			want:     true,
		},
		{
			name:     "state restriction includes respondent",
			audience: respondent,
			target:   campaign.Campaign{TargetStates: []string{"Lagos", "Ogun"}},
			want:     true,
		},
		{
			name:     "state restriction excludes respondent",
			audience: respondent,
			target:   campaign.Campaign{TargetStates: []string{"Kano", "Kaduna"}},
			want:     false,
		},
		{
			name:     "all dimensions restricted and all pass",
			audience: respondent,
			target: campaign.Campaign{
				TargetStates:    []string{"Lagos"},
				TargetGenders:   []string{"Female"},
				TargetAgeRanges: []string{"18-24", "25-34"},
			},
			want: true,
		},
		{
			name:     "one failing dimension fails the whole predicate",
			audience: respondent,
			target: campaign.Campaign{
				TargetStates:    []string{"Lagos"},
				TargetGenders:   []string{"Male"},
				TargetAgeRanges: []string{"18-24"},
			},
			want: false,
		},
		{
			name:     "missing value fails a restricted dimension",
			audience: campaign.Audience{State: "Lagos", AgeRange: "18-24"},
			target:   campaign.Campaign{TargetGenders: []string{"Female"}},
			want:     false,
		},
		{
			name:     "missing value passes an unrestricted dimension",
			audience: campaign.Audience{State: "Lagos"},
			target:   campaign.Campaign{TargetStates: []string{"Lagos"}},
			want:     true,
		},
		{
			name:     "empty audience matches fully-open campaign",
			audience: campaign.Audience{},
			target:   campaign.Campaign{},
			want:     true,
		},
		{
			name:     "unknown target literal never matches",
			audience: respondent,
			target:   campaign.Campaign{TargetStates: []string{"Atlantis"}},
			want:     false,
		},
		{
			name:     "exact comparison, no case folding",
			audience: respondent,
			target:   campaign.Campaign{TargetStates: []string{"lagos"}},
			want:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := campaign.Matches(tc.audience, tc.target); got != tc.want {
				t.Errorf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFindMatchesKeepsOrder(t *testing.T) {
	lagosFemale := campaign.Audience{State: "Lagos", Gender: "Female", AgeRange: "18-24"}

	open := campaign.Campaign{ID: uuid.New(), Title: "open"}
	lagosOnly := campaign.Campaign{ID: uuid.New(), Title: "lagos", TargetStates: []string{"Lagos"}}
	kanoOnly := campaign.Campaign{ID: uuid.New(), Title: "kano", TargetStates: []string{"Kano"}}
	femaleYouth := campaign.Campaign{
		ID:              uuid.New(),
		Title:           "female-youth",
		TargetGenders:   []string{"Female"},
		TargetAgeRanges: []string{"18-24"},
	}

	got := campaign.FindMatches(lagosFemale, []campaign.Campaign{kanoOnly, open, lagosOnly, femaleYouth})

	want := []string{"open", "lagos", "female-youth"}
	if len(got) != len(want) {
		t.Fatalf("matched %d campaigns, want %d", len(got), len(want))
	}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("matched[%d] = %q, want %q", i, got[i].Title, title)
		}
	}
}

func TestFindMatchesNilInput(t *testing.T) {
	got := campaign.FindMatches(campaign.Audience{State: "Lagos"}, nil)
	if got == nil {
		t.Fatal("expected empty non-nil slice")
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

// Cross-checks the matcher against a naive re-statement of the rules over
// randomized audiences and campaigns.
func TestMatchesAgainstBruteForce(t *testing.T) {
	f := gofakeit.New(7)

	contains := func(set []string, v string) bool {
		for _, s := range set {
			if s == v {
				return true
			}
		}
		return false
	}
	naive := func(a campaign.Audience, c campaign.Campaign) bool {
		if len(c.TargetStates) > 0 && !contains(c.TargetStates, a.State) {
			return false
		}
		if len(c.TargetGenders) > 0 && !contains(c.TargetGenders, a.Gender) {
			return false
		}
		if len(c.TargetAgeRanges) > 0 && !contains(c.TargetAgeRanges, a.AgeRange) {
			return false
		}
		return true
	}

	for i := 0; i < 500; i++ {
		a := testdata.RandomAudience(f)
		c := testdata.RandomCampaign(f)
		if got, want := campaign.Matches(a, c), naive(a, c); got != want {
			t.Fatalf("iteration %d: Matches(%+v, states=%v genders=%v ages=%v) = %v, want %v",
				i, a, c.TargetStates, c.TargetGenders, c.TargetAgeRanges, got, want)
		}
	}
}

func TestFindMatchesAgreesWithMatches(t *testing.T) {
	f := gofakeit.New(11)

	audience := testdata.RandomAudience(f)
	campaigns := testdata.RandomCampaigns(f, 200)

	matched := campaign.FindMatches(audience, campaigns)

	seen := make(map[uuid.UUID]bool, len(matched))
	for _, c := range matched {
		seen[c.ID] = true
		if !campaign.Matches(audience, c) {
			t.Errorf("campaign %s returned but does not match", c.ID)
		}
	}
	for _, c := range campaigns {
		if campaign.Matches(audience, c) && !seen[c.ID] {
			t.Errorf("campaign %s matches but was not returned", c.ID)
		}
	}
}
