package campaign

// Audience is the demographic slice of a respondent that targeting sees.
// Values come straight from the stored profile; no normalization happens
// here, comparison is exact.
type Audience struct {
	State    string
	Gender   string
	AgeRange string
}

// Matches reports whether a respondent falls inside a campaign's target
// audience. Each dimension with a non-empty target set restricts; an empty
// set is a wildcard. Dimensions combine with AND. A respondent missing a
// value for a restricted dimension never matches it, and a target literal
// outside the known vocabularies simply never matches anyone.
func Matches(a Audience, c Campaign) bool {
	return matchesDimension(a.State, c.TargetStates) &&
		matchesDimension(a.Gender, c.TargetGenders) &&
		matchesDimension(a.AgeRange, c.TargetAgeRanges)
}

func matchesDimension(value string, targets []string) bool {
	if len(targets) == 0 {
		return true
	}
	if value == "" {
		return false
	}
	for _, t := range targets {
		if t == value {
			return true
		}
	}
	return false
}

// FindMatches filters campaigns down to those the audience qualifies for,
// preserving input order. Nil input yields an empty, non-nil slice.
func FindMatches(a Audience, campaigns []Campaign) []Campaign {
	matched := make([]Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if Matches(a, c) {
			matched = append(matched, c)
		}
	}
	return matched
}
