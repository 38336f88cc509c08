package survey

import (
	"testing"

	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func typePtr(t QuestionType) *QuestionType { return &t }

func optsPtr(opts ...string) *[]string { return &opts }

func threeQuestions() []Question {
	return []Question{
		{Text: "How often do you shop online?", Type: TypeMultipleChoice, Options: []string{"Daily", "Weekly", "Monthly"}},
		{Text: "What frustrates you most about delivery?", Type: TypeShortAnswer},
		{Text: "Rate your satisfaction with local vendors", Type: TypeRating},
	}
}

func TestDraftApplyUpdate(t *testing.T) {
	testCases := []struct {
		name        string
		initial     []Question
		cmd         UpdateCommand
		wantApplied bool
		validate    func(t *testing.T, got []Question)
	}{
		{
			name:        "patch text only keeps other fields",
			initial:     threeQuestions(),
			cmd:         UpdateCommand{Index: 0, Text: strPtr("How often do you buy airtime online?")},
			wantApplied: true,
			validate: func(t *testing.T, got []Question) {
				if got[0].Text != "How often do you buy airtime online?" {
					t.Errorf("text not patched: %q", got[0].Text)
				}
				if got[0].Type != TypeMultipleChoice || len(got[0].Options) != 3 {
					t.Errorf("untouched fields changed: %+v", got[0])
				}
			},
		},
		{
			name:        "patch type and options together",
			initial:     threeQuestions(),
			cmd:         UpdateCommand{Index: 1, Type: typePtr(TypeMultipleChoice), Options: optsPtr("Cost", "Speed", "Reliability")},
			wantApplied: true,
			validate: func(t *testing.T, got []Question) {
				if got[1].Type != TypeMultipleChoice {
					t.Errorf("type not patched: %q", got[1].Type)
				}
				if len(got[1].Options) != 3 {
					t.Errorf("options not patched: %v", got[1].Options)
				}
				if got[1].Text != "What frustrates you most about delivery?" {
					t.Errorf("text should be untouched: %q", got[1].Text)
				}
			},
		},
		{
			name:        "index past end is a no-op",
			initial:     threeQuestions(),
			cmd:         UpdateCommand{Index: 5, Text: strPtr("should never land")},
			wantApplied: false,
			validate: func(t *testing.T, got []Question) {
				for i, q := range got {
					if q.Text == "should never land" {
						t.Errorf("out-of-range update applied at %d", i)
					}
				}
			},
		},
		{
			name:        "negative index is a no-op",
			initial:     threeQuestions(),
			cmd:         UpdateCommand{Index: -1, Text: strPtr("should never land")},
			wantApplied: false,
			validate:    func(t *testing.T, got []Question) {},
		},
		{
			name:        "update against empty document is a no-op",
			initial:     nil,
			cmd:         UpdateCommand{Index: 0, Text: strPtr("nothing here")},
			wantApplied: false,
			validate: func(t *testing.T, got []Question) {
				if len(got) != 0 {
					t.Errorf("expected empty document, got %d questions", len(got))
				}
			},
		},
		{
			name:        "invalid type literal is dropped but rest of patch applies",
			initial:     threeQuestions(),
			cmd:         UpdateCommand{Index: 2, Type: typePtr(QuestionType("essay")), Text: strPtr("Rate the vendors you used this month")},
			wantApplied: true,
			validate: func(t *testing.T, got []Question) {
				if got[2].Type != TypeRating {
					t.Errorf("invalid type should be ignored, got %q", got[2].Type)
				}
				if got[2].Text != "Rate the vendors you used this month" {
					t.Errorf("text patch should still apply: %q", got[2].Text)
				}
			},
		},
		{
			name:        "markup in patched text is stripped",
			initial:     threeQuestions(),
			cmd:         UpdateCommand{Index: 0, Text: strPtr(`<script>alert(1)</script>How safe is this?`)},
			wantApplied: true,
			validate: func(t *testing.T, got []Question) {
				if got[0].Text != "How safe is this?" {
					t.Errorf("markup not stripped: %q", got[0].Text)
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDraft(zap.NewNop(), "E-commerce adoption", "trust, price sensitivity", "urban youth", tc.initial)

			applied := d.ApplyUpdate(tc.cmd)
			if applied != tc.wantApplied {
				t.Fatalf("applied = %v, want %v", applied, tc.wantApplied)
			}

			tc.validate(t, d.Snapshot())
		})
	}
}

func TestDraftReplaceAll(t *testing.T) {
	d := NewDraft(zap.NewNop(), "topic", "", "", threeQuestions())

	next := []Question{
		{Text: "Single replacement question", Type: TypeShortAnswer},
	}
	d.ReplaceAll(next)

	if d.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", d.Len())
	}

	// An update addressed at the old, longer document must now be ignored.
	if d.ApplyUpdate(UpdateCommand{Index: 2, Text: strPtr("stale")}) {
		t.Error("update against replaced document should be a no-op")
	}
	if d.Snapshot()[0].Text != "Single replacement question" {
		t.Errorf("replacement lost: %+v", d.Snapshot())
	}
}

func TestDraftSnapshotIsDetached(t *testing.T) {
	d := NewDraft(zap.NewNop(), "topic", "", "", threeQuestions())

	snap := d.Snapshot()
	snap[0].Text = "mutated by caller"
	snap[0].Options[0] = "mutated option"

	fresh := d.Snapshot()
	if fresh[0].Text != "How often do you shop online?" {
		t.Errorf("caller mutation leaked into draft: %q", fresh[0].Text)
	}
	if fresh[0].Options[0] != "Daily" {
		t.Errorf("caller option mutation leaked into draft: %q", fresh[0].Options[0])
	}

	// Snapshot taken before a mutation keeps showing the old content.
	before := d.Snapshot()
	d.ReplaceAll(nil)
	if len(before) != 3 {
		t.Errorf("earlier snapshot changed after ReplaceAll: %d", len(before))
	}
}
