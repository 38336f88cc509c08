// Package interpreter wraps the generative backend behind a small interface.
// The session controllers never see the vendor SDK; they see typed results
// and validated update commands.
package interpreter

import (
	"context"

	"unidata/survey-platform-backend/internal/survey"
)

// Context is the consultant-style extraction of a free-text research brief.
type Context struct {
	Variables    string `json:"variables"`
	Demographics string `json:"demographics"`
}

type GenerateRequest struct {
	Topic          string
	Keywords       string
	Demographics   string
	PreferredTypes []string
	ProposalText   string
}

// Brief seeds a conversation with the state of the draft at open time.
// Later turns carry only the new user text; the document state lives in the
// draft, not in the prompt.
type Brief struct {
	Topic        string
	Variables    string
	Demographics string
	Questions    []survey.Question
}

// TurnResult is one assistant reply: free text plus zero or more validated
// draft mutations, in emission order.
type TurnResult struct {
	Text     string
	Commands []survey.UpdateCommand
}

type Conversation interface {
	SendTurn(ctx context.Context, userText string) (TurnResult, error)
}

type Client interface {
	AnalyzeContext(ctx context.Context, text string) (Context, error)
	Generate(ctx context.Context, req GenerateRequest) ([]survey.Question, error)
	Refine(ctx context.Context, previous []survey.Question, feedback string) ([]survey.Question, error)
	NewConversation(ctx context.Context, brief Brief) (Conversation, error)
}
