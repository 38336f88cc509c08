package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/survey"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// GenerationModel handles one-shot generation, refinement and analysis.
	GenerationModel = "gemini-3-flash-preview"

	// LiveModel is the full-duplex audio model the voice session dials.
	LiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"

	// ToolUpdateQuestion is the function the model calls to patch one draft
	// question.
	ToolUpdateQuestion = "update_question"

	// ToolResponseResult is the canonical payload acknowledging a handled
	// tool call back to the model.
	ToolResponseResult = "Success: Form updated."
)

// UpdateQuestionDeclaration describes the update_question tool: a patch of
// one question by index, all mutation fields optional.
func UpdateQuestionDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        ToolUpdateQuestion,
		Description: "Update a single question of the researcher's survey draft. Only include the fields you want to change.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"index": {
					Type:        genai.TypeInteger,
					Description: "Zero-based index of the question to update.",
				},
				"questionText": {
					Type:        genai.TypeString,
					Description: "Replacement question text.",
				},
				"type": {
					Type:        genai.TypeString,
					Description: "One of: multiple_choice, short_answer, rating.",
				},
				"options": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "Replacement options for multiple_choice questions.",
				},
				"rationale": {
					Type:        genai.TypeString,
					Description: "Updated research rationale for the question.",
				},
			},
			Required: []string{"index"},
		},
	}
}

// SystemInstruction renders the consultant persona with the draft state the
// conversation opened on.
func SystemInstruction(brief Brief) string {
	doc, _ := json.Marshal(brief.Questions)
	return fmt.Sprintf(`You are Dr. Unidata, a Senior Academic Research Consultant for Nigerian higher education and market research.
You are monitoring a survey draft and helping the researcher refine it.

Research topic: %q
Key variables: %q
Target demographics: %q
Current draft questions (JSON): %s

When the researcher asks you to change a question, call the %s function with the zero-based index and only the fields that change. Keep replies concise, supportive and academically grounded.`,
		brief.Topic, brief.Variables, brief.Demographics, doc, ToolUpdateQuestion)
}

type Gemini struct {
	logger *zap.Logger
	tracer trace.Tracer
	client *genai.Client
}

func NewGemini(ctx context.Context, logger *zap.Logger, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		logger: logger,
		tracer: otel.Tracer("interpreter/gemini"),
		client: client,
	}, nil
}

// generatedQuestion is the wire shape the generation prompts constrain the
// model to. The key is "question", not "questionText", matching the
// response schema.
type generatedQuestion struct {
	Question  string   `json:"question"`
	Type      string   `json:"type"`
	Options   []string `json:"options,omitempty"`
	Rationale string   `json:"rationale"`
}

func questionListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question": {Type: genai.TypeString},
				"type": {
					Type:        genai.TypeString,
					Description: "Must be one of: multiple_choice, short_answer, rating",
				},
				"options": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "Provide options if type is multiple_choice.",
				},
				"rationale": {
					Type:        genai.TypeString,
					Description: "A helpful explanation of the research value of this specific question.",
				},
			},
			Required: []string{"question", "type", "rationale"},
		},
	}
}

func (g *Gemini) AnalyzeContext(ctx context.Context, text string) (Context, error) {
	traceCtx, span := g.tracer.Start(ctx, "AnalyzeContext")
	defer span.End()
	logger := logutil.WithContext(traceCtx, g.logger)

	prompt := fmt.Sprintf(`You are a Senior Academic Research Consultant specializing in Nigerian higher education and market research.
Analyze the following research objective or proposal snippet and suggest:
1. A list of 3-5 key variables or themes (comma-separated).
2. A concise description of the target demographics (who should answer this?).

Research Text: %q`, text)

	resp, err := g.client.Models.GenerateContent(traceCtx, GenerationModel, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText("You are a helpful academic consultant. Be precise and relevant to the Nigerian context.", genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"variables":    {Type: genai.TypeString, Description: "Key variables or themes extracted."},
				"demographics": {Type: genai.TypeString, Description: "Target audience description."},
			},
			Required: []string{"variables", "demographics"},
		},
	})
	if err != nil {
		span.RecordError(err)
		logger.Error("context analysis request failed", zap.Error(err))
		return Context{}, fmt.Errorf("%w: %v", internal.ErrInterpreterUnavailable, err)
	}

	var out Context
	if err := json.Unmarshal([]byte(resp.Text()), &out); err != nil {
		span.RecordError(err)
		logger.Error("context analysis returned malformed JSON", zap.Error(err))
		return Context{}, fmt.Errorf("%w: %v", internal.ErrMalformedGeneration, err)
	}
	return out, nil
}

func (g *Gemini) Generate(ctx context.Context, req GenerateRequest) ([]survey.Question, error) {
	traceCtx, span := g.tracer.Start(ctx, "Generate")
	defer span.End()
	logger := logutil.WithContext(traceCtx, g.logger)

	keywords := req.Keywords
	if keywords == "" {
		keywords = "general study variables"
	}
	demographics := req.Demographics
	if demographics == "" {
		demographics = "general Nigerian population"
	}
	formats := "multiple_choice, short_answer"
	if len(req.PreferredTypes) > 0 {
		formats = strings.Join(req.PreferredTypes, ", ")
	}
	proposal := ""
	if req.ProposalText != "" {
		proposal = fmt.Sprintf("They have uploaded a proposal: %q\n", truncate(req.ProposalText, 1500))
	}

	prompt := fmt.Sprintf(`Act as a Senior Research Consultant and Academic Advisor.
A researcher is working on: %q.
%sKey Themes to measure: %s
Target Population: %s
Requested Question Formats: %s

Task:
1. Generate 4 high-quality survey questions that align with Nigerian academic standards.
2. For each question, provide a conversational "rationale" explaining why this question is scientifically valuable for their specific topic.
3. Ensure the questions are clear, non-leading, and easy for the target audience to understand.`,
		req.Topic, proposal, keywords, demographics, formats)

	resp, err := g.client.Models.GenerateContent(traceCtx, GenerationModel, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText("You are a guiding research expert. Your tone is supportive, expert, and academic yet accessible.", genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    questionListSchema(),
	})
	if err != nil {
		span.RecordError(err)
		logger.Error("survey generation request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", internal.ErrInterpreterUnavailable, err)
	}

	return g.decodeQuestionList(logger, resp.Text())
}

func (g *Gemini) Refine(ctx context.Context, previous []survey.Question, feedback string) ([]survey.Question, error) {
	traceCtx, span := g.tracer.Start(ctx, "Refine")
	defer span.End()
	logger := logutil.WithContext(traceCtx, g.logger)

	previousJSON, err := json.Marshal(previous)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	prompt := fmt.Sprintf(`I am a researcher and I have these draft questions: %s

My feedback/request for refinement is: %q

As my Research Consultant, please update the survey questions based on this feedback.
Maintain the high academic standard and provide updated rationales.`, previousJSON, feedback)

	resp, err := g.client.Models.GenerateContent(traceCtx, GenerationModel, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText("You are an iterative research partner. Listen to the feedback and improve the methodology accordingly.", genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    questionListSchema(),
	})
	if err != nil {
		span.RecordError(err)
		logger.Error("survey refinement request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", internal.ErrInterpreterUnavailable, err)
	}

	return g.decodeQuestionList(logger, resp.Text())
}

func (g *Gemini) decodeQuestionList(logger *zap.Logger, raw string) ([]survey.Question, error) {
	var generated []generatedQuestion
	if err := json.Unmarshal([]byte(raw), &generated); err != nil {
		logger.Error("generation returned malformed JSON", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", internal.ErrMalformedGeneration, err)
	}

	questions := make([]survey.Question, 0, len(generated))
	for _, q := range generated {
		questionType := survey.QuestionType(q.Type)
		if !questionType.Valid() {
			logger.Warn("generation produced unknown question type, defaulting to short_answer", zap.String("type", q.Type))
			questionType = survey.TypeShortAnswer
		}
		questions = append(questions, survey.Question{
			Text:      q.Question,
			Type:      questionType,
			Options:   q.Options,
			Rationale: q.Rationale,
		}.Sanitized())
	}
	return questions, nil
}

func (g *Gemini) NewConversation(ctx context.Context, brief Brief) (Conversation, error) {
	traceCtx, span := g.tracer.Start(ctx, "NewConversation")
	defer span.End()

	chat, err := g.client.Chats.Create(traceCtx, GenerationModel, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction(brief), genai.RoleUser),
		Tools: []*genai.Tool{
			{FunctionDeclarations: []*genai.FunctionDeclaration{UpdateQuestionDeclaration()}},
		},
	}, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", internal.ErrInterpreterUnavailable, err)
	}

	return &geminiConversation{
		logger: g.logger,
		tracer: g.tracer,
		chat:   chat,
	}, nil
}

type geminiConversation struct {
	logger *zap.Logger
	tracer trace.Tracer
	chat   *genai.Chat
}

func (c *geminiConversation) SendTurn(ctx context.Context, userText string) (TurnResult, error) {
	traceCtx, span := c.tracer.Start(ctx, "SendTurn")
	defer span.End()
	logger := logutil.WithContext(traceCtx, c.logger)

	resp, err := c.chat.SendMessage(traceCtx, genai.Part{Text: userText})
	if err != nil {
		span.RecordError(err)
		logger.Error("conversation turn failed", zap.Error(err))
		return TurnResult{}, fmt.Errorf("%w: %v", internal.ErrInterpreterUnavailable, err)
	}

	result := TurnResult{Text: resp.Text()}
	for _, call := range resp.FunctionCalls() {
		if call.Name != ToolUpdateQuestion {
			logger.Warn("ignoring unknown tool call", zap.String("name", call.Name))
			continue
		}
		cmd, err := DecodeUpdateCommand(call.Args)
		if err != nil {
			logger.Warn("dropping malformed update command", zap.Error(err))
			continue
		}
		result.Commands = append(result.Commands, cmd)
	}

	return result, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
