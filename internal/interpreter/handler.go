package interpreter

import (
	"net/http"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/survey"
	"unidata/survey-platform-backend/internal/user"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type AnalyzeRequest struct {
	Text string `json:"text" validate:"required"`
}

type GenerateHTTPRequest struct {
	Topic          string   `json:"topic" validate:"required"`
	Keywords       string   `json:"keywords"`
	Demographics   string   `json:"demographics"`
	PreferredTypes []string `json:"preferredTypes" validate:"omitempty,dive,question_type"`
	ProposalText   string   `json:"proposalText"`
}

type RefineHTTPRequest struct {
	Questions []survey.Question `json:"questions" validate:"required,min=1,dive"`
	Feedback  string            `json:"feedback" validate:"required"`
}

type QuestionsResponse struct {
	Questions []survey.Question `json:"questions"`
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	client Client
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	client Client,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("interpreter/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		client:        client,
	}
}

func (h *Handler) requireResearcher(w http.ResponseWriter, r *http.Request, logger *zap.Logger) bool {
	caller, ok := user.GetFromContext(r.Context())
	if !ok {
		h.problemWriter.WriteError(r.Context(), w, internal.ErrNoUserInContext, logger)
		return false
	}
	if caller.Role != string(user.RoleResearcher) {
		h.problemWriter.WriteError(r.Context(), w, internal.ErrPermissionDenied, logger)
		return false
	}
	return true
}

// AnalyzeHandler extracts variables and demographics from a research brief.
func (h *Handler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "AnalyzeHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	if !h.requireResearcher(w, r, logger) {
		return
	}

	var req AnalyzeRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	extracted, err := h.client.AnalyzeContext(traceCtx, req.Text)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, extracted)
}

// GenerateHandler produces a fresh question set for a topic.
func (h *Handler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GenerateHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	if !h.requireResearcher(w, r, logger) {
		return
	}

	var req GenerateHTTPRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	questions, err := h.client.Generate(traceCtx, GenerateRequest{
		Topic:          req.Topic,
		Keywords:       req.Keywords,
		Demographics:   req.Demographics,
		PreferredTypes: req.PreferredTypes,
		ProposalText:   req.ProposalText,
	})
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, QuestionsResponse{Questions: questions})
}

// RefineHandler reworks an existing question set from researcher feedback.
func (h *Handler) RefineHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "RefineHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	if !h.requireResearcher(w, r, logger) {
		return
	}

	var req RefineHTTPRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	questions, err := h.client.Refine(traceCtx, req.Questions, req.Feedback)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, QuestionsResponse{Questions: questions})
}
