package chat

import (
	"net/http"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/interpreter"
	"unidata/survey-platform-backend/internal/survey"
	"unidata/survey-platform-backend/internal/user"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OpenRequest struct {
	Topic        string            `json:"topic" validate:"required"`
	Variables    string            `json:"variables"`
	Demographics string            `json:"demographics"`
	Questions    []survey.Question `json:"questions" validate:"omitempty,dive"`
}

type SessionResponse struct {
	SessionID  uuid.UUID         `json:"sessionId"`
	State      State             `json:"state"`
	Transcript []Entry           `json:"transcript"`
	Questions  []survey.Question `json:"questions"`
}

type TurnRequest struct {
	Message string `json:"message" validate:"required"`
}

func toSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		SessionID:  s.ID(),
		State:      s.State(),
		Transcript: s.Transcript(),
		Questions:  s.Draft().Snapshot(),
	}
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	manager *Manager
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	manager *Manager,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("chat/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		manager:       manager,
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

// OpenHandler starts a session over a draft seeded from the request.
func (h *Handler) OpenHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "OpenHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	if !h.requireResearcher(w, r, logger) {
		return
	}

	var req OpenRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	session, err := h.manager.Open(traceCtx, interpreter.Brief{
		Topic:        req.Topic,
		Variables:    req.Variables,
		Demographics: req.Demographics,
		Questions:    req.Questions,
	})
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, toSessionResponse(session))
}

// GetHandler reports session state, transcript and the current draft.
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	if !h.requireResearcher(w, r, logger) {
		return
	}

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	session, err := h.manager.Get(id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, toSessionResponse(session))
}

// TurnHandler queues a user turn. Processing is asynchronous; the caller
// polls GetHandler for the reply.
func (h *Handler) TurnHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "TurnHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	if !h.requireResearcher(w, r, logger) {
		return
	}

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	session, err := h.manager.Get(id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req TurnRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := session.SendTurn(req.Message); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusAccepted, toSessionResponse(session))
}

// CloseHandler ends the session. Draft changes already applied stay.
func (h *Handler) CloseHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CloseHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	if !h.requireResearcher(w, r, logger) {
		return
	}

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := h.manager.Close(id); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
