package campaign

import (
	"context"
	"net/http"
	"time"

	"unidata/survey-platform-backend/internal"
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

const defaultReward = 500

type CreateRequest struct {
	Title           string            `json:"title" validate:"required"`
	Questions       []survey.Question `json:"questions" validate:"required,min=1,dive"`
	TargetStates    []string          `json:"targetStates"`
	TargetGenders   []string          `json:"targetGenders"`
	TargetAgeRanges []string          `json:"targetAgeRanges"`
	Reward          *int32            `json:"reward" validate:"omitempty,min=0"`
}

type Response struct {
	ID              uuid.UUID         `json:"id"`
	Title           string            `json:"title"`
	Questions       []survey.Question `json:"questions"`
	TargetStates    []string          `json:"targetStates"`
	TargetGenders   []string          `json:"targetGenders"`
	TargetAgeRanges []string          `json:"targetAgeRanges"`
	Reward          int32             `json:"reward"`
	ResearcherID    uuid.UUID         `json:"researcherId"`
	CreatedAt       time.Time         `json:"createdAt"`
}

func ToResponse(c Campaign) Response {
	return Response{
		ID:              c.ID,
		Title:           c.Title,
		Questions:       c.Questions,
		TargetStates:    c.TargetStates,
		TargetGenders:   c.TargetGenders,
		TargetAgeRanges: c.TargetAgeRanges,
		Reward:          c.Reward,
		ResearcherID:    c.ResearcherID,
		CreatedAt:       c.CreatedAt.Time,
	}
}

type Store interface {
	Create(ctx context.Context, arg CreateParams) (Campaign, error)
	List(ctx context.Context) ([]Campaign, error)
	GetByID(ctx context.Context, id uuid.UUID) (Campaign, error)
	MatchedForAudience(ctx context.Context, a Audience) ([]Campaign, error)
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	store Store
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	store Store,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("campaign/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
	}
}

// CreateHandler deploys a draft as a live campaign. Researcher only.
func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CreateHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	caller, ok := user.GetFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoUserInContext, logger)
		return
	}
	if caller.Role != string(user.RoleResearcher) {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrPermissionDenied, logger)
		return
	}

	var req CreateRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	reward := int32(defaultReward)
	if req.Reward != nil {
		reward = *req.Reward
	}

	created, err := h.store.Create(traceCtx, CreateParams{
		Title:           req.Title,
		Questions:       survey.SanitizeAll(req.Questions),
		TargetStates:    req.TargetStates,
		TargetGenders:   req.TargetGenders,
		TargetAgeRanges: req.TargetAgeRanges,
		Reward:          reward,
		ResearcherID:    caller.ID,
	})
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, ToResponse(created))
}

// ListHandler returns every deployed campaign, newest first.
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	campaigns, err := h.store.List(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	response := make([]Response, 0, len(campaigns))
	for _, c := range campaigns {
		response = append(response, ToResponse(c))
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, response)
}

// GetHandler returns a single campaign by id.
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("campaignId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	found, err := h.store.GetByID(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToResponse(found))
}

// MatchesHandler returns the campaigns the calling respondent qualifies
// for, based on the demographic attributes of the stored profile.
func (h *Handler) MatchesHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "MatchesHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	caller, ok := user.GetFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoUserInContext, logger)
		return
	}
	if caller.Role != string(user.RoleRespondent) {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrPermissionDenied, logger)
		return
	}

	// An incomplete profile still gets a feed, it just fails every
	// restricted dimension.
	if !caller.HasProfile() {
		logger.Debug("Respondent profile incomplete, feed limited to open campaigns",
			zap.String("user_id", caller.ID.String()),
		)
	}

	matched, err := h.store.MatchedForAudience(traceCtx, Audience{
		State:    caller.State.String,
		Gender:   caller.Gender.String,
		AgeRange: caller.AgeRange.String,
	})
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	response := make([]Response, 0, len(matched))
	for _, c := range matched {
		response = append(response, ToResponse(c))
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, response)
}
