package user

import (
	"context"
	"net/http"
	"time"

	"unidata/survey-platform-backend/internal"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Name             string `json:"name" validate:"required"`
	Role             string `json:"role" validate:"required,oneof=researcher respondent"`
	State            string `json:"state" validate:"omitempty,nigerian_state"`
	Gender           string `json:"gender" validate:"omitempty,gender"`
	AgeRange         string `json:"ageRange" validate:"omitempty,age_range"`
	University       string `json:"university"`
	Course           string `json:"course"`
	EducationLevel   string `json:"educationLevel"`
	EmploymentStatus string `json:"employmentStatus"`
}

type ProfileResponse struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	State            string    `json:"state,omitempty"`
	Gender           string    `json:"gender,omitempty"`
	AgeRange         string    `json:"ageRange,omitempty"`
	University       string    `json:"university,omitempty"`
	Course           string    `json:"course,omitempty"`
	EducationLevel   string    `json:"educationLevel,omitempty"`
	EmploymentStatus string    `json:"employmentStatus,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

type RegisterResponse struct {
	AccessToken string          `json:"accessToken"`
	User        ProfileResponse `json:"user"`
}

func ToProfileResponse(u User) ProfileResponse {
	return ProfileResponse{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name.String,
		Role:             u.Role,
		State:            u.State.String,
		Gender:           u.Gender.String,
		AgeRange:         u.AgeRange.String,
		University:       u.University.String,
		Course:           u.Course.String,
		EducationLevel:   u.EducationLevel.String,
		EmploymentStatus: u.EmploymentStatus.String,
		CreatedAt:        u.CreatedAt.Time,
	}
}

type Store interface {
	Register(ctx context.Context, arg CreateParams) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
}

type TokenIssuer interface {
	New(ctx context.Context, u User) (string, error)
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	store  Store
	issuer TokenIssuer
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	store Store,
	issuer TokenIssuer,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("user/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
		issuer:        issuer,
	}
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "RegisterHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req RegisterRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	created, err := h.store.Register(traceCtx, CreateParams{
		Email:            req.Email,
		Name:             pgtype.Text{String: req.Name, Valid: true},
		Role:             req.Role,
		State:            pgtype.Text{String: req.State, Valid: req.State != ""},
		Gender:           pgtype.Text{String: req.Gender, Valid: req.Gender != ""},
		AgeRange:         pgtype.Text{String: req.AgeRange, Valid: req.AgeRange != ""},
		University:       pgtype.Text{String: req.University, Valid: req.University != ""},
		Course:           pgtype.Text{String: req.Course, Valid: req.Course != ""},
		EducationLevel:   pgtype.Text{String: req.EducationLevel, Valid: req.EducationLevel != ""},
		EmploymentStatus: pgtype.Text{String: req.EmploymentStatus, Valid: req.EmploymentStatus != ""},
	})
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	token, err := h.issuer.New(traceCtx, created)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, RegisterResponse{
		AccessToken: token,
		User:        ToProfileResponse(created),
	})
}

func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "MeHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	caller, ok := GetFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoUserInContext, logger)
		return
	}

	current, err := h.store.GetByID(traceCtx, caller.ID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToProfileResponse(current))
}
