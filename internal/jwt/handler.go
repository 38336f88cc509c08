package jwt

import (
	"context"
	"net/http"
	"time"

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

type userStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
}

type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type TokenResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken uuid.UUID            `json:"refreshToken"`
	ExpiresAt    time.Time            `json:"expiresAt"`
	User         user.ProfileResponse `json:"user"`
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	service Service
	users   userStore
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	service Service,
	users userStore,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("jwt/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		service:       service,
		users:         users,
	}
}

func (h *Handler) issueTokens(ctx context.Context, u user.User) (TokenResponse, error) {
	accessToken, err := h.service.New(ctx, u)
	if err != nil {
		return TokenResponse{}, err
	}

	refreshToken, err := h.service.GenerateRefreshToken(ctx, u.ID)
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.ID,
		ExpiresAt:    refreshToken.ExpirationDate.Time,
		User:         user.ToProfileResponse(u),
	}, nil
}

// LoginHandler exchanges a registered email for a token pair.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "LoginHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var req LoginRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	u, err := h.users.GetByEmail(traceCtx, req.Email)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	tokens, err := h.issueTokens(traceCtx, u)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, tokens)
}

// RefreshHandler rotates a refresh token: the presented token is retired
// and a fresh pair comes back.
func (h *Handler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "RefreshHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("refreshToken"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	userID, err := h.service.GetUserIDByRefreshToken(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	u, err := h.users.GetByID(traceCtx, userID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := h.service.InactivateRefreshToken(traceCtx, id); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	tokens, err := h.issueTokens(traceCtx, u)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, tokens)
}
