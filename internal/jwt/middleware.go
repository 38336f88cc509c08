package jwt

import (
	"context"
	"net/http"
	"strings"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/user"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type userReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
}

type Middleware struct {
	tracer        trace.Tracer
	logger        *zap.Logger
	parser        Service
	userSvc       userReader
	problemWriter *problem.HttpWriter
}

func NewMiddleware(
	logger *zap.Logger,
	parser Service,
	userSvc userReader,
	problemWriter *problem.HttpWriter,
) *Middleware {
	return &Middleware{
		tracer:        otel.Tracer("jwt/middleware"),
		logger:        logger,
		parser:        parser,
		userSvc:       userSvc,
		problemWriter: problemWriter,
	}
}

// Authenticate resolves the bearer token into a full profile and stores it
// in the request context. Handlers downstream never see the token, only the
// identity.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := m.tracer.Start(r.Context(), "AuthenticateMiddleware")
		defer span.End()
		logger := logutil.WithContext(traceCtx, m.logger)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.problemWriter.WriteError(traceCtx, w, internal.ErrMissingAuthHeader, logger)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidAuthHeaderFormat, logger)
			return
		}

		tokenUser, err := m.parser.Parse(traceCtx, authHeader)
		if err != nil {
			span.RecordError(err)
			m.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidJWTToken, logger)
			return
		}

		// Attributes in the token can be stale; targeting needs the stored ones.
		current, err := m.userSvc.GetByID(traceCtx, tokenUser.ID)
		if err != nil {
			logger.Warn("token subject has no profile", zap.String("user_id", tokenUser.ID.String()))
			m.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidAuthUser, logger)
			return
		}

		ctx := context.WithValue(traceCtx, internal.UserContextKey, &current)
		next(w, r.WithContext(ctx))
	}
}
