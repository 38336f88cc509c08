package user

import (
	"context"
	"errors"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/demographic"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// GetFromContext extracts the authenticated user from request context
func GetFromContext(ctx context.Context) (*User, bool) {
	userData, ok := ctx.Value(internal.UserContextKey).(*User)
	return userData, ok
}

// HasProfile reports whether the demographic attributes matching needs are
// all present.
func (u User) HasProfile() bool {
	return u.State.Valid && u.State.String != "" &&
		u.Gender.Valid && u.Gender.String != "" &&
		u.AgeRange.Valid && u.AgeRange.String != ""
}

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	logger  *zap.Logger
	queries Querier
	tracer  trace.Tracer
}

func NewService(logger *zap.Logger, db DBTX) *Service {
	return &Service{
		logger:  logger,
		queries: New(db),
		tracer:  otel.Tracer("user/service"),
	}
}

// Register inserts a new profile. Email is the natural key; a second
// registration with the same email surfaces as ErrEmailAlreadyRegistered.
func (s *Service) Register(ctx context.Context, arg CreateParams) (User, error) {
	traceCtx, span := s.tracer.Start(ctx, "Register")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	// The handler validates too; this guards non-HTTP callers.
	if !Role(arg.Role).Valid() {
		return User{}, internal.ErrInvalidRole
	}
	if arg.State.Valid && arg.State.String != "" && !demographic.IsValidState(arg.State.String) {
		return User{}, internal.ErrInvalidState
	}

	created, err := s.queries.Create(traceCtx, arg)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "users", "email", arg.Email, logger, "create user")
		if errors.Is(err, databaseutil.ErrUniqueViolation) {
			logger.Warn("Registration with already-registered email", zap.String("email", arg.Email))
			return User{}, internal.ErrEmailAlreadyRegistered
		}
		span.RecordError(err)
		return User{}, err
	}

	logger.Info("Registered new user",
		zap.String("user_id", created.ID.String()),
		zap.String("role", created.Role),
	)
	return created, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	found, err := s.queries.GetByID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "get user by id")
		span.RecordError(err)
		return User{}, err
	}
	return found, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByEmail")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	found, err := s.queries.GetByEmail(traceCtx, email)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "get user by email")
		span.RecordError(err)
		return User{}, err
	}
	return found, nil
}

func (s *Service) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	traceCtx, span := s.tracer.Start(ctx, "ExistsByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	exists, err := s.queries.ExistsByID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "check user existence by id")
		span.RecordError(err)
		return false, err
	}
	return exists, nil
}
