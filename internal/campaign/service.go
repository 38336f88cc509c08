package campaign

import (
	"context"

	"unidata/survey-platform-backend/internal"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (Campaign, error)
	List(ctx context.Context) ([]Campaign, error)
	GetByID(ctx context.Context, id uuid.UUID) (Campaign, error)
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
		tracer:  otel.Tracer("campaign/service"),
	}
}

func (s *Service) Create(ctx context.Context, arg CreateParams) (Campaign, error) {
	traceCtx, span := s.tracer.Start(ctx, "Create")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	// The handler validates too; this guards non-HTTP callers.
	if len(arg.Questions) == 0 {
		return Campaign{}, internal.ErrCampaignNoQuestions
	}
	if arg.Reward < 0 {
		return Campaign{}, internal.ErrNegativeReward
	}

	created, err := s.queries.Create(traceCtx, arg)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "create campaign")
		span.RecordError(err)
		return Campaign{}, err
	}

	logger.Info("Deployed campaign",
		zap.String("campaign_id", created.ID.String()),
		zap.String("researcher_id", created.ResearcherID.String()),
		zap.Int("question_count", len(created.Questions)),
	)
	return created, nil
}

func (s *Service) List(ctx context.Context) ([]Campaign, error) {
	traceCtx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	campaigns, err := s.queries.List(traceCtx)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "list campaigns")
		span.RecordError(err)
		return nil, err
	}
	return campaigns, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Campaign, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	found, err := s.queries.GetByID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "campaigns", "id", id.String(), logger, "get campaign by id")
		span.RecordError(err)
		return Campaign{}, err
	}
	return found, nil
}

// MatchedForAudience returns the campaigns the audience qualifies for, in
// the store's newest-first order.
func (s *Service) MatchedForAudience(ctx context.Context, a Audience) ([]Campaign, error) {
	traceCtx, span := s.tracer.Start(ctx, "MatchedForAudience")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	campaigns, err := s.queries.List(traceCtx)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "list campaigns for matching")
		span.RecordError(err)
		return nil, err
	}

	matched := FindMatches(a, campaigns)
	logger.Debug("Matched campaigns for audience",
		zap.Int("total", len(campaigns)),
		zap.Int("matched", len(matched)),
	)
	return matched, nil
}
