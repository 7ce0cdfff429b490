package services

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/organ-match-service/internal/events"
	"github.com/senyabanana/organ-match-service/internal/lock"
	"github.com/senyabanana/organ-match-service/internal/matching"
	"github.com/senyabanana/organ-match-service/internal/models"
	"github.com/senyabanana/organ-match-service/internal/repository"
	"github.com/senyabanana/organ-match-service/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllocationService запускает проходы подбора и ручное назначение пар.
type AllocationService struct {
	Store     *repository.Store
	Locker    lock.Locker
	Builder   *matching.PoolBuilder
	Strategy  matching.Strategy
	Evaluator *matching.Evaluator
	Publisher events.Publisher
	Logger    *zap.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// NewAllocationService создает новый экземпляр AllocationService с жадным планировщиком.
func NewAllocationService(store *repository.Store, locker lock.Locker, weights matching.Weights, publisher events.Publisher, logger *zap.Logger) *AllocationService {
	evaluator := matching.NewEvaluator(weights)
	return &AllocationService{
		Store:     store,
		Locker:    locker,
		Builder:   matching.NewPoolBuilder(store, logger),
		Strategy:  matching.NewGreedyScheduler(evaluator),
		Evaluator: evaluator,
		Publisher: publisher,
		Logger:    logger,
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunPass выполняет один проход подбора. Одновременно выполняется только один проход;
// все предложения прохода сохраняются одной транзакцией.
func (s *AllocationService) RunPass(ctx context.Context) (*models.PassSummary, error) {
	release, err := s.Locker.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	summary := &models.PassSummary{PassID: uuid.New().String(), StartedAt: s.now()}
	logger := s.Logger.With(zap.String("pass_id", summary.PassID))

	pool, err := s.Builder.Build(ctx)
	if err != nil {
		logger.Error("failed to build candidate pool", zap.Error(cause(err)))
		return nil, err
	}
	summary.SkippedRecords = pool.Skipped

	proposals := s.Strategy.RunPass(pool)
	created, err := s.Store.Matches.CreateMatches(ctx, proposals, summary.StartedAt)
	if err != nil {
		logger.Error("failed to commit proposals", zap.Int("proposals", len(proposals)), zap.Error(err))
		return nil, err
	}

	for i := range created {
		s.publishProposed(ctx, &created[i])
	}

	summary.ProposalsCreated = len(created)
	summary.RequestsStillPending = len(pool.OpenRequests) - len(created)
	summary.FinishedAt = s.now()

	logger.Info("matching pass finished",
		zap.Int("proposals_created", summary.ProposalsCreated),
		zap.Int("requests_still_pending", summary.RequestsStillPending),
		zap.Int("skipped_records", summary.SkippedRecords),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

// ManualMatch создает пару, выбранную администратором. Пара должна быть совместима,
// донор свободен, а запрос ожидать подбора.
func (s *AllocationService) ManualMatch(ctx context.Context, req models.ManualMatchRequest) (*models.Match, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.Validationf("%s", utils.ValidationMessage(err))
	}

	release, err := s.Locker.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	donor, err := s.Store.Donors.GetDonor(ctx, req.DonorID)
	if err != nil {
		return nil, err
	}
	request, err := s.Store.Requests.GetRequest(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.PendingRequest {
		return nil, models.InvalidTransitionf("request %s is %s, not pending", request.ID, request.Status)
	}

	held, err := s.Store.Matches.ListMatches(ctx, models.MatchFilter{DonorID: donor.ID})
	if err != nil {
		return nil, err
	}
	for _, m := range held {
		if m.Status.Active() {
			return nil, models.InvalidTransitionf("donor %s already holds match %s", donor.ID, m.ID)
		}
	}

	verdict := s.Evaluator.Evaluate(*donor, *request)
	if !verdict.Eligible {
		return nil, models.Validationf("donor %s is not eligible for request %s: %s rule failed", donor.ID, request.ID, verdict.FailedRule)
	}

	created, err := s.Store.Matches.CreateMatches(ctx, []models.MatchProposal{{
		DonorID:   donor.ID,
		RequestID: request.ID,
		Score:     verdict.Score,
	}}, s.now())
	if err != nil {
		return nil, err
	}
	match := &created[0]

	s.Logger.Info("manual match created",
		zap.String("match_id", match.ID),
		zap.String("donor_id", match.DonorID),
		zap.String("request_id", match.RequestID),
		zap.Float64("score", match.Score))
	s.publishProposed(ctx, match)
	return match, nil
}

// RunScheduled запускает проходы с заданным интервалом до отмены контекста.
// Тик, совпавший с выполняющимся проходом, пропускается.
func (s *AllocationService) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunPass(ctx); err != nil {
				if errors.Is(err, models.ErrPassAlreadyRunning) {
					s.Logger.Info("scheduled pass skipped, another pass is running")
					continue
				}
				s.Logger.Error("scheduled pass failed", zap.Error(err))
			}
		}
	}
}

func (s *AllocationService) publishProposed(ctx context.Context, match *models.Match) {
	publish(ctx, s.Publisher, s.Logger, models.MatchEvent{
		Type:          models.MatchProposedEvent,
		MatchID:       match.ID,
		DonorID:       match.DonorID,
		RequestID:     match.RequestID,
		Status:        match.Status,
		RequestStatus: models.MatchedRequest,
		OccurredAt:    match.CreatedAt,
	})
}

// cause возвращает внутреннюю причину ошибки движка для логирования.
func cause(err error) error {
	var engineErr *models.EngineError
	if errors.As(err, &engineErr) && engineErr.Cause != nil {
		return engineErr.Cause
	}
	return err
}
