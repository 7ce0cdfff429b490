package services

import (
	"context"
	"time"

	"github.com/senyabanana/organ-match-service/internal/events"
	"github.com/senyabanana/organ-match-service/internal/models"
	"github.com/senyabanana/organ-match-service/internal/repository"
	"github.com/senyabanana/organ-match-service/internal/utils"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// allowedStatusTransition - допустимые переходы статусов пары.
var allowedStatusTransition = map[models.MatchStatus][]models.MatchStatus{
	models.ProposedMatch:  {models.ConfirmedMatch, models.RejectedMatch},
	models.ConfirmedMatch: {models.FulfilledMatch, models.RejectedMatch},
	models.FulfilledMatch: {},
	models.RejectedMatch:  {},
}

// MatchService управляет жизненным циклом пар.
type MatchService struct {
	Repo      repository.MatchRepository
	Publisher events.Publisher
	Logger    *zap.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// NewMatchService создает новый экземпляр MatchService.
func NewMatchService(repo repository.MatchRepository, publisher events.Publisher, logger *zap.Logger) *MatchService {
	return &MatchService{
		Repo:      repo,
		Publisher: publisher,
		Logger:    logger,
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetMatch получает пару по идентификатору.
func (s *MatchService) GetMatch(ctx context.Context, matchId string) (*models.Match, error) {
	if matchId == "" {
		return nil, models.Validationf("match id is required")
	}
	return s.Repo.GetMatch(ctx, matchId)
}

// ListMatches получает список пар с фильтрами.
func (s *MatchService) ListMatches(ctx context.Context, status, organType, urgency, donorId, requestId, limitStr, offsetStr string) ([]models.Match, error) {
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.Validationf("%s", err.Error())
	}

	filter := models.MatchFilter{DonorID: donorId, RequestID: requestId, Limit: limit, Offset: offset}
	if status != "" {
		filter.Status = models.MatchStatus(status)
		if !filter.Status.Valid() {
			return nil, models.Validationf("unknown match status %q", status)
		}
	}
	if organType != "" {
		if filter.OrganType, err = models.ParseOrganType(organType); err != nil {
			return nil, err
		}
	}
	if urgency != "" {
		if filter.UrgencyLevel, err = models.ParseUrgencyLevel(urgency); err != nil {
			return nil, err
		}
	}
	return s.Repo.ListMatches(ctx, filter)
}

// UpdateMatchStatus меняет статус пары по запросу оператора.
func (s *MatchService) UpdateMatchStatus(ctx context.Context, matchId string, req models.MatchStatusRequest) (*models.Match, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.Validationf("%s", utils.ValidationMessage(err))
	}
	status := models.MatchStatus(req.Status)
	if !status.Valid() {
		return nil, models.Validationf("unknown match status %q", req.Status)
	}
	return s.ApplyTransition(ctx, matchId, status, req.Reason)
}

// ApplyTransition переводит пару в новый статус вместе с каскадом на запрос и донора.
// Из двух конкурентных переходов одной пары успешен только один, второй получает
// ErrConcurrentModification.
func (s *MatchService) ApplyTransition(ctx context.Context, matchId string, to models.MatchStatus, reason string) (*models.Match, error) {
	current, err := s.GetMatch(ctx, matchId)
	if err != nil {
		return nil, err
	}
	t, err := planTransition(current, to, reason, s.now())
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, t)
}

// UpdateRequestStatusByMatchID меняет статус запроса через связанную пару.
// fulfilled исполняет пару, pending и rejected отклоняют её; matched вручную
// не выставляется.
func (s *MatchService) UpdateRequestStatusByMatchID(ctx context.Context, matchId string, req models.RequestStatusRequest) (*models.Match, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.Validationf("%s", utils.ValidationMessage(err))
	}
	status := models.RequestStatus(req.Status)
	if !status.Valid() {
		return nil, models.Validationf("unknown request status %q", req.Status)
	}

	current, err := s.GetMatch(ctx, matchId)
	if err != nil {
		return nil, err
	}

	var t models.Transition
	switch status {
	case models.FulfilledRequest:
		t, err = planTransition(current, models.FulfilledMatch, "", s.now())
	case models.PendingRequest:
		t, err = planTransition(current, models.RejectedMatch, "request returned to pending", s.now())
	case models.RejectedRequest:
		t, err = planTransition(current, models.RejectedMatch, "request closed", s.now())
		t.RequestTo = models.RejectedRequest
	default:
		return nil, models.InvalidTransitionf("request status %s cannot be set through match %s", status, matchId)
	}
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, t)
}

// rejectHeld отклоняет активную пару донора, профиль которого изменился.
// При deactivateDonor донор снимается с учета в той же транзакции.
func (s *MatchService) rejectHeld(ctx context.Context, match *models.Match, reason string, deactivateDonor bool) (*models.Match, error) {
	t, err := planTransition(match, models.RejectedMatch, reason, s.now())
	if err != nil {
		return nil, err
	}
	t.DeactivateDonor = deactivateDonor
	return s.commit(ctx, t)
}

func (s *MatchService) commit(ctx context.Context, t models.Transition) (*models.Match, error) {
	updated, err := s.Repo.ApplyTransition(ctx, t)
	if err != nil {
		s.Logger.Warn("match transition failed",
			zap.String("match_id", t.MatchID),
			zap.String("from", string(t.From)),
			zap.String("to", string(t.To)),
			zap.Error(err))
		return nil, err
	}

	s.Logger.Info("match transition applied",
		zap.String("match_id", updated.ID),
		zap.String("status", string(updated.Status)),
		zap.Int("version", updated.Version))

	requestStatus := t.RequestTo
	if requestStatus == "" {
		requestStatus = models.MatchedRequest
	}
	publish(ctx, s.Publisher, s.Logger, models.MatchEvent{
		Type:          models.EventTypeFor(updated.Status),
		MatchID:       updated.ID,
		DonorID:       updated.DonorID,
		RequestID:     updated.RequestID,
		Status:        updated.Status,
		RequestStatus: requestStatus,
		OccurredAt:    t.At,
	})
	return updated, nil
}

// planTransition проверяет переход по таблице и описывает каскад на связанные записи.
func planTransition(match *models.Match, to models.MatchStatus, reason string, at time.Time) (models.Transition, error) {
	if !to.Valid() {
		return models.Transition{}, models.Validationf("unknown match status %q", to)
	}
	if !utils.Contains(allowedStatusTransition[match.Status], to) {
		return models.Transition{}, models.InvalidTransitionf("match %s: %s -> %s is not allowed", match.ID, match.Status, to)
	}

	t := models.Transition{
		MatchID:         match.ID,
		From:            match.Status,
		To:              to,
		ExpectedVersion: match.Version,
		Reason:          reason,
		At:              at,
	}
	switch to {
	case models.RejectedMatch:
		t.RequestFrom = models.MatchedRequest
		t.RequestTo = models.PendingRequest
	case models.FulfilledMatch:
		t.RequestFrom = models.MatchedRequest
		t.RequestTo = models.FulfilledRequest
		t.DeactivateDonor = true
	}
	return t, nil
}

// publish отправляет событие после фиксации. Ошибка доставки только логируется.
func publish(ctx context.Context, publisher events.Publisher, logger *zap.Logger, event models.MatchEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish match event",
			zap.String("type", string(event.Type)),
			zap.String("match_id", event.MatchID),
			zap.Error(err))
	}
}
