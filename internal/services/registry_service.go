package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/senyabanana/organ-match-service/internal/matching"
	"github.com/senyabanana/organ-match-service/internal/models"
	"github.com/senyabanana/organ-match-service/internal/repository"
	"github.com/senyabanana/organ-match-service/internal/utils"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// withdrawAttempts ограничивает повторы отзыва донора при гонке с проходом подбора.
const withdrawAttempts = 3

const (
	reasonDonorWithdrawn     = "donor withdrawn"
	reasonReevaluationFailed = "medical re-evaluation failed"
)

// RegistryService принимает записи доноров и запросов от внешнего слоя профилей.
type RegistryService struct {
	Store     *repository.Store
	Matches   *MatchService
	Evaluator *matching.Evaluator
	Logger    *zap.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// NewRegistryService создает новый экземпляр RegistryService.
func NewRegistryService(store *repository.Store, matches *MatchService, evaluator *matching.Evaluator, logger *zap.Logger) *RegistryService {
	return &RegistryService{
		Store:     store,
		Matches:   matches,
		Evaluator: evaluator,
		Logger:    logger,
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UpsertDonor создает или обновляет донора. Без явного active новый донор
// активен, а существующий сохраняет текущее значение. Снятый с учета донор
// повторно не активируется. Если донор удерживает активную пару, active=false
// проводится как отзыв, а смена медицинских полей перепроверяет совместимость пары.
func (s *RegistryService) UpsertDonor(ctx context.Context, donorId string, req models.DonorRequest) (*models.Donor, error) {
	donorId = strings.TrimSpace(donorId)
	if donorId == "" || len(donorId) > 100 {
		return nil, models.Validationf("donor id must be 1-100 characters")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, models.Validationf("%s", utils.ValidationMessage(err))
	}

	bloodGroup, err := models.ParseBloodGroup(req.BloodGroup)
	if err != nil {
		return nil, err
	}
	organs := make([]models.OrganType, 0, len(req.OrganOffered))
	for _, o := range req.OrganOffered {
		organ, err := models.ParseOrganType(o)
		if err != nil {
			return nil, err
		}
		if !utils.Contains(organs, organ) {
			organs = append(organs, organ)
		}
	}

	active := true
	var held *models.Match
	existing, err := s.Store.Donors.GetDonor(ctx, donorId)
	switch {
	case err == nil:
		if !existing.Active && req.Active != nil && *req.Active {
			return nil, models.InvalidTransitionf("donor %s is retired and cannot be re-activated", donorId)
		}
		active = existing.Active
		if held, err = s.heldMatch(ctx, donorId); err != nil {
			return nil, err
		}
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}
	withdraw := req.Active != nil && !*req.Active && held != nil
	if req.Active != nil && !withdraw {
		active = *req.Active
	}

	donor, err := s.Store.Donors.UpsertDonor(ctx, models.Donor{
		ID:                    donorId,
		BloodGroup:            bloodGroup,
		OrganOffered:          organs,
		City:                  strings.TrimSpace(req.City),
		Region:                strings.TrimSpace(req.Region),
		AvailableForEmergency: req.AvailableForEmergency,
		Active:                active,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("donor upserted", zap.String("donor_id", donor.ID), zap.Bool("active", donor.Active))

	switch {
	case withdraw:
		return s.WithdrawDonor(ctx, donorId)
	case held != nil:
		if err := s.reevaluateHeld(ctx, donor, held); err != nil {
			return nil, err
		}
	}
	return donor, nil
}

// reevaluateHeld отклоняет удерживаемую пару, если с новым профилем донор
// больше не совместим с запросом. Запрос возвращается в пул.
func (s *RegistryService) reevaluateHeld(ctx context.Context, donor *models.Donor, held *models.Match) error {
	request, err := s.Store.Requests.GetRequest(ctx, held.RequestID)
	if err != nil {
		return err
	}
	verdict := s.Evaluator.Evaluate(*donor, *request)
	if verdict.Eligible {
		return nil
	}

	if _, err := s.Matches.rejectHeld(ctx, held, reasonReevaluationFailed, false); err != nil {
		return err
	}
	s.Logger.Info("held match rejected after donor update",
		zap.String("donor_id", donor.ID),
		zap.String("match_id", held.ID),
		zap.String("failed_rule", string(verdict.FailedRule)))
	return nil
}

// GetDonor получает донора по ID.
func (s *RegistryService) GetDonor(ctx context.Context, donorId string) (*models.Donor, error) {
	if donorId == "" {
		return nil, models.Validationf("donor id is required")
	}
	return s.Store.Donors.GetDonor(ctx, donorId)
}

// WithdrawDonor снимает донора с учета. Активная пара донора отклоняется,
// а её запрос возвращается в пул.
func (s *RegistryService) WithdrawDonor(ctx context.Context, donorId string) (*models.Donor, error) {
	if donorId == "" {
		return nil, models.Validationf("donor id is required")
	}

	var err error
	for attempt := 0; attempt < withdrawAttempts; attempt++ {
		var held *models.Match
		held, err = s.activeMatch(ctx, donorId)
		if err != nil {
			return nil, err
		}

		if held != nil {
			_, err = s.Matches.rejectHeld(ctx, held, reasonDonorWithdrawn, true)
		} else {
			var donor *models.Donor
			donor, err = s.Store.Donors.WithdrawDonor(ctx, donorId, s.now())
			if err == nil {
				s.Logger.Info("donor withdrawn", zap.String("donor_id", donorId))
				return donor, nil
			}
		}
		if err == nil {
			s.Logger.Info("donor withdrawn, active match rejected",
				zap.String("donor_id", donorId),
				zap.String("match_id", held.ID))
			return s.Store.Donors.GetDonor(ctx, donorId)
		}
		if !errors.Is(err, models.ErrConcurrentModification) {
			return nil, err
		}
	}
	return nil, err
}

func (s *RegistryService) activeMatch(ctx context.Context, donorId string) (*models.Match, error) {
	if _, err := s.Store.Donors.GetDonor(ctx, donorId); err != nil {
		return nil, err
	}
	return s.heldMatch(ctx, donorId)
}

// heldMatch возвращает активную пару донора или nil.
func (s *RegistryService) heldMatch(ctx context.Context, donorId string) (*models.Match, error) {
	matches, err := s.Store.Matches.ListMatches(ctx, models.MatchFilter{DonorID: donorId})
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if matches[i].Status.Active() {
			return &matches[i], nil
		}
	}
	return nil, nil
}

// CreateRequest создает запрос реципиента в статусе pending.
func (s *RegistryService) CreateRequest(ctx context.Context, req models.RecipientRequest) (*models.Request, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.Validationf("%s", utils.ValidationMessage(err))
	}

	organ, err := models.ParseOrganType(req.OrganType)
	if err != nil {
		return nil, err
	}
	bloodGroup, err := models.ParseBloodGroup(req.BloodGroup)
	if err != nil {
		return nil, err
	}
	urgency, err := models.ParseUrgencyLevel(req.UrgencyLevel)
	if err != nil {
		return nil, err
	}

	request, err := s.Store.Requests.CreateRequest(ctx, models.Request{
		OrganType:    organ,
		BloodGroup:   bloodGroup,
		UrgencyLevel: urgency,
		RecipientID:  strings.TrimSpace(req.RecipientID),
		City:         strings.TrimSpace(req.City),
		Region:       strings.TrimSpace(req.Region),
		Status:       models.PendingRequest,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("request created",
		zap.String("request_id", request.ID),
		zap.String("organ_type", string(request.OrganType)),
		zap.String("urgency", string(request.UrgencyLevel)))
	return request, nil
}

// GetRequest получает запрос по ID.
func (s *RegistryService) GetRequest(ctx context.Context, requestId string) (*models.Request, error) {
	if requestId == "" {
		return nil, models.Validationf("request id is required")
	}
	return s.Store.Requests.GetRequest(ctx, requestId)
}

// ListRequests получает список запросов по статусу.
func (s *RegistryService) ListRequests(ctx context.Context, status, limitStr, offsetStr string) ([]models.Request, error) {
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.Validationf("%s", err.Error())
	}
	requestStatus := models.RequestStatus(status)
	if status != "" && !requestStatus.Valid() {
		return nil, models.Validationf("unknown request status %q", status)
	}
	return s.Store.Requests.ListRequests(ctx, requestStatus, limit, offset)
}
