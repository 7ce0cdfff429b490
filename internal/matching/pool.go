package matching

import (
	"context"

	"github.com/senyabanana/organ-match-service/internal/models"

	"go.uber.org/zap"
)

// Source - хранилища, из которых собирается пул кандидатов.
type Source interface {
	ListPendingRequests(ctx context.Context) ([]models.Request, error)
	ListActiveDonors(ctx context.Context) ([]models.Donor, error)
	ListActiveMatches(ctx context.Context) ([]models.Match, error)
}

// Pool - рабочий набор одного прохода подбора.
type Pool struct {
	OpenRequests []models.Request
	FreeDonors   []models.Donor
	Skipped      int
}

// PoolBuilder собирает пул кандидатов.
type PoolBuilder struct {
	source Source
	logger *zap.Logger
}

// NewPoolBuilder создает новый экземпляр PoolBuilder.
func NewPoolBuilder(source Source, logger *zap.Logger) *PoolBuilder {
	return &PoolBuilder{source: source, logger: logger}
}

// Build читает открытые запросы и свободных доноров. Любая ошибка чтения
// прерывает сборку целиком: частичный пул не возвращается.
func (b *PoolBuilder) Build(ctx context.Context) (*Pool, error) {
	active, err := b.source.ListActiveMatches(ctx)
	if err != nil {
		return nil, models.NewEngineError(models.ErrPoolRead, err, "active matches unavailable")
	}
	heldDonors := make(map[string]struct{}, len(active))
	heldRequests := make(map[string]struct{}, len(active))
	for _, m := range active {
		heldDonors[m.DonorID] = struct{}{}
		heldRequests[m.RequestID] = struct{}{}
	}

	requests, err := b.source.ListPendingRequests(ctx)
	if err != nil {
		return nil, models.NewEngineError(models.ErrPoolRead, err, "requests unavailable")
	}
	donors, err := b.source.ListActiveDonors(ctx)
	if err != nil {
		return nil, models.NewEngineError(models.ErrPoolRead, err, "donors unavailable")
	}

	pool := &Pool{}
	for _, r := range requests {
		if r.Status != models.PendingRequest {
			continue
		}
		if _, held := heldRequests[r.ID]; held {
			continue
		}
		if err := r.Validate(); err != nil {
			b.logger.Warn("request excluded from pool", zap.String("request_id", r.ID), zap.Error(err))
			pool.Skipped++
			continue
		}
		pool.OpenRequests = append(pool.OpenRequests, r)
	}
	for _, d := range donors {
		if !d.Active {
			continue
		}
		if _, held := heldDonors[d.ID]; held {
			continue
		}
		if err := d.Validate(); err != nil {
			b.logger.Warn("donor excluded from pool", zap.String("donor_id", d.ID), zap.Error(err))
			pool.Skipped++
			continue
		}
		pool.FreeDonors = append(pool.FreeDonors, d)
	}
	return pool, nil
}
