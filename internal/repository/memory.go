package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/google/uuid"
)

// MemoryRepo хранит доноров, запросы и пары в памяти, когда база данных отключена.
// Все операции выполняются под одной блокировкой, поэтому каскады атомарны.
type MemoryRepo struct {
	mu       sync.RWMutex
	donors   map[string]models.Donor
	requests map[string]models.Request
	matches  map[string]models.Match
}

// NewMemoryRepo создает пустое хранилище в памяти.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		donors:   map[string]models.Donor{},
		requests: map[string]models.Request{},
		matches:  map[string]models.Match{},
	}
}

// Store возвращает набор репозиториев поверх этого хранилища.
func (m *MemoryRepo) Store() *Store {
	return &Store{Donors: m, Requests: m, Matches: m}
}

// UpsertDonor создает или обновляет донора. Неактивный донор остается неактивным.
func (m *MemoryRepo) UpsertDonor(_ context.Context, donor models.Donor) (*models.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.donors[donor.ID]; ok {
		donor.CreatedAt = existing.CreatedAt
		donor.Active = existing.Active && donor.Active
	} else if donor.CreatedAt.IsZero() {
		donor.CreatedAt = now
	}
	donor.UpdatedAt = now
	donor.OrganOffered = append([]models.OrganType(nil), donor.OrganOffered...)
	m.donors[donor.ID] = donor
	return cloneDonor(donor), nil
}

// GetDonor получает донора по ID.
func (m *MemoryRepo) GetDonor(_ context.Context, donorId string) (*models.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	donor, ok := m.donors[donorId]
	if !ok {
		return nil, models.NotFoundf("donor %s", donorId)
	}
	return cloneDonor(donor), nil
}

// ListActiveDonors возвращает активных доноров, упорядоченных по id.
func (m *MemoryRepo) ListActiveDonors(_ context.Context) ([]models.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var donors []models.Donor
	for _, d := range m.donors {
		if d.Active {
			donors = append(donors, *cloneDonor(d))
		}
	}
	sort.Slice(donors, func(i, j int) bool { return donors[i].ID < donors[j].ID })
	return donors, nil
}

// WithdrawDonor выводит донора из пула, если у него нет активной пары.
func (m *MemoryRepo) WithdrawDonor(_ context.Context, donorId string, at time.Time) (*models.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	donor, ok := m.donors[donorId]
	if !ok {
		return nil, models.NotFoundf("donor %s", donorId)
	}
	for _, match := range m.matches {
		if match.DonorID == donorId && match.Status.Active() {
			return nil, models.ConcurrentModificationf("donor %s holds an active match", donorId)
		}
	}
	donor.Active = false
	donor.UpdatedAt = at
	m.donors[donorId] = donor
	return cloneDonor(donor), nil
}

// CreateRequest создает новый запрос реципиента.
func (m *MemoryRepo) CreateRequest(_ context.Context, request models.Request) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	request.UpdatedAt = request.CreatedAt
	m.requests[request.ID] = request
	return &request, nil
}

// GetRequest получает запрос по ID.
func (m *MemoryRepo) GetRequest(_ context.Context, requestId string) (*models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	request, ok := m.requests[requestId]
	if !ok {
		return nil, models.NotFoundf("request %s", requestId)
	}
	return &request, nil
}

// ListRequests возвращает страницу запросов, при пустом статусе - все.
func (m *MemoryRepo) ListRequests(_ context.Context, status models.RequestStatus, limit, offset int) ([]models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sortedRequests(status)
	return page(all, limit, offset), nil
}

// ListPendingRequests возвращает все запросы в статусе pending.
func (m *MemoryRepo) ListPendingRequests(_ context.Context) ([]models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedRequests(models.PendingRequest), nil
}

func (m *MemoryRepo) sortedRequests(status models.RequestStatus) []models.Request {
	var all []models.Request
	for _, r := range m.requests {
		if status != "" && r.Status != status {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return all
}

// CreateMatches создает пары и переводит запросы в matched. При ошибке ничего не меняется.
func (m *MemoryRepo) CreateMatches(_ context.Context, proposals []models.MatchProposal, at time.Time) ([]models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	heldDonors := map[string]bool{}
	heldRequests := map[string]bool{}
	for _, match := range m.matches {
		if match.Status.Active() {
			heldDonors[match.DonorID] = true
		}
		if match.Status != models.RejectedMatch {
			heldRequests[match.RequestID] = true
		}
	}

	// сначала проверяем все предложения, затем пишем
	for _, p := range proposals {
		donor, ok := m.donors[p.DonorID]
		if !ok {
			return nil, models.NotFoundf("donor %s", p.DonorID)
		}
		if !donor.Active {
			return nil, models.ConcurrentModificationf("donor %s is no longer active", p.DonorID)
		}
		request, ok := m.requests[p.RequestID]
		if !ok {
			return nil, models.NotFoundf("request %s", p.RequestID)
		}
		if request.Status != models.PendingRequest {
			return nil, models.ConcurrentModificationf("request %s is no longer pending", p.RequestID)
		}
		if heldDonors[p.DonorID] || heldRequests[p.RequestID] {
			return nil, models.ConcurrentModificationf("donor %s or request %s already holds an active match", p.DonorID, p.RequestID)
		}
		heldDonors[p.DonorID] = true
		heldRequests[p.RequestID] = true
	}

	created := make([]models.Match, 0, len(proposals))
	for _, p := range proposals {
		request := m.requests[p.RequestID]
		request.Status = models.MatchedRequest
		request.UpdatedAt = at
		m.requests[p.RequestID] = request

		match := models.Match{
			ID:        uuid.New().String(),
			DonorID:   p.DonorID,
			RequestID: p.RequestID,
			Score:     p.Score,
			Status:    models.ProposedMatch,
			Version:   1,
			CreatedAt: at,
			UpdatedAt: at,
		}
		m.matches[match.ID] = match
		created = append(created, m.view(match))
	}
	return created, nil
}

// GetMatch получает пару по ID.
func (m *MemoryRepo) GetMatch(_ context.Context, matchId string) (*models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match, ok := m.matches[matchId]
	if !ok {
		return nil, models.NotFoundf("match %s", matchId)
	}
	view := m.view(match)
	return &view, nil
}

// ListMatches возвращает пары по фильтру, новые первыми.
func (m *MemoryRepo) ListMatches(_ context.Context, filter models.MatchFilter) ([]models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []models.Match
	for _, match := range m.matches {
		view := m.view(match)
		if filter.Status != "" && view.Status != filter.Status {
			continue
		}
		if filter.OrganType != "" && view.OrganType != filter.OrganType {
			continue
		}
		if filter.UrgencyLevel != "" && view.UrgencyLevel != filter.UrgencyLevel {
			continue
		}
		if filter.DonorID != "" && view.DonorID != filter.DonorID {
			continue
		}
		if filter.RequestID != "" && view.RequestID != filter.RequestID {
			continue
		}
		all = append(all, view)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	if filter.Limit <= 0 {
		return all, nil
	}
	return page(all, filter.Limit, filter.Offset), nil
}

// ListActiveMatches возвращает пары в статусах proposed и confirmed.
func (m *MemoryRepo) ListActiveMatches(_ context.Context) ([]models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []models.Match
	for _, match := range m.matches {
		if match.Status.Active() {
			active = append(active, m.view(match))
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

// ApplyTransition применяет переход пары вместе с каскадом.
func (m *MemoryRepo) ApplyTransition(_ context.Context, t models.Transition) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	match, ok := m.matches[t.MatchID]
	if !ok {
		return nil, models.NotFoundf("match %s", t.MatchID)
	}
	if match.Version != t.ExpectedVersion || match.Status != t.From {
		return nil, models.ConcurrentModificationf("match %s was modified concurrently", t.MatchID)
	}
	request, ok := m.requests[match.RequestID]
	if !ok {
		return nil, models.NotFoundf("request %s", match.RequestID)
	}
	if t.RequestTo != "" && request.Status != t.RequestFrom {
		return nil, models.ConcurrentModificationf("request %s is not %s", request.ID, t.RequestFrom)
	}

	at := t.At
	match.Status = t.To
	match.Version++
	match.UpdatedAt = at
	if t.Reason != "" {
		match.Reason = t.Reason
	}
	switch t.To {
	case models.ConfirmedMatch:
		match.ConfirmedAt = &at
	case models.FulfilledMatch:
		match.FulfilledAt = &at
	case models.RejectedMatch:
		match.RejectedAt = &at
	}
	m.matches[match.ID] = match

	if t.RequestTo != "" {
		request.Status = t.RequestTo
		request.UpdatedAt = at
		m.requests[request.ID] = request
	}
	if t.DeactivateDonor {
		if donor, ok := m.donors[match.DonorID]; ok {
			donor.Active = false
			donor.UpdatedAt = at
			m.donors[donor.ID] = donor
		}
	}

	view := m.view(match)
	return &view, nil
}

// view дополняет пару полями связанного запроса.
func (m *MemoryRepo) view(match models.Match) models.Match {
	if request, ok := m.requests[match.RequestID]; ok {
		match.OrganType = request.OrganType
		match.UrgencyLevel = request.UrgencyLevel
	}
	return match
}

func cloneDonor(d models.Donor) *models.Donor {
	d.OrganOffered = append([]models.OrganType(nil), d.OrganOffered...)
	return &d
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
