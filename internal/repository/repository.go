package repository

import (
	"context"
	"time"

	"github.com/senyabanana/organ-match-service/internal/models"
)

// DonorRepository - интерфейс для работы с донорами.
type DonorRepository interface {
	UpsertDonor(ctx context.Context, donor models.Donor) (*models.Donor, error)
	GetDonor(ctx context.Context, donorId string) (*models.Donor, error)
	ListActiveDonors(ctx context.Context) ([]models.Donor, error)
	WithdrawDonor(ctx context.Context, donorId string, at time.Time) (*models.Donor, error)
}

// RequestRepository - интерфейс для работы с запросами реципиентов.
type RequestRepository interface {
	CreateRequest(ctx context.Context, request models.Request) (*models.Request, error)
	GetRequest(ctx context.Context, requestId string) (*models.Request, error)
	ListRequests(ctx context.Context, status models.RequestStatus, limit, offset int) ([]models.Request, error)
	ListPendingRequests(ctx context.Context) ([]models.Request, error)
}

// MatchRepository - интерфейс для работы с парами.
// CreateMatches и ApplyTransition атомарны вместе с каскадом на запрос и донора.
type MatchRepository interface {
	CreateMatches(ctx context.Context, proposals []models.MatchProposal, at time.Time) ([]models.Match, error)
	GetMatch(ctx context.Context, matchId string) (*models.Match, error)
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.Match, error)
	ListActiveMatches(ctx context.Context) ([]models.Match, error)
	ApplyTransition(ctx context.Context, t models.Transition) (*models.Match, error)
}

// Store объединяет репозитории одного хранилища.
type Store struct {
	Donors   DonorRepository
	Requests RequestRepository
	Matches  MatchRepository
}

// ListPendingRequests делегирует RequestRepository; Store служит источником пула кандидатов.
func (s *Store) ListPendingRequests(ctx context.Context) ([]models.Request, error) {
	return s.Requests.ListPendingRequests(ctx)
}

// ListActiveDonors делегирует DonorRepository.
func (s *Store) ListActiveDonors(ctx context.Context) ([]models.Donor, error) {
	return s.Donors.ListActiveDonors(ctx)
}

// ListActiveMatches делегирует MatchRepository.
func (s *Store) ListActiveMatches(ctx context.Context) ([]models.Match, error) {
	return s.Matches.ListActiveMatches(ctx)
}
