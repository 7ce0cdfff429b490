package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/organ-match-service/internal/lock"
	"github.com/senyabanana/organ-match-service/internal/matching"
	"github.com/senyabanana/organ-match-service/internal/models"
	"github.com/senyabanana/organ-match-service/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// recordingPublisher запоминает опубликованные события.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.MatchEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event models.MatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []models.EventType
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type testEnv struct {
	repo       *repository.MemoryRepo
	store      *repository.Store
	publisher  *recordingPublisher
	matches    *MatchService
	allocation *AllocationService
	registry   *RegistryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := repository.NewMemoryRepo()
	store := repo.Store()
	publisher := &recordingPublisher{}
	logger := zap.NewNop()

	matches := NewMatchService(store.Matches, publisher, logger)
	allocation := NewAllocationService(store, lock.NewLocalLocker(), matching.DefaultWeights(), publisher, logger)
	return &testEnv{
		repo:       repo,
		store:      store,
		publisher:  publisher,
		matches:    matches,
		allocation: allocation,
		registry:   NewRegistryService(store, matches, allocation.Evaluator, logger),
	}
}

func (e *testEnv) addDonor(t *testing.T, id string, bg models.BloodGroup, city string, organs ...models.OrganType) {
	t.Helper()
	_, err := e.store.Donors.UpsertDonor(context.Background(), models.Donor{
		ID:                    id,
		BloodGroup:            bg,
		OrganOffered:          organs,
		City:                  city,
		Region:                "north",
		AvailableForEmergency: true,
		Active:                true,
	})
	require.NoError(t, err)
}

func (e *testEnv) addRequest(t *testing.T, id string, organ models.OrganType, bg models.BloodGroup, urgency models.UrgencyLevel, created time.Time) {
	t.Helper()
	_, err := e.store.Requests.CreateRequest(context.Background(), models.Request{
		ID:           id,
		OrganType:    organ,
		BloodGroup:   bg,
		UrgencyLevel: urgency,
		RecipientID:  "recipient-" + id,
		City:         "Kazan",
		Region:       "north",
		Status:       models.PendingRequest,
		CreatedAt:    created,
	})
	require.NoError(t, err)
}

func (e *testEnv) requestStatus(t *testing.T, id string) models.RequestStatus {
	t.Helper()
	request, err := e.store.Requests.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return request.Status
}

func (e *testEnv) onlyMatch(t *testing.T, filter models.MatchFilter) models.Match {
	t.Helper()
	matches, err := e.store.Matches.ListMatches(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return matches[0]
}
