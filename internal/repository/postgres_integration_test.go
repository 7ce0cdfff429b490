package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestPool подключается к TEST_DATABASE_URL и накатывает миграции; без переменной тест пропускается.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL is not set")
	}

	m, err := migrate.New("file://../../migrations", dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to run migrate up: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresRepositories_Lifecycle(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()

	donors := NewPostgresDonorRepository(pool)
	requests := NewPostgresRequestRepository(pool)
	matches := NewPostgresMatchRepository(pool)

	donorId := "it-donor-" + uuid.NewString()
	requestId := "it-request-" + uuid.NewString()
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM organ_match WHERE donor_id = $1`, donorId)
		pool.Exec(ctx, `DELETE FROM request WHERE id = $1`, requestId)
		pool.Exec(ctx, `DELETE FROM donor WHERE id = $1`, donorId)
	})

	donor, err := donors.UpsertDonor(ctx, models.Donor{
		ID:           donorId,
		BloodGroup:   models.BloodOMinus,
		OrganOffered: []models.OrganType{models.Kidney, models.Liver},
		City:         "cityA",
		Active:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.OrganType{models.Kidney, models.Liver}, donor.OrganOffered)

	_, err = requests.CreateRequest(ctx, models.Request{
		ID:           requestId,
		OrganType:    models.Kidney,
		BloodGroup:   models.BloodOPlus,
		UrgencyLevel: models.UrgencyCritical,
		RecipientID:  "patient-1",
		City:         "cityA",
		Status:       models.PendingRequest,
	})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	created, err := matches.CreateMatches(ctx, []models.MatchProposal{{DonorID: donorId, RequestID: requestId, Score: 85}}, now)
	require.NoError(t, err)
	require.Len(t, created, 1)

	// повторная пара для уже подобранного запроса отклоняется
	_, err = matches.CreateMatches(ctx, []models.MatchProposal{{DonorID: donorId, RequestID: requestId, Score: 85}}, now)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)

	_, err = donors.WithdrawDonor(ctx, donorId, now)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)

	match, err := matches.ApplyTransition(ctx, models.Transition{
		MatchID:         created[0].ID,
		From:            models.ProposedMatch,
		To:              models.RejectedMatch,
		ExpectedVersion: 1,
		Reason:          "recipient declined",
		RequestFrom:     models.MatchedRequest,
		RequestTo:       models.PendingRequest,
		At:              now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RejectedMatch, match.Status)
	assert.Equal(t, "recipient declined", match.Reason)
	assert.Equal(t, 2, match.Version)
	require.NotNil(t, match.RejectedAt)

	request, err := requests.GetRequest(ctx, requestId)
	require.NoError(t, err)
	assert.Equal(t, models.PendingRequest, request.Status)

	_, err = matches.ApplyTransition(ctx, models.Transition{
		MatchID: created[0].ID, From: models.ProposedMatch, To: models.ConfirmedMatch, ExpectedVersion: 1, At: now,
	})
	assert.ErrorIs(t, err, models.ErrConcurrentModification)

	listed, err := matches.ListMatches(ctx, models.MatchFilter{DonorID: donorId, Status: models.RejectedMatch, Limit: 10})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, models.Kidney, listed[0].OrganType)

	_, err = matches.GetMatch(ctx, uuid.NewString())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresDonorRepository_UpsertNeverReactivates(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()
	donors := NewPostgresDonorRepository(pool)

	donorId := "it-donor-" + uuid.NewString()
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM donor WHERE id = $1`, donorId)
	})

	profile := models.Donor{ID: donorId, BloodGroup: models.BloodAPlus, OrganOffered: []models.OrganType{models.Heart}, City: "cityA", Active: true}
	_, err := donors.UpsertDonor(ctx, profile)
	require.NoError(t, err)
	_, err = donors.WithdrawDonor(ctx, donorId, time.Now().UTC())
	require.NoError(t, err)

	updated, err := donors.UpsertDonor(ctx, profile)
	require.NoError(t, err)
	assert.False(t, updated.Active)
}
