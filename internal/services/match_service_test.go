package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proposedMatch(t *testing.T, env *testEnv) models.Match {
	t.Helper()
	env.addDonor(t, "d1", models.BloodOMinus, "Kazan", models.Kidney)
	env.addRequest(t, "r1", models.Kidney, models.BloodOPlus, models.UrgencyCritical, t0)
	created, err := env.store.Matches.CreateMatches(context.Background(),
		[]models.MatchProposal{{DonorID: "d1", RequestID: "r1", Score: 85}}, t0)
	require.NoError(t, err)
	return created[0]
}

func TestApplyTransition_FollowsStateMachine(t *testing.T) {
	tests := []struct {
		name string
		path []models.MatchStatus
		ok   bool
	}{
		{"confirm", []models.MatchStatus{models.ConfirmedMatch}, true},
		{"reject proposed", []models.MatchStatus{models.RejectedMatch}, true},
		{"fulfil confirmed", []models.MatchStatus{models.ConfirmedMatch, models.FulfilledMatch}, true},
		{"reject confirmed", []models.MatchStatus{models.ConfirmedMatch, models.RejectedMatch}, true},
		{"fulfil proposed", []models.MatchStatus{models.FulfilledMatch}, false},
		{"back to proposed", []models.MatchStatus{models.ProposedMatch}, false},
		{"confirm twice", []models.MatchStatus{models.ConfirmedMatch, models.ConfirmedMatch}, false},
		{"leave fulfilled", []models.MatchStatus{models.ConfirmedMatch, models.FulfilledMatch, models.RejectedMatch}, false},
		{"leave rejected", []models.MatchStatus{models.RejectedMatch, models.ConfirmedMatch}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			match := proposedMatch(t, env)

			var err error
			for _, to := range tt.path {
				if _, err = env.matches.ApplyTransition(context.Background(), match.ID, to, ""); err != nil {
					break
				}
			}
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, models.ErrInvalidTransition)
			}
		})
	}
}

func TestApplyTransition_Cascades(t *testing.T) {
	ctx := context.Background()

	t.Run("rejection returns request to pool", func(t *testing.T) {
		env := newTestEnv(t)
		match := proposedMatch(t, env)

		_, err := env.matches.ApplyTransition(ctx, match.ID, models.ConfirmedMatch, "")
		require.NoError(t, err)
		rejected, err := env.matches.ApplyTransition(ctx, match.ID, models.RejectedMatch, "recipient unfit")
		require.NoError(t, err)

		assert.Equal(t, models.RejectedMatch, rejected.Status)
		assert.Equal(t, "recipient unfit", rejected.Reason)
		assert.Equal(t, 3, rejected.Version)
		assert.NotNil(t, rejected.RejectedAt)
		assert.Equal(t, models.PendingRequest, env.requestStatus(t, "r1"))

		donor, err := env.store.Donors.GetDonor(ctx, "d1")
		require.NoError(t, err)
		assert.True(t, donor.Active)
	})

	t.Run("fulfilment retires donor", func(t *testing.T) {
		env := newTestEnv(t)
		match := proposedMatch(t, env)

		_, err := env.matches.ApplyTransition(ctx, match.ID, models.ConfirmedMatch, "")
		require.NoError(t, err)
		fulfilled, err := env.matches.ApplyTransition(ctx, match.ID, models.FulfilledMatch, "")
		require.NoError(t, err)

		assert.NotNil(t, fulfilled.FulfilledAt)
		assert.Equal(t, models.FulfilledRequest, env.requestStatus(t, "r1"))
		donor, err := env.store.Donors.GetDonor(ctx, "d1")
		require.NoError(t, err)
		assert.False(t, donor.Active)

		assert.Equal(t, []models.EventType{models.MatchConfirmedEvent, models.MatchFulfilledEvent}, env.publisher.types())
	})
}

func TestApplyTransition_UnknownMatch(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.matches.ApplyTransition(context.Background(), "missing", models.ConfirmedMatch, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestApplyTransition_ConcurrentTransitionsHaveOneWinner(t *testing.T) {
	env := newTestEnv(t)
	match := proposedMatch(t, env)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := models.ConfirmedMatch
			if i%2 == 1 {
				to = models.RejectedMatch
			}
			_, errs[i] = env.matches.ApplyTransition(context.Background(), match.ID, to, "")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, models.ErrConcurrentModification) || errors.Is(err, models.ErrInvalidTransition), err.Error())
	}
	assert.Equal(t, 1, wins)

	current, err := env.matches.GetMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.Version)
}

func TestUpdateMatchStatus_ValidatesBody(t *testing.T) {
	env := newTestEnv(t)
	match := proposedMatch(t, env)

	_, err := env.matches.UpdateMatchStatus(context.Background(), match.ID, models.MatchStatusRequest{})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = env.matches.UpdateMatchStatus(context.Background(), match.ID, models.MatchStatusRequest{Status: "approved"})
	assert.ErrorIs(t, err, models.ErrValidation)

	updated, err := env.matches.UpdateMatchStatus(context.Background(), match.ID, models.MatchStatusRequest{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, models.ConfirmedMatch, updated.Status)
}

func TestUpdateRequestStatusByMatchID(t *testing.T) {
	ctx := context.Background()

	t.Run("pending rejects match and returns request to pool", func(t *testing.T) {
		env := newTestEnv(t)
		match := proposedMatch(t, env)

		updated, err := env.matches.UpdateRequestStatusByMatchID(ctx, match.ID, models.RequestStatusRequest{Status: "pending"})
		require.NoError(t, err)
		assert.Equal(t, models.RejectedMatch, updated.Status)
		assert.Equal(t, models.PendingRequest, env.requestStatus(t, "r1"))
	})

	t.Run("rejected closes request", func(t *testing.T) {
		env := newTestEnv(t)
		match := proposedMatch(t, env)

		updated, err := env.matches.UpdateRequestStatusByMatchID(ctx, match.ID, models.RequestStatusRequest{Status: "rejected"})
		require.NoError(t, err)
		assert.Equal(t, models.RejectedMatch, updated.Status)
		assert.Equal(t, models.RejectedRequest, env.requestStatus(t, "r1"))

		summary, err := env.allocation.RunPass(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.ProposalsCreated)
	})

	t.Run("fulfilled requires confirmed match", func(t *testing.T) {
		env := newTestEnv(t)
		match := proposedMatch(t, env)

		_, err := env.matches.UpdateRequestStatusByMatchID(ctx, match.ID, models.RequestStatusRequest{Status: "fulfilled"})
		assert.ErrorIs(t, err, models.ErrInvalidTransition)

		_, err = env.matches.ApplyTransition(ctx, match.ID, models.ConfirmedMatch, "")
		require.NoError(t, err)
		updated, err := env.matches.UpdateRequestStatusByMatchID(ctx, match.ID, models.RequestStatusRequest{Status: "fulfilled"})
		require.NoError(t, err)
		assert.Equal(t, models.FulfilledMatch, updated.Status)
		assert.Equal(t, models.FulfilledRequest, env.requestStatus(t, "r1"))
	})

	t.Run("matched cannot be set", func(t *testing.T) {
		env := newTestEnv(t)
		match := proposedMatch(t, env)

		_, err := env.matches.UpdateRequestStatusByMatchID(ctx, match.ID, models.RequestStatusRequest{Status: "matched"})
		assert.ErrorIs(t, err, models.ErrInvalidTransition)

		_, err = env.matches.UpdateRequestStatusByMatchID(ctx, match.ID, models.RequestStatusRequest{Status: "lost"})
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestListMatches_Filters(t *testing.T) {
	env := newTestEnv(t)
	proposedMatch(t, env)

	matches, err := env.matches.ListMatches(context.Background(), "proposed", "KIDNEY", "critical", "d1", "", "", "")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = env.matches.ListMatches(context.Background(), "", "liver", "", "", "", "", "")
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = env.matches.ListMatches(context.Background(), "done", "", "", "", "", "", "")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = env.matches.ListMatches(context.Background(), "", "spleen", "", "", "", "", "")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = env.matches.ListMatches(context.Background(), "", "", "", "", "", "100", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}
