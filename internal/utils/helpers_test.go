package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponseFor(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{models.Validationf("unknown organ type %q", "spleen"), http.StatusBadRequest, `validation error: unknown organ type "spleen"`},
		{models.NotFoundf("match m1"), http.StatusNotFound, "not found: match m1"},
		{fmt.Errorf("wrapped: %w", models.InvalidTransitionf("match m1: fulfilled -> confirmed")), http.StatusConflict, "invalid transition: match m1: fulfilled -> confirmed"},
		{models.ConcurrentModificationf("match m1"), http.StatusConflict, "concurrent modification: match m1"},
		{models.NewEngineError(models.ErrPassAlreadyRunning, nil, "busy"), http.StatusConflict, "matching pass already running: busy"},
		{models.NewEngineError(models.ErrPoolRead, errors.New("dial tcp: refused"), "donors unavailable"), http.StatusServiceUnavailable, "candidate pool could not be assembled: donors unavailable"},
		{errors.New("pq: relation does not exist"), http.StatusInternalServerError, "failed"},
		{models.NewErrorResponse(http.StatusBadRequest, "invalid request body"), http.StatusBadRequest, "invalid request body"},
	}
	for _, tt := range tests {
		resp := ErrorResponseFor(tt.err, "failed")
		assert.Equal(t, tt.status, resp.StatusCode, tt.err.Error())
		assert.Equal(t, tt.message, resp.Message)
	}
}

func TestParseLimitOffset(t *testing.T) {
	limit, offset, err := ParseLimitOffset("", "")
	require.NoError(t, err)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 0, offset)

	limit, offset, err = ParseLimitOffset("50", "10")
	require.NoError(t, err)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 10, offset)

	_, _, err = ParseLimitOffset("51", "")
	assert.Error(t, err)
	_, _, err = ParseLimitOffset("", "-1")
	assert.Error(t, err)
}

func TestSendErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	SendErrorResponse(rec, http.StatusConflict, "invalid transition")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"reason":"invalid transition"}`, rec.Body.String())
}

func TestValidationMessage(t *testing.T) {
	type payload struct {
		Status string `validate:"required"`
	}
	err := validator.New().Struct(payload{})
	assert.Equal(t, "field Status failed on 'required'", ValidationMessage(err))
	assert.Equal(t, "plain", ValidationMessage(errors.New("plain")))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]models.MatchStatus{models.ConfirmedMatch, models.RejectedMatch}, models.RejectedMatch))
	assert.False(t, Contains([]models.MatchStatus{}, models.ProposedMatch))
}
