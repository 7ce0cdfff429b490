package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/organ-match-service/internal/models"
	"github.com/senyabanana/organ-match-service/internal/services"

	"go.uber.org/zap"
)

// MatchHandler - структура для обработки HTTP-запросов движка подбора.
type MatchHandler struct {
	Matches    *services.MatchService
	Allocation *services.AllocationService
	Logger     *zap.Logger
	Timeout    time.Duration
}

// NewMatchHandler создает новый экземпляр MatchHandler.
func NewMatchHandler(matches *services.MatchService, allocation *services.AllocationService, logger *zap.Logger, timeout time.Duration) *MatchHandler {
	return &MatchHandler{
		Matches:    matches,
		Allocation: allocation,
		Logger:     logger,
		Timeout:    timeout,
	}
}

// RunPass обрабатывает запрос на запуск прохода подбора.
func (h *MatchHandler) RunPass(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	summary, err := h.Allocation.RunPass(ctx)
	if err != nil {
		sendError(w, h.Logger, err, "failed to run matching pass")
		return
	}
	sendJSON(w, h.Logger, http.StatusOK, summary)
}

// ManualMatch обрабатывает запрос на ручное создание пары.
func (h *MatchHandler) ManualMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.ManualMatchRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, h.Logger, err, "failed to create match")
		return
	}

	match, err := h.Allocation.ManualMatch(ctx, req)
	if err != nil {
		sendError(w, h.Logger, err, "failed to create match")
		return
	}
	sendJSON(w, h.Logger, http.StatusCreated, match)
}

// ListMatches обрабатывает запросы для получения списка пар.
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	matches, err := h.Matches.ListMatches(ctx,
		query.Get("status"),
		query.Get("organ_type"),
		query.Get("urgency"),
		query.Get("donor_id"),
		query.Get("request_id"),
		query.Get("limit"),
		query.Get("offset"),
	)
	if err != nil {
		sendError(w, h.Logger, err, "failed to retrieve matches")
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}
	sendJSON(w, h.Logger, http.StatusOK, matches)
}

// GetMatch обрабатывает запросы для получения пары.
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	match, err := h.Matches.GetMatch(ctx, r.PathValue("matchId"))
	if err != nil {
		sendError(w, h.Logger, err, "failed to retrieve match")
		return
	}
	sendJSON(w, h.Logger, http.StatusOK, match)
}

// UpdateMatchStatus обрабатывает запросы для смены статуса пары.
func (h *MatchHandler) UpdateMatchStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.MatchStatusRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, h.Logger, err, "failed to update match status")
		return
	}

	match, err := h.Matches.UpdateMatchStatus(ctx, r.PathValue("matchId"), req)
	if err != nil {
		sendError(w, h.Logger, err, "failed to update match status")
		return
	}
	sendJSON(w, h.Logger, http.StatusOK, match)
}

// UpdateRequestStatus обрабатывает административную смену статуса запроса через пару.
func (h *MatchHandler) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.RequestStatusRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, h.Logger, err, "failed to update request status")
		return
	}

	match, err := h.Matches.UpdateRequestStatusByMatchID(ctx, r.PathValue("matchId"), req)
	if err != nil {
		sendError(w, h.Logger, err, "failed to update request status")
		return
	}
	sendJSON(w, h.Logger, http.StatusOK, match)
}
