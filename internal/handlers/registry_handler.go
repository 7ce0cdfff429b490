package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/organ-match-service/internal/models"
	"github.com/senyabanana/organ-match-service/internal/services"

	"go.uber.org/zap"
)

// RegistryHandler - структура для обработки запросов на прием доноров и запросов.
type RegistryHandler struct {
	Service *services.RegistryService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewRegistryHandler создает новый экземпляр RegistryHandler.
func NewRegistryHandler(service *services.RegistryService, logger *zap.Logger, timeout time.Duration) *RegistryHandler {
	return &RegistryHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// UpsertDonor обрабатывает запросы для регистрации или обновления донора.
func (h *RegistryHandler) UpsertDonor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.DonorRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, h.Logger, err, "failed to save donor")
		return
	}

	donor, err := h.Service.UpsertDonor(ctx, r.PathValue("donorId"), req)
	if err != nil {
		sendError(w, h.Logger, err, "failed to save donor")
		return
	}
	sendJSON(w, h.Logger, http.StatusOK, donor)
}

// GetDonor обрабатывает запросы для получения донора.
func (h *RegistryHandler) GetDonor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	donor, err := h.Service.GetDonor(ctx, r.PathValue("donorId"))
	if err != nil {
		sendError(w, h.Logger, err, "failed to retrieve donor")
		return
	}
	sendJSON(w, h.Logger, http.StatusOK, donor)
}

// WithdrawDonor обрабатывает отзыв согласия донора.
func (h *RegistryHandler) WithdrawDonor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	donor, err := h.Service.WithdrawDonor(ctx, r.PathValue("donorId"))
	if err != nil {
		sendError(w, h.Logger, err, "failed to withdraw donor")
		return
	}
	sendJSON(w, h.Logger, http.StatusOK, donor)
}

// CreateRequest обрабатывает запросы для создания потребности реципиента.
func (h *RegistryHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.RecipientRequest
	if err := decodeBody(r, &req); err != nil {
		sendError(w, h.Logger, err, "failed to create request")
		return
	}

	request, err := h.Service.CreateRequest(ctx, req)
	if err != nil {
		sendError(w, h.Logger, err, "failed to create request")
		return
	}
	sendJSON(w, h.Logger, http.StatusCreated, request)
}

// GetRequest обрабатывает запросы для получения потребности.
func (h *RegistryHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	request, err := h.Service.GetRequest(ctx, r.PathValue("requestId"))
	if err != nil {
		sendError(w, h.Logger, err, "failed to retrieve request")
		return
	}
	sendJSON(w, h.Logger, http.StatusOK, request)
}

// ListRequests обрабатывает запросы для получения списка потребностей.
func (h *RegistryHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	requests, err := h.Service.ListRequests(ctx, query.Get("status"), query.Get("limit"), query.Get("offset"))
	if err != nil {
		sendError(w, h.Logger, err, "failed to retrieve requests")
		return
	}
	if requests == nil {
		requests = []models.Request{}
	}
	sendJSON(w, h.Logger, http.StatusOK, requests)
}
