package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/senyabanana/organ-match-service/internal/models"
	"github.com/senyabanana/organ-match-service/internal/utils"

	"go.uber.org/zap"
)

// sendError логирует ошибку и отправляет её клиенту с подходящим статусом.
func sendError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	errorResponse := utils.ErrorResponseFor(err, fallback)
	fields := []zap.Field{zap.Int("status", errorResponse.StatusCode), zap.Error(err)}

	var engineErr *models.EngineError
	if errors.As(err, &engineErr) && engineErr.Cause != nil {
		fields = append(fields, zap.NamedError("cause", engineErr.Cause))
	}
	if errorResponse.StatusCode >= http.StatusInternalServerError {
		logger.Error(fallback, fields...)
	} else {
		logger.Info(fallback, fields...)
	}
	utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
}

// sendJSON отправляет успешный ответ.
func sendJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, body interface{}) {
	if err := utils.SendJSON(w, statusCode, body); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// decodeBody разбирает JSON тела запроса.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewErrorResponse(http.StatusBadRequest, "invalid request body")
	}
	return nil
}
