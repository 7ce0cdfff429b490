package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/go-playground/validator/v10"
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := models.ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
	}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Println(err)
	}
}

// SendJSON отправляет ответ в формате JSON
func SendJSON(w http.ResponseWriter, statusCode int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(body)
}

// ErrorResponseFor переводит ошибку движка в HTTP-ответ. Внутренние ошибки хранилища
// наружу не попадают: для них возвращается fallback.
func ErrorResponseFor(err error, fallback string) *models.ErrorResponse {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		return errorResponse
	}

	var engineErr *models.EngineError
	if !errors.As(err, &engineErr) {
		return models.NewErrorResponse(http.StatusInternalServerError, fallback)
	}
	switch {
	case errors.Is(err, models.ErrValidation):
		return models.NewErrorResponse(http.StatusBadRequest, engineErr.Error())
	case errors.Is(err, models.ErrNotFound):
		return models.NewErrorResponse(http.StatusNotFound, engineErr.Error())
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrConcurrentModification),
		errors.Is(err, models.ErrPassAlreadyRunning):
		return models.NewErrorResponse(http.StatusConflict, engineErr.Error())
	case errors.Is(err, models.ErrPoolRead):
		return models.NewErrorResponse(http.StatusServiceUnavailable, engineErr.Error())
	}
	return models.NewErrorResponse(http.StatusInternalServerError, fallback)
}

// ParseLimitOffset обрабатывает limit и offset
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > 50 {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [0:50]")
		}
	} else {
		limit = 5
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	} else {
		offset = 0
	}

	return limit, offset, nil
}

// Contains - функция для проверки допустимых переходов статусов
func Contains[T comparable](valid []T, value T) bool {
	for _, v := range valid {
		if v == value {
			return true
		}
	}
	return false
}

// ValidationMessage собирает ошибки validator в одну строку.
func ValidationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fmt.Sprintf("field %s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return strings.Join(messages, "; ")
}
