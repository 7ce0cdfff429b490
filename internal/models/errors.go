package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("not found")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrPoolRead               = errors.New("candidate pool could not be assembled")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrPassAlreadyRunning     = errors.New("matching pass already running")
)

// EngineError - типизированная ошибка движка подбора.
// Cause содержит внутреннюю ошибку хранилища и в сообщение не попадает.
type EngineError struct {
	Kind   error
	Detail string
	Cause  error
}

func (e *EngineError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *EngineError) Unwrap() error {
	return e.Kind
}

// NewEngineError создает типизированную ошибку.
func NewEngineError(kind error, cause error, format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: kind, Detail: fmt.Sprintf(format, args...), Cause: cause}
}

// Validationf создает ошибку валидации входных данных.
func Validationf(format string, args ...interface{}) error {
	return NewEngineError(ErrValidation, nil, format, args...)
}

// NotFoundf создает ошибку отсутствующей записи.
func NotFoundf(format string, args ...interface{}) error {
	return NewEngineError(ErrNotFound, nil, format, args...)
}

// InvalidTransitionf создает ошибку недопустимого перехода.
func InvalidTransitionf(format string, args ...interface{}) error {
	return NewEngineError(ErrInvalidTransition, nil, format, args...)
}

// ConcurrentModificationf создает ошибку конкурентного изменения.
func ConcurrentModificationf(format string, args ...interface{}) error {
	return NewEngineError(ErrConcurrentModification, nil, format, args...)
}

// ErrorResponse - тело ответа с ошибкой, которое отдает HTTP-слой.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"reason"`
}

// NewErrorResponse создает ответ с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: statusCode, Message: message}
}

func (e *ErrorResponse) Error() string {
	return e.Message
}
