package models

import "time"

type RequestStatus string // Статус запроса реципиента

const (
	PendingRequest   RequestStatus = "pending"   // Ожидает подбора
	MatchedRequest   RequestStatus = "matched"   // Подобран донор
	FulfilledRequest RequestStatus = "fulfilled" // Трансплантация выполнена
	RejectedRequest  RequestStatus = "rejected"  // Запрос закрыт
)

// Valid сообщает, допустим ли статус запроса.
func (s RequestStatus) Valid() bool {
	switch s {
	case PendingRequest, MatchedRequest, FulfilledRequest, RejectedRequest:
		return true
	}
	return false
}

// Request представляет потребность реципиента в одном органе.
type Request struct {
	ID           string        `json:"id"`
	OrganType    OrganType     `json:"organType"`
	BloodGroup   BloodGroup    `json:"bloodGroup"`
	UrgencyLevel UrgencyLevel  `json:"urgencyLevel"`
	RecipientID  string        `json:"recipientId"`
	City         string        `json:"city"`
	Region       string        `json:"region"`
	Status       RequestStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// RecipientRequest представляет структуру запроса для создания потребности.
type RecipientRequest struct {
	OrganType    string `json:"organType" validate:"required"`
	BloodGroup   string `json:"bloodGroup" validate:"required"`
	UrgencyLevel string `json:"urgencyLevel"`
	RecipientID  string `json:"recipientId" validate:"required,max=100"`
	City         string `json:"city" validate:"required,max=100"`
	Region       string `json:"region" validate:"max=100"`
}

// Validate проверяет доменные поля запроса, пришедшего из внешнего хранилища.
func (r *Request) Validate() error {
	if r.ID == "" {
		return Validationf("request id is required")
	}
	if !r.OrganType.Valid() {
		return Validationf("request %s: unknown organ type %q", r.ID, r.OrganType)
	}
	if !r.BloodGroup.Valid() {
		return Validationf("request %s: malformed blood group %q", r.ID, r.BloodGroup)
	}
	if !r.UrgencyLevel.Valid() {
		return Validationf("request %s: unknown urgency level %q", r.ID, r.UrgencyLevel)
	}
	return nil
}
