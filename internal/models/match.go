package models

import "time"

type MatchStatus string // Статус пары донор-реципиент

const (
	ProposedMatch  MatchStatus = "proposed"  // Пара предложена
	ConfirmedMatch MatchStatus = "confirmed" // Пара подтверждена
	FulfilledMatch MatchStatus = "fulfilled" // Трансплантация выполнена
	RejectedMatch  MatchStatus = "rejected"  // Пара отклонена
)

// Valid сообщает, допустим ли статус пары.
func (s MatchStatus) Valid() bool {
	switch s {
	case ProposedMatch, ConfirmedMatch, FulfilledMatch, RejectedMatch:
		return true
	}
	return false
}

// Active сообщает, удерживает ли пара донора и запрос.
func (s MatchStatus) Active() bool {
	return s == ProposedMatch || s == ConfirmedMatch
}

// Match представляет пару донор-запрос, созданную проходом подбора.
type Match struct {
	ID           string       `json:"id"`
	DonorID      string       `json:"donorId"`
	RequestID    string       `json:"requestId"`
	Score        float64      `json:"score"`
	Status       MatchStatus  `json:"status"`
	Reason       string       `json:"reason,omitempty"`
	Version      int          `json:"version"`
	OrganType    OrganType    `json:"organType,omitempty"`
	UrgencyLevel UrgencyLevel `json:"urgencyLevel,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	ConfirmedAt  *time.Time   `json:"confirmedAt,omitempty"`
	FulfilledAt  *time.Time   `json:"fulfilledAt,omitempty"`
	RejectedAt   *time.Time   `json:"rejectedAt,omitempty"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// MatchProposal - результат прохода подбора для одного запроса.
type MatchProposal struct {
	DonorID   string  `json:"donorId"`
	RequestID string  `json:"requestId"`
	Score     float64 `json:"score"`
}

// MatchFilter описывает фильтры списка пар.
type MatchFilter struct {
	Status       MatchStatus
	OrganType    OrganType
	UrgencyLevel UrgencyLevel
	DonorID      string
	RequestID    string
	Limit        int
	Offset       int
}

// Transition - согласованное изменение пары и связанных записей,
// которое хранилище применяет одной транзакцией.
type Transition struct {
	MatchID         string
	From            MatchStatus
	To              MatchStatus
	ExpectedVersion int
	Reason          string
	RequestFrom     RequestStatus
	RequestTo       RequestStatus
	DeactivateDonor bool
	At              time.Time
}

// MatchStatusRequest представляет тело запроса на смену статуса пары.
type MatchStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// RequestStatusRequest представляет тело запроса на смену статуса запроса через пару.
type RequestStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ManualMatchRequest представляет тело запроса на ручной подбор пары.
type ManualMatchRequest struct {
	DonorID   string `json:"donorId" validate:"required"`
	RequestID string `json:"requestId" validate:"required"`
}

// PassSummary - итог одного прохода подбора.
type PassSummary struct {
	PassID               string    `json:"passId"`
	ProposalsCreated     int       `json:"proposalsCreated"`
	RequestsStillPending int       `json:"requestsStillPending"`
	SkippedRecords       int       `json:"skippedRecords"`
	StartedAt            time.Time `json:"startedAt"`
	FinishedAt           time.Time `json:"finishedAt"`
}
