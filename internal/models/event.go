package models

import "time"

type EventType string // Тип события жизненного цикла пары

const (
	MatchProposedEvent  EventType = "match.proposed"
	MatchConfirmedEvent EventType = "match.confirmed"
	MatchFulfilledEvent EventType = "match.fulfilled"
	MatchRejectedEvent  EventType = "match.rejected"
)

// MatchEvent - событие, которое отправляется внешним потребителям после фиксации изменения.
type MatchEvent struct {
	Type          EventType     `json:"type"`
	MatchID       string        `json:"matchId"`
	DonorID       string        `json:"donorId"`
	RequestID     string        `json:"requestId"`
	Status        MatchStatus   `json:"status"`
	RequestStatus RequestStatus `json:"requestStatus"`
	OccurredAt    time.Time     `json:"occurredAt"`
}

// EventTypeFor возвращает тип события для статуса пары.
func EventTypeFor(status MatchStatus) EventType {
	return EventType("match." + string(status))
}
