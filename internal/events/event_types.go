package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/suggestion-box/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSuggestionSubmitted     EventType = "suggestion_submitted"
	EventSuggestionStatusChanged EventType = "suggestion_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	SuggestionID string      `json:"suggestion_id"`
	Actor        string      `json:"actor"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// NewEvent stamps a fresh id and timestamp.
func NewEvent(eventType EventType, suggestionID, actor string, payload interface{}) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		SuggestionID: suggestionID,
		Actor:        actor,
		Timestamp:    time.Now().UTC(),
		Payload:      payload,
	}
}

// SuggestionSubmittedPayload carries the stored record.
type SuggestionSubmittedPayload struct {
	Suggestion domain.Suggestion `json:"suggestion"`
}

// SuggestionStatusChangedPayload carries the record after the update.
type SuggestionStatusChangedPayload struct {
	OldStatus  domain.SuggestionStatus `json:"old_status"`
	NewStatus  domain.SuggestionStatus `json:"new_status"`
	Suggestion domain.Suggestion       `json:"suggestion"`
}
