package domain

import (
	"encoding/json"
	"time"
)

// AILogAction names the AI task that produced a log entry.
type AILogAction string

const (
	AILogClassification AILogAction = "classification"
	AILogSuggestion     AILogAction = "suggestion"
)

func (a AILogAction) Valid() bool {
	return a == AILogClassification || a == AILogSuggestion
}

// AILog is an immutable record of one AI invocation.
type AILog struct {
	ID        string
	TicketID  string
	Action    AILogAction
	Input     json.RawMessage
	Output    json.RawMessage
	IsActive  bool
	CreatedAt time.Time
}
