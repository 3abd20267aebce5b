package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// SendMessageRequest payload, shared by users and agents.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageResponse returns the stored message id and the assistant reply.
type SendMessageResponse struct {
	MessageID  string `json:"messageId"`
	Suggestion string `json:"suggestion"`
}

// MessageResponse represents one conversation entry.
type MessageResponse struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticketId"`
	SenderID  string             `json:"senderId"`
	Role      domain.MessageRole `json:"role"`
	Message   string             `json:"message"`
	CreatedAt time.Time          `json:"createdAt"`
}

// AILogResponse is one audit entry.
type AILogResponse struct {
	ID        string             `json:"id"`
	TicketID  string             `json:"ticketId"`
	Action    domain.AILogAction `json:"action"`
	Input     json.RawMessage    `json:"input"`
	Output    json.RawMessage    `json:"output"`
	CreatedAt time.Time          `json:"createdAt"`
}

// NewMessageResponse maps a message.
func NewMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		TicketID:  m.TicketID,
		SenderID:  m.SenderID,
		Role:      m.Role,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

// NewMessageList maps a conversation.
func NewMessageList(msgs []domain.Message) []MessageResponse {
	items := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, NewMessageResponse(&msgs[i]))
	}
	return items
}

// NewAILogList maps audit entries.
func NewAILogList(entries []domain.AILog) []AILogResponse {
	items := make([]AILogResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, AILogResponse{
			ID:        e.ID,
			TicketID:  e.TicketID,
			Action:    e.Action,
			Input:     e.Input,
			Output:    e.Output,
			CreatedAt: e.CreatedAt,
		})
	}
	return items
}
