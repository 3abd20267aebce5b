package domain

import "time"

// MessageRole indicates who authored a message.
type MessageRole string

const (
	MessageRoleUser  MessageRole = "user"
	MessageRoleAgent MessageRole = "agent"
	MessageRoleIA    MessageRole = "ia"
)

func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleUser, MessageRoleAgent, MessageRoleIA:
		return true
	}
	return false
}

// Message is one line of a ticket conversation. Messages are append-only.
type Message struct {
	ID        string
	TicketID  string
	SenderID  string
	Role      MessageRole
	Message   string
	IsActive  bool
	CreatedAt time.Time
}
