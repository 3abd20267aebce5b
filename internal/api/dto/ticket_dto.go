package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateTicketResponse tells the owner how the ticket was triaged.
type CreateTicketResponse struct {
	ID       string                `json:"id"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// UpdateTicketRequest is the agent update; at least one field is set.
type UpdateTicketRequest struct {
	Status   *domain.TicketStatus `json:"status"`
	Solution *string              `json:"solution"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID          string                `json:"id"`
	UserID      string                `json:"userId"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Solution    *string               `json:"solution"`
	IsActive    bool                  `json:"isActive"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	DeletedAt   *time.Time            `json:"deletedAt,omitempty"`
}

// AgentTicketResponse adds the owner to the ticket view.
type AgentTicketResponse struct {
	TicketResponse
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    t.Priority,
		Status:      t.Status,
		Solution:    t.Solution,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		DeletedAt:   t.DeletedAt,
	}
}

// NewTicketList maps a slice and never returns nil.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewAgentTicketList maps the agent listing.
func NewAgentTicketList(tickets []domain.TicketWithOwner) []AgentTicketResponse {
	items := make([]AgentTicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, AgentTicketResponse{
			TicketResponse: NewTicketResponse(&tickets[i].Ticket),
			UserName:       tickets[i].UserName,
			UserEmail:      tickets[i].UserEmail,
		})
	}
	return items
}
