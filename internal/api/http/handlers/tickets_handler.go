package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// TicketsHandler manages end-user ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/user/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.service.Create(c.UserContext(), principal.UserID, req.Title, req.Description)
	if err != nil {
		return err
	}
	return sendCreated(c, dto.CreateTicketResponse{ID: res.ID, Category: res.Category, Priority: res.Priority})
}

// ListTickets GET /api/user/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.List(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	return sendData(c, dto.NewTicketList(tickets))
}

// GetTicket GET /api/user/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetDetail(c.UserContext(), c.Params("id"), principal.UserID)
	if err != nil {
		return err
	}
	return sendData(c, dto.NewTicketResponse(ticket))
}

// CloseTicket PATCH /api/user/tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.CloseByUser(c.UserContext(), c.Params("id"), principal.UserID); err != nil {
		return err
	}
	return sendData(c, fiber.Map{"message": "ticket resolved"})
}

// DeleteTicket DELETE /api/user/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Deactivate(c.UserContext(), c.Params("id"), principal.UserID); err != nil {
		return err
	}
	return sendData(c, fiber.Map{"message": "ticket deleted"})
}
