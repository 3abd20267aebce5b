package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// AgentHandler handles the agent console endpoints.
type AgentHandler struct {
	tickets  *service.TicketService
	messages *service.MessageService
	aiLogs   *service.AILogService
}

// NewAgentHandler constructs handler.
func NewAgentHandler(tickets *service.TicketService, messages *service.MessageService, aiLogs *service.AILogService) *AgentHandler {
	return &AgentHandler{tickets: tickets, messages: messages, aiLogs: aiLogs}
}

// ListTickets GET /api/agent/tickets.
func (h *AgentHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListAll(c.UserContext(), service.TicketQuery{
		IncludeInactive: c.QueryBool("includeInactive", false),
		Status:          c.Query("status"),
		Priority:        c.Query("priority"),
		Category:        c.Query("category"),
	})
	if err != nil {
		return err
	}
	return sendData(c, dto.NewAgentTicketList(tickets))
}

// UpdateTicket PATCH /api/agent/tickets/:id.
func (h *AgentHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.Update(c.UserContext(), c.Params("id"), principal.UserID, service.TicketUpdateInput{
		Status:   req.Status,
		Solution: req.Solution,
	})
	if err != nil {
		return err
	}
	return sendData(c, dto.NewTicketResponse(ticket))
}

// ListMessages GET /api/agent/tickets/:id/messages.
func (h *AgentHandler) ListMessages(c *fiber.Ctx) error {
	msgs, err := h.messages.ListForAgent(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return sendData(c, dto.NewMessageList(msgs))
}

// SendMessage POST /api/agent/tickets/:id/messages.
func (h *AgentHandler) SendMessage(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	msg, err := h.messages.CreateAgentMessage(c.UserContext(), c.Params("id"), principal.UserID, req.Message)
	if err != nil {
		return err
	}
	return sendCreated(c, fiber.Map{"message": "message sent", "messageId": msg.ID})
}

// GetMessage GET /api/agent/messages/:id.
func (h *AgentHandler) GetMessage(c *fiber.Ctx) error {
	msg, err := h.messages.GetDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return sendData(c, dto.NewMessageResponse(msg))
}

// ListAILogs GET /api/agent/tickets/:id/ai-logs.
func (h *AgentHandler) ListAILogs(c *fiber.Ctx) error {
	entries, err := h.aiLogs.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return sendData(c, dto.NewAILogList(entries))
}
