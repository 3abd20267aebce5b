package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// MessagesHandler serves the user side of a ticket conversation.
type MessagesHandler struct {
	messages *service.MessageService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messageService *service.MessageService) *MessagesHandler {
	return &MessagesHandler{messages: messageService}
}

// SendMessage POST /api/user/tickets/:id/messages. Responds with the
// assistant's reply.
func (h *MessagesHandler) SendMessage(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.messages.Create(c.UserContext(), c.Params("id"), principal.UserID, req.Message)
	if err != nil {
		return err
	}
	return sendCreated(c, dto.SendMessageResponse{MessageID: res.MessageID, Suggestion: res.Suggestion})
}

// ListMessages GET /api/user/tickets/:id/messages.
func (h *MessagesHandler) ListMessages(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	msgs, err := h.messages.List(c.UserContext(), c.Params("id"), principal.UserID)
	if err != nil {
		return err
	}
	return sendData(c, dto.NewMessageList(msgs))
}
