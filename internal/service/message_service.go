package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/ai"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/ids"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// Assistant drafts the reply shown after each user message.
type Assistant interface {
	Assist(ctx context.Context, ticket ai.TicketContext, history []ai.HistoryEntry, latest string) (string, error)
}

// MessageService manages ticket conversations.
type MessageService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	tx         repository.TxRunner
	assistant  Assistant
	dispatcher events.Dispatcher
	logger     *zap.Logger
	aiSenderID string
	now        func() time.Time
}

// MessageDependencies bundles collaborators for message service.
type MessageDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	TxRunner    repository.TxRunner
	Assistant   Assistant
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	// AISenderID is the account AI replies are attributed to.
	AISenderID string
}

// SendMessageResult is returned to the user after a message is accepted.
type SendMessageResult struct {
	MessageID  string
	Suggestion string
}

// NewMessageService constructs the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		tx:         deps.TxRunner,
		assistant:  deps.Assistant,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		aiSenderID: deps.AISenderID,
		now:        time.Now,
	}
}

// List returns the conversation of a ticket the caller owns.
func (s *MessageService) List(ctx context.Context, ticketID, userID string) ([]domain.Message, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, errTicketNotFound)
	}
	if !ticket.IsActive || ticket.UserID != userID {
		return nil, errTicketNotFound
	}
	return s.messages.ListByTicket(ctx, ticketID)
}

// ListForAgent returns the conversation of any ticket, deactivated ones
// included.
func (s *MessageService) ListForAgent(ctx context.Context, ticketID string) ([]domain.Message, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFoundOr(err, errTicketNotFound)
	}
	return s.messages.ListByTicket(ctx, ticketID)
}

// GetDetail fetches one active message.
func (s *MessageService) GetDetail(ctx context.Context, id string) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, errMessageNotFound)
	}
	return msg, nil
}

type suggestionInput struct {
	MessageID   string `json:"messageId"`
	UserMessage string `json:"userMessage"`
}

type suggestionOutput struct {
	Suggestion     string `json:"suggestion"`
	ReplyMessageID string `json:"replyMessageId"`
}

// Create stores a user message along with the assistant's reply and the
// audit entry. When the assistant fails nothing is written.
func (s *MessageService) Create(ctx context.Context, ticketID, senderID, message string) (*SendMessageResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, messageRequired()
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, errTicketNotFound)
	}
	if err := checkWritable(ticket, senderID); err != nil {
		return nil, err
	}

	prior, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	history := make([]ai.HistoryEntry, len(prior))
	for i, m := range prior {
		history[i] = ai.HistoryEntry{SenderID: m.SenderID, Message: m.Message}
	}

	suggestion, err := s.assistant.Assist(ctx, ai.TicketContext{
		Title:       ticket.Title,
		Description: ticket.Description,
		Category:    ticket.Category,
		Priority:    ticket.Priority,
	}, history, message)
	if err != nil {
		s.logger.Error("assistant reply failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, apperrors.NewInternalCode(CodeAISuggestionFailed, "the assistant could not reply, please try again", err)
	}

	now := s.now().UTC()
	userMsg := &domain.Message{
		ID:        ids.New(ids.PrefixMessage),
		TicketID:  ticketID,
		SenderID:  senderID,
		Role:      domain.MessageRoleUser,
		Message:   message,
		IsActive:  true,
		CreatedAt: now,
	}
	reply := &domain.Message{
		ID:        ids.New(ids.PrefixMessage),
		TicketID:  ticketID,
		SenderID:  s.aiSenderID,
		Role:      domain.MessageRoleIA,
		Message:   suggestion,
		IsActive:  true,
		CreatedAt: now,
	}
	input, err := json.Marshal(suggestionInput{MessageID: userMsg.ID, UserMessage: message})
	if err != nil {
		return nil, err
	}
	output, err := json.Marshal(suggestionOutput{Suggestion: suggestion, ReplyMessageID: reply.ID})
	if err != nil {
		return nil, err
	}
	entry := &domain.AILog{
		ID:        ids.New(ids.PrefixAILog),
		TicketID:  ticketID,
		Action:    domain.AILogSuggestion,
		Input:     input,
		Output:    output,
		IsActive:  true,
		CreatedAt: now,
	}

	var flipped bool
	err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
		locked, err := st.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, errTicketNotFound)
		}
		if err := checkWritable(locked, senderID); err != nil {
			return err
		}
		if flipped, err = startProgress(ctx, st, locked, now); err != nil {
			return err
		}
		if err := st.Messages.Create(ctx, userMsg); err != nil {
			return err
		}
		if err := st.Messages.Create(ctx, reply); err != nil {
			return err
		}
		return st.AILogs.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	actor := userActor(senderID)
	if flipped {
		s.publishStatusFlip(ctx, ticketID, actor, now)
	}
	s.publishMessage(ctx, userMsg, actor)
	s.publishMessage(ctx, reply, events.Actor{UserID: s.aiSenderID, Role: domain.RoleAI})
	return &SendMessageResult{MessageID: userMsg.ID, Suggestion: suggestion}, nil
}

// CreateAgentMessage appends an agent reply. No assistant call, no audit.
func (s *MessageService) CreateAgentMessage(ctx context.Context, ticketID, senderID, message string) (*domain.Message, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, messageRequired()
	}

	now := s.now().UTC()
	msg := &domain.Message{
		ID:        ids.New(ids.PrefixMessage),
		TicketID:  ticketID,
		SenderID:  senderID,
		Role:      domain.MessageRoleAgent,
		Message:   message,
		IsActive:  true,
		CreatedAt: now,
	}

	var flipped bool
	err := s.tx.WithinTx(ctx, func(st repository.Stores) error {
		ticket, err := st.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, errTicketNotFound)
		}
		if !ticket.IsActive {
			return errTicketNotFound
		}
		if ticket.Status == domain.TicketStatusResolved {
			return ticketResolved()
		}
		if flipped, err = startProgress(ctx, st, ticket, now); err != nil {
			return err
		}
		return st.Messages.Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	actor := agentActor(senderID)
	if flipped {
		s.publishStatusFlip(ctx, ticketID, actor, now)
	}
	s.publishMessage(ctx, msg, actor)
	return msg, nil
}

func (s *MessageService) publishStatusFlip(ctx context.Context, ticketID string, actor events.Actor, at time.Time) {
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventTicketStatusChanged, ticketID, actor, at, events.TicketStatusChangedPayload{
		OldStatus: domain.TicketStatusOpen,
		NewStatus: domain.TicketStatusInProgress,
	}))
}

func (s *MessageService) publishMessage(ctx context.Context, msg *domain.Message, actor events.Actor) {
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventMessageAdded, msg.TicketID, actor, msg.CreatedAt, events.MessageAddedPayload{
		MessageID:   msg.ID,
		Role:        msg.Role,
		SenderID:    msg.SenderID,
		BodyPreview: events.Preview(msg.Message),
	}))
}

// checkWritable applies the user-side guards: owned, active, not resolved.
func checkWritable(ticket *domain.Ticket, userID string) error {
	if !ticket.IsActive || ticket.UserID != userID {
		return errTicketNotFound
	}
	if ticket.Status == domain.TicketStatusResolved {
		return ticketResolved()
	}
	return nil
}

// startProgress moves an open ticket to in_progress and reports whether it did.
func startProgress(ctx context.Context, st repository.Stores, ticket *domain.Ticket, now time.Time) (bool, error) {
	if ticket.Status != domain.TicketStatusOpen {
		return false, nil
	}
	ticket.Status = domain.TicketStatusInProgress
	ticket.UpdatedAt = now
	if err := st.Tickets.Update(ctx, ticket); err != nil {
		return false, err
	}
	return true, nil
}

func ticketResolved() error {
	return apperrors.NewValidationError(CodeTicketResolved, "ticket is resolved and no longer accepts messages", "")
}

func messageRequired() error {
	return apperrors.NewValidationIssues([]apperrors.Issue{
		{Path: "message", Code: apperrors.IssueRequired, Message: "message is required"},
	})
}
