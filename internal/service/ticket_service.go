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

// Classifier assigns category and priority to a new ticket. It never fails.
type Classifier interface {
	Classify(ctx context.Context, title, description string) ai.Classification
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets             repository.TicketRepository
	tx                  repository.TxRunner
	classifier          Classifier
	dispatcher          events.Dispatcher
	logger              *zap.Logger
	emptyListIsNotFound bool
	now                 func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	TxRunner   repository.TxRunner
	Classifier Classifier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// EmptyListIsNotFound makes List fail with no_tickets_found instead of
	// returning an empty slice.
	EmptyListIsNotFound bool
}

// CreateTicketResult is what the owner learns about a new ticket.
type CreateTicketResult struct {
	ID       string
	Category domain.TicketCategory
	Priority domain.TicketPriority
}

// TicketUpdateInput is the agent update payload. At least one field is set.
type TicketUpdateInput struct {
	Status   *domain.TicketStatus
	Solution *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:             deps.TicketRepo,
		tx:                  deps.TxRunner,
		classifier:          deps.Classifier,
		dispatcher:          deps.Dispatcher,
		logger:              logger,
		emptyListIsNotFound: deps.EmptyListIsNotFound,
		now:                 time.Now,
	}
}

type classificationInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type classificationOutput struct {
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	Fallback bool                  `json:"fallback"`
	Reason   string                `json:"reason,omitempty"`
}

// Create classifies the ticket, then stores it together with the
// classification audit entry.
func (s *TicketService) Create(ctx context.Context, userID, title, description string) (*CreateTicketResult, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	var issues []apperrors.Issue
	if title == "" {
		issues = append(issues, apperrors.Issue{Path: "title", Code: apperrors.IssueRequired, Message: "title is required"})
	}
	if description == "" {
		issues = append(issues, apperrors.Issue{Path: "description", Code: apperrors.IssueRequired, Message: "description is required"})
	}
	if len(issues) > 0 {
		return nil, apperrors.NewValidationIssues(issues)
	}

	class := s.classifier.Classify(ctx, title, description)
	if !class.Category.Valid() || !class.Priority.Valid() {
		class = ai.DefaultClassification("classifier returned values outside the enum")
	}

	now := s.now().UTC()
	ticket := &domain.Ticket{
		ID:          ids.New(ids.PrefixTicket),
		UserID:      userID,
		Title:       title,
		Description: description,
		Category:    class.Category,
		Priority:    class.Priority,
		Status:      domain.TicketStatusOpen,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	input, err := json.Marshal(classificationInput{Title: title, Description: description})
	if err != nil {
		return nil, err
	}
	output, err := json.Marshal(classificationOutput{
		Category: class.Category,
		Priority: class.Priority,
		Fallback: class.Fallback,
		Reason:   class.Reason,
	})
	if err != nil {
		return nil, err
	}
	entry := &domain.AILog{
		ID:        ids.New(ids.PrefixAILog),
		TicketID:  ticket.ID,
		Action:    domain.AILogClassification,
		Input:     input,
		Output:    output,
		IsActive:  true,
		CreatedAt: now,
	}

	err = s.tx.WithinTx(ctx, func(st repository.Stores) error {
		if err := st.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return st.AILogs.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.EventTicketCreated, ticket.ID, userActor(userID), now, events.TicketCreatedPayload{
		Title:    ticket.Title,
		Category: ticket.Category,
		Priority: ticket.Priority,
		Fallback: class.Fallback,
	}))
	return &CreateTicketResult{ID: ticket.ID, Category: ticket.Category, Priority: ticket.Priority}, nil
}

// List returns the owner's active tickets newest first.
func (s *TicketService) List(ctx context.Context, userID string) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 && s.emptyListIsNotFound {
		return nil, apperrors.NewNotFound(CodeNoTicketsFound, "no tickets found for this user")
	}
	return tickets, nil
}

// TicketQuery is the raw agent filter; empty strings mean "any".
type TicketQuery struct {
	IncludeInactive bool
	Status          string
	Priority        string
	Category        string
}

// ListAll is the agent view across every owner. It never fails on an empty
// result.
func (s *TicketService) ListAll(ctx context.Context, query TicketQuery) ([]domain.TicketWithOwner, error) {
	filter := repository.TicketFilter{IncludeInactive: query.IncludeInactive}
	if query.Status != "" {
		status, err := domain.ParseTicketStatus(query.Status)
		if err != nil {
			return nil, apperrors.NewValidationError(apperrors.CodeInvalidParameter, err.Error(), "status")
		}
		filter.Status = &status
	}
	if query.Priority != "" {
		priority, err := domain.ParseTicketPriority(query.Priority)
		if err != nil {
			return nil, apperrors.NewValidationError(apperrors.CodeInvalidParameter, err.Error(), "priority")
		}
		filter.Priority = &priority
	}
	if query.Category != "" {
		category, err := domain.ParseTicketCategory(query.Category)
		if err != nil {
			return nil, apperrors.NewValidationError(apperrors.CodeInvalidParameter, err.Error(), "category")
		}
		filter.Category = &category
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

// GetDetail fetches a ticket the caller owns. Absent, inactive and foreign
// tickets all look the same.
func (s *TicketService) GetDetail(ctx context.Context, id, userID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, errTicketNotFound)
	}
	if !ticket.IsActive || ticket.UserID != userID {
		return nil, errTicketNotFound
	}
	return ticket, nil
}

// Update is the agent path. A solution without a status resolves the ticket.
func (s *TicketService) Update(ctx context.Context, id, agentID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if input.Status == nil && input.Solution == nil {
		return nil, apperrors.NewValidationIssues([]apperrors.Issue{
			{Path: "status", Code: apperrors.IssueRequired, Message: "status or solution is required"},
		})
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidParameter, "unknown ticket status", "status")
	}
	var solution *string
	if input.Solution != nil {
		trimmed := strings.TrimSpace(*input.Solution)
		if trimmed == "" {
			return nil, apperrors.NewValidationError(apperrors.CodeInvalidParameter, "solution must not be empty", "solution")
		}
		solution = &trimmed
	}

	var updated *domain.Ticket
	var oldStatus domain.TicketStatus
	now := s.now().UTC()
	err := s.tx.WithinTx(ctx, func(st repository.Stores) error {
		ticket, err := st.Tickets.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, errTicketNotFound)
		}
		if !ticket.IsActive {
			return errTicketNotFound
		}
		if ticket.Status == domain.TicketStatusResolved {
			return alreadyResolved()
		}

		next := ticket.Status
		switch {
		case input.Status != nil:
			next = *input.Status
		case solution != nil:
			next = domain.TicketStatusResolved
		}
		if !ticket.Status.CanTransitionTo(next) {
			return apperrors.NewValidationError(CodeInvalidStatusTransition,
				"cannot move ticket from "+string(ticket.Status)+" to "+string(next), "status")
		}

		oldStatus = ticket.Status
		ticket.Status = next
		if solution != nil {
			ticket.Solution = solution
		}
		ticket.UpdatedAt = now
		if err := st.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	if oldStatus != updated.Status {
		s.publish(ctx, events.New(events.EventTicketStatusChanged, updated.ID, agentActor(agentID), now, events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: updated.Status,
			Solution:  updated.Solution,
		}))
	}
	return updated, nil
}

// CloseByUser resolves a ticket on behalf of its owner.
func (s *TicketService) CloseByUser(ctx context.Context, id, userID string) error {
	var oldStatus domain.TicketStatus
	now := s.now().UTC()
	err := s.tx.WithinTx(ctx, func(st repository.Stores) error {
		ticket, err := s.ownedForUpdate(ctx, st, id, userID)
		if err != nil {
			return err
		}
		if ticket.Status == domain.TicketStatusResolved {
			return alreadyResolved()
		}
		oldStatus = ticket.Status
		ticket.Status = domain.TicketStatusResolved
		ticket.UpdatedAt = now
		return st.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.New(events.EventTicketStatusChanged, id, userActor(userID), now, events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: domain.TicketStatusResolved,
	}))
	return nil
}

// Deactivate soft-deletes a resolved ticket. Messages and audit entries are
// left untouched.
func (s *TicketService) Deactivate(ctx context.Context, id, userID string) error {
	now := s.now().UTC()
	err := s.tx.WithinTx(ctx, func(st repository.Stores) error {
		ticket, err := s.ownedForUpdate(ctx, st, id, userID)
		if err != nil {
			return err
		}
		if ticket.Status != domain.TicketStatusResolved {
			return apperrors.NewValidationError(CodeTicketNotResolved, "only resolved tickets can be deleted", "")
		}
		ticket.IsActive = false
		ticket.DeletedAt = &now
		ticket.UpdatedAt = now
		return st.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.New(events.EventTicketDeactivated, id, userActor(userID), now, nil))
	return nil
}

func (s *TicketService) ownedForUpdate(ctx context.Context, st repository.Stores, id, userID string) (*domain.Ticket, error) {
	ticket, err := st.Tickets.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, errTicketNotFound)
	}
	if !ticket.IsActive || ticket.UserID != userID {
		return nil, errTicketNotFound
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func alreadyResolved() error {
	return apperrors.NewValidationError(CodeTicketAlreadyResolved, "ticket is already resolved", "status")
}

func userActor(userID string) events.Actor {
	return events.Actor{UserID: userID, Role: domain.RoleUser}
}

func agentActor(agentID string) events.Actor {
	return events.Actor{UserID: agentID, Role: domain.RoleAgent}
}
