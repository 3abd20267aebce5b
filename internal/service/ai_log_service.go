package service

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// AILogService reads the audit trail of AI invocations. Entries are written
// by TicketService and MessageService inside their transactions.
type AILogService struct {
	tickets repository.TicketRepository
	logs    repository.AILogRepository
}

// AILogDependencies bundles repositories for the audit reader.
type AILogDependencies struct {
	TicketRepo repository.TicketRepository
	AILogRepo  repository.AILogRepository
}

// NewAILogService constructs the service.
func NewAILogService(deps AILogDependencies) *AILogService {
	return &AILogService{tickets: deps.TicketRepo, logs: deps.AILogRepo}
}

// List returns the entries of an active ticket oldest first.
func (s *AILogService) List(ctx context.Context, ticketID string) ([]domain.AILog, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, errTicketNotFound)
	}
	if !ticket.IsActive {
		return nil, errTicketNotFound
	}
	return s.logs.ListByTicket(ctx, ticketID)
}
