package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/support-desk/internal/domain"
)

// AILogRepository stores the audit trail of AI invocations. There is no
// update or delete.
type AILogRepository interface {
	Create(ctx context.Context, entry *domain.AILog) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AILog, error)
}

type aiLogRepository struct {
	db Querier
}

// NewAILogRepository builds repository.
func NewAILogRepository(db Querier) AILogRepository {
	return &aiLogRepository{db: db}
}

func (r *aiLogRepository) Create(ctx context.Context, entry *domain.AILog) error {
	if !entry.Action.Valid() {
		return fmt.Errorf("ai log %s: invalid action %q", entry.ID, entry.Action)
	}
	const query = `
        INSERT INTO ai_logs (id, ticket_id, action, input, output, is_active, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.Action,
		[]byte(entry.Input),
		[]byte(entry.Output),
		entry.IsActive,
		entry.CreatedAt,
	)
	return err
}

func (r *aiLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AILog, error) {
	const query = `
        SELECT id, ticket_id, action, input, output, is_active, created_at
        FROM ai_logs WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AILog{}
	for rows.Next() {
		var entry domain.AILog
		var input, output []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Action,
			&input,
			&output,
			&entry.IsActive,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Input = input
		entry.Output = output
		result = append(result, entry)
	}
	return result, rows.Err()
}
