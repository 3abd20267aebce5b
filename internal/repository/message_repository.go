package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MessageRepository manages ticket conversation messages. Messages are
// append-only.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListByTicket returns active messages oldest first.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
	GetByID(ctx context.Context, id string) (*domain.Message, error)
}

type messageRepository struct {
	db Querier
}

// NewMessageRepository builds repository.
func NewMessageRepository(db Querier) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("message %s: invalid role %q", msg.ID, msg.Role)
	}
	const query = `
        INSERT INTO messages (id, ticket_id, sender_id, role, message, is_active, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Exec(ctx, query,
		msg.ID,
		msg.TicketID,
		msg.SenderID,
		msg.Role,
		msg.Message,
		msg.IsActive,
		msg.CreatedAt,
	)
	return err
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender_id, role, message, is_active, created_at
        FROM messages WHERE ticket_id=$1 AND is_active ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderID,
			&msg.Role,
			&msg.Message,
			&msg.IsActive,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender_id, role, message, is_active, created_at
        FROM messages WHERE id=$1 AND is_active`
	var msg domain.Message
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.SenderID,
		&msg.Role,
		&msg.Message,
		&msg.IsActive,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}
