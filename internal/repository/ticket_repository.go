package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketFilter captures agent search parameters. Nil fields are ignored and
// the rest are ANDed.
type TicketFilter struct {
	IncludeInactive bool
	Status          *domain.TicketStatus
	Priority        *domain.TicketPriority
	Category        *domain.TicketCategory
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	ListByOwner(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.TicketWithOwner, error)
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `t.id, t.user_id, t.title, t.description, t.category, t.priority, t.status,
               t.solution, t.is_active, t.created_at, t.updated_at, t.deleted_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (id, user_id, title, description, category, priority, status, solution, is_active, created_at, updated_at, deleted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.db.Exec(ctx, query,
		ticket.ID,
		ticket.UserID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.Solution,
		ticket.IsActive,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.DeletedAt,
	)
	return err
}

// Update persists the mutable fields: status, solution, activity and timestamps.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET status=$1, solution=$2, is_active=$3, updated_at=$4, deleted_at=$5
        WHERE id=$6`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Status,
		ticket.Solution,
		ticket.IsActive,
		ticket.UpdatedAt,
		ticket.DeletedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id=$1`, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id=$1 FOR UPDATE`, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListByOwner(ctx context.Context, userID string) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets t
        WHERE t.user_id=$1 AND t.is_active
        ORDER BY t.created_at DESC, t.id DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.TicketWithOwner, error) {
	base := `SELECT ` + ticketColumns + `, u.username, u.email
             FROM tickets t JOIN users u ON u.id = t.user_id`
	clauses := []string{"1=1"}
	args := []any{}

	if !filter.IncludeInactive {
		clauses = append(clauses, "t.is_active")
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("t.priority=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("t.category=$%d", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC, t.id DESC`, base, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketWithOwner{}
	for rows.Next() {
		var item domain.TicketWithOwner
		if err := rows.Scan(append(ticketDest(&item.Ticket), &item.UserName, &item.UserEmail)...); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func ticketDest(ticket *domain.Ticket) []any {
	return []any{
		&ticket.ID,
		&ticket.UserID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Solution,
		&ticket.IsActive,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DeletedAt,
	}
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(ticketDest(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}
