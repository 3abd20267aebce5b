package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Stores groups the repositories written together inside one unit of work.
type Stores struct {
	Tickets  TicketRepository
	Messages MessageRepository
	AILogs   AILogRepository
}

// TxRunner runs fn atomically: every write made through the given Stores is
// committed when fn returns nil and discarded otherwise.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(Stores) error) error
}

var _ TxRunner = (*PgTxRunner)(nil)

// PgTxRunner opens a Postgres transaction per call.
type PgTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner builds the runner on pool.
func NewTxRunner(pool *pgxpool.Pool) *PgTxRunner {
	return &PgTxRunner{pool: pool}
}

func (r *PgTxRunner) WithinTx(ctx context.Context, fn func(Stores) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stores := Stores{
		Tickets:  NewTicketRepository(tx),
		Messages: NewMessageRepository(tx),
		AILogs:   NewAILogRepository(tx),
	}
	if err := fn(stores); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
