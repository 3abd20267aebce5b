// Package memory is an in-process implementation of the repository
// interfaces. It backs the service and handler tests and lets the API run
// without Postgres.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// Store holds every table in maps guarded by one lock.
type Store struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	users    map[string]domain.User
	tickets  map[string]domain.Ticket
	messages map[string]domain.Message
	aiLogs   map[string]domain.AILog
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    map[string]domain.User{},
		tickets:  map[string]domain.Ticket{},
		messages: map[string]domain.Message{},
		aiLogs:   map[string]domain.AILog{},
	}
}

var (
	_ repository.UserRepository    = (*userRepo)(nil)
	_ repository.TicketRepository  = (*ticketRepo)(nil)
	_ repository.MessageRepository = (*messageRepo)(nil)
	_ repository.AILogRepository   = (*aiLogRepo)(nil)
	_ repository.TxRunner          = (*Store)(nil)
)

func (s *Store) Users() repository.UserRepository       { return &userRepo{s} }
func (s *Store) Tickets() repository.TicketRepository   { return &ticketRepo{s} }
func (s *Store) Messages() repository.MessageRepository { return &messageRepo{s} }
func (s *Store) AILogs() repository.AILogRepository     { return &aiLogRepo{s} }

// WithinTx serializes units of work and restores the ticket, message and
// audit tables if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	tickets := maps.Clone(s.tickets)
	messages := maps.Clone(s.messages)
	aiLogs := maps.Clone(s.aiLogs)
	s.mu.RUnlock()

	err := fn(repository.Stores{Tickets: s.Tickets(), Messages: s.Messages(), AILogs: s.AILogs()})
	if err != nil {
		s.mu.Lock()
		s.tickets = tickets
		s.messages = messages
		s.aiLogs = aiLogs
		s.mu.Unlock()
	}
	return err
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	if !user.Role.Valid() {
		return fmt.Errorf("user %s: invalid role %q", user.ID, user.Role)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	if _, ok := r.s.users[user.ID]; ok {
		return repository.ErrDuplicateKey
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	r.s.users[id] = u
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepo) find(match func(domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[ticket.ID]; ok {
		return repository.ErrDuplicateKey
	}
	r.s.tickets[ticket.ID] = copyTicket(*ticket)
	return nil
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	current.Status = ticket.Status
	current.Solution = ticket.Solution
	current.IsActive = ticket.IsActive
	current.UpdatedAt = ticket.UpdatedAt
	current.DeletedAt = ticket.DeletedAt
	r.s.tickets[ticket.ID] = copyTicket(current)
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t = copyTicket(t)
	return &t, nil
}

// GetByIDForUpdate needs no row lock here; WithinTx already serializes.
func (r *ticketRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) ListByOwner(_ context.Context, userID string) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Ticket{}
	for _, t := range r.s.tickets {
		if t.UserID == userID && t.IsActive {
			result = append(result, copyTicket(t))
		}
	}
	sort.Slice(result, func(i, j int) bool { return newerFirst(result[i], result[j]) })
	return result, nil
}

func (r *ticketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.TicketWithOwner, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.TicketWithOwner{}
	for _, t := range r.s.tickets {
		if !filter.IncludeInactive && !t.IsActive {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}
		owner, ok := r.s.users[t.UserID]
		if !ok {
			continue
		}
		result = append(result, domain.TicketWithOwner{Ticket: copyTicket(t), UserName: owner.Username, UserEmail: owner.Email})
	}
	sort.Slice(result, func(i, j int) bool { return newerFirst(result[i].Ticket, result[j].Ticket) })
	return result, nil
}

func newerFirst(a, b domain.Ticket) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func copyTicket(t domain.Ticket) domain.Ticket {
	if t.Solution != nil {
		v := *t.Solution
		t.Solution = &v
	}
	if t.DeletedAt != nil {
		v := *t.DeletedAt
		t.DeletedAt = &v
	}
	return t
}

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(_ context.Context, msg *domain.Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("message %s: invalid role %q", msg.ID, msg.Role)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[msg.TicketID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.messages[msg.ID]; ok {
		return repository.ErrDuplicateKey
	}
	r.s.messages[msg.ID] = *msg
	return nil
}

func (r *messageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Message{}
	for _, m := range r.s.messages {
		if m.TicketID == ticketID && m.IsActive {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *messageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.messages[id]
	if !ok || !m.IsActive {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

type aiLogRepo struct{ s *Store }

func (r *aiLogRepo) Create(_ context.Context, entry *domain.AILog) error {
	if !entry.Action.Valid() {
		return fmt.Errorf("ai log %s: invalid action %q", entry.ID, entry.Action)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[entry.TicketID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.aiLogs[entry.ID]; ok {
		return repository.ErrDuplicateKey
	}
	e := *entry
	e.Input = append([]byte(nil), entry.Input...)
	e.Output = append([]byte(nil), entry.Output...)
	r.s.aiLogs[e.ID] = e
	return nil
}

func (r *aiLogRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.AILog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.AILog{}
	for _, e := range r.s.aiLogs {
		if e.TicketID == ticketID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
