package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
)

var statusRank = map[TicketStatus]int{
	TicketStatusOpen:       0,
	TicketStatusInProgress: 1,
	TicketStatusResolved:   2,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next keeps the status
// monotonic. Resolved is terminal; staying in place is allowed otherwise.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	if !s.Valid() || !next.Valid() || s == TicketStatusResolved {
		return false
	}
	return statusRank[next] >= statusRank[s]
}

// TicketCategory is assigned once by triage.
type TicketCategory string

const (
	CategoryLogin   TicketCategory = "login"
	CategoryPago    TicketCategory = "pago"
	CategoryCuenta  TicketCategory = "cuenta"
	CategoryTecnico TicketCategory = "tecnico"
	CategoryOtro    TicketCategory = "otro"
)

// Categories lists every category in prompt order.
var Categories = []TicketCategory{CategoryLogin, CategoryPago, CategoryCuenta, CategoryTecnico, CategoryOtro}

func (c TicketCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	PriorityAlta  TicketPriority = "alta"
	PriorityMedia TicketPriority = "media"
	PriorityBaja  TicketPriority = "baja"
)

// Priorities lists every priority in prompt order.
var Priorities = []TicketPriority{PriorityAlta, PriorityMedia, PriorityBaja}

func (p TicketPriority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// ParseTicketStatus converts raw input into a status.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	s := TicketStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
	return s, nil
}

// ParseTicketCategory converts raw input into a category.
func ParseTicketCategory(raw string) (TicketCategory, error) {
	c := TicketCategory(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown ticket category %q", raw)
	}
	return c, nil
}

// ParseTicketPriority converts raw input into a priority.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	p := TicketPriority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("unknown ticket priority %q", raw)
	}
	return p, nil
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	Status      TicketStatus
	Solution    *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Validate checks the enum fields before the ticket reaches storage.
func (t *Ticket) Validate() error {
	if !t.Category.Valid() {
		return fmt.Errorf("ticket %s: invalid category %q", t.ID, t.Category)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("ticket %s: invalid priority %q", t.ID, t.Priority)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("ticket %s: invalid status %q", t.ID, t.Status)
	}
	return nil
}

// TicketWithOwner annotates a ticket with its owner for the agent view.
type TicketWithOwner struct {
	Ticket
	UserName  string
	UserEmail string
}
