package service

import (
	"errors"

	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// Error codes raised by the services on top of the common ones.
const (
	CodeEmailExists             = "email_already_exists"
	CodeUsernameExists          = "username_already_exists"
	CodeNoTicketsFound          = "no_tickets_found"
	CodeTicketAlreadyResolved   = "ticket_already_resolved"
	CodeTicketResolved          = "ticket_resolved"
	CodeTicketNotResolved       = "ticket_not_resolved"
	CodeInvalidStatusTransition = "invalid_status_transition"
	CodeAISuggestionFailed      = "ai_suggestion_failed"
)

var (
	errTicketNotFound  = apperrors.NewNotFound(apperrors.CodeResourceNotFound, "ticket not found")
	errMessageNotFound = apperrors.NewNotFound(apperrors.CodeResourceNotFound, "message not found")
	errUserNotFound    = apperrors.NewNotFound(apperrors.CodeResourceNotFound, "user not found")
)

// notFoundOr replaces a repository miss with notFound and passes anything
// else through.
func notFoundOr(err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}
