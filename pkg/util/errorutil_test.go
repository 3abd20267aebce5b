package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	notFound := ToDomainError(fmt.Errorf("load: %w", pgx.ErrNoRows))
	assert.Equal(t, TypeNotFound, notFound.Type)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, TypeInternal, internal.Type)
	assert.Equal(t, CodeInternalError, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)

	wrapped := fmt.Errorf("ctx: %w", NewConflict("email_already_exists", "taken", "email"))
	de := ToDomainError(wrapped)
	assert.Equal(t, TypeConflict, de.Type)
	assert.Equal(t, "email", de.Param)
}

func TestDomainErrorIs(t *testing.T) {
	err := NewNotFound("no_tickets_found", "none")
	assert.ErrorIs(t, err, NewNotFound("no_tickets_found", "other message"))
	assert.NotErrorIs(t, err, NewNotFound("", "none"))
	assert.True(t, IsType(err, TypeNotFound))
	assert.True(t, HasCode(err, "no_tickets_found"))
}

func TestNewValidationIssues(t *testing.T) {
	err := NewValidationIssues([]Issue{
		{Path: "email", Code: IssueRequired, Message: "email is required"},
		{Path: "password", Code: "too_small", Message: "too short"},
	})
	de := ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, CodeMissingRequiredField, de.Code)
	assert.Equal(t, "email", de.Param)
	assert.Len(t, de.Details["issues"], 2)

	err = NewValidationIssues([]Issue{{Path: "password", Code: "too_small", Message: "too short"}})
	assert.Equal(t, CodeInvalidParameter, ToDomainError(err).Code)
}

func TestRoleErrorsDiffer(t *testing.T) {
	authz := ToDomainError(NewAuthorization("Insufficient permissions"))
	assert.Equal(t, TypeAuthorization, authz.Type)
	assert.Equal(t, CodeForbidden, authz.Code)
	assert.Equal(t, http.StatusForbidden, authz.HTTPStatus)

	rl := ToDomainError(NewRateLimited("slow down"))
	assert.Equal(t, http.StatusTooManyRequests, rl.HTTPStatus)
}
