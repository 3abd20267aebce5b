package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketStatusOpen, TicketStatusInProgress, true},
		{TicketStatusOpen, TicketStatusResolved, true},
		{TicketStatusOpen, TicketStatusOpen, true},
		{TicketStatusInProgress, TicketStatusResolved, true},
		{TicketStatusInProgress, TicketStatusOpen, false},
		{TicketStatusResolved, TicketStatusResolved, false},
		{TicketStatusResolved, TicketStatusOpen, false},
		{TicketStatusOpen, TicketStatus("closed"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestParseEnums(t *testing.T) {
	_, err := ParseTicketCategory("pago")
	require.NoError(t, err)
	_, err = ParseTicketCategory("billing")
	require.Error(t, err)

	_, err = ParseTicketPriority("alta")
	require.NoError(t, err)
	_, err = ParseTicketPriority("HIGH")
	require.Error(t, err)

	_, err = ParseTicketStatus("in_progress")
	require.NoError(t, err)
}

func TestTicketValidate(t *testing.T) {
	ticket := &Ticket{ID: "tck_1", Category: CategoryOtro, Priority: PriorityMedia, Status: TicketStatusOpen}
	require.NoError(t, ticket.Validate())

	ticket.Priority = "urgent"
	require.Error(t, ticket.Validate())
}

func TestUserPublicDefaultsRole(t *testing.T) {
	u := &User{ID: "usr_1", Email: "a@b.c", Username: "ana", PasswordHash: "secret"}
	pub := u.Public()
	assert.Equal(t, RoleUser, pub.Role)
	assert.Equal(t, "ana", pub.Username)
}
