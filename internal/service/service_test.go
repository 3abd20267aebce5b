package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/ai"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository/memory"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

const aiSender = "usr_ai_assistant"

type fakeCompleter struct {
	mu       sync.Mutex
	classify string
	assist   string
	err      error
	calls    int
}

func (f *fakeCompleter) Complete(_ context.Context, model, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if model == "classify" {
		return f.classify, nil
	}
	return f.assist, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Send(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	store     *memory.Store
	completer *fakeCompleter
	sink      *recordingSink
	auth      *AuthService
	tickets   *TicketService
	messages  *MessageService
	logs      *AILogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	completer := &fakeCompleter{
		classify: `{"categoria": "login", "prioridad": "alta"}`,
		assist:   "Hola, revisaremos tu acceso en breve.",
	}
	triage := ai.NewTriage(completer, ai.Models{Classify: "classify", Assist: "assist"}, nil, nil)
	dispatcher := events.NewInMemoryDispatcher(nil)
	sink := &recordingSink{}
	NewNotificationService(dispatcher, sink, nil).RegisterHandlers()

	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", BcryptCost: 4}}
	f := &fixture{
		store:     store,
		completer: completer,
		sink:      sink,
		auth:      NewAuthService(cfg, AuthDependencies{UserRepo: store.Users()}),
		tickets: NewTicketService(TicketDependencies{
			TicketRepo: store.Tickets(),
			TxRunner:   store,
			Classifier: triage,
			Dispatcher: dispatcher,
		}),
		messages: NewMessageService(MessageDependencies{
			TicketRepo:  store.Tickets(),
			MessageRepo: store.Messages(),
			TxRunner:    store,
			Assistant:   triage,
			Dispatcher:  dispatcher,
			AISenderID:  aiSender,
		}),
		logs: NewAILogService(AILogDependencies{TicketRepo: store.Tickets(), AILogRepo: store.AILogs()}),
	}
	clock := steppingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	f.auth.now = clock
	f.tickets.now = clock
	f.messages.now = clock
	require.NoError(t, f.auth.EnsureSystemUser(context.Background(), aiSender))
	return f
}

// steppingClock advances one second per reading so creation order is total.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func (f *fixture) register(t *testing.T, email, username string) *AuthResult {
	t.Helper()
	res, err := f.auth.Register(context.Background(), RegisterInput{Email: email, Username: username, Password: "s3cret-pass"})
	require.NoError(t, err)
	return res
}

func (f *fixture) createTicket(t *testing.T, userID string) string {
	t.Helper()
	res, err := f.tickets.Create(context.Background(), userID, "No puedo entrar", "Me sale error 401")
	require.NoError(t, err)
	return res.ID
}

func assertCode(t *testing.T, err error, typ apperrors.ErrorType, code string) {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, typ, de.Type, "type of %v", err)
	assert.Equal(t, code, de.Code, "code of %v", err)
}

func TestEndToEndUserFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.register(t, "ana@example.com", "ana")
	login, err := f.auth.Login(ctx, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)

	payload, err := f.auth.TokenManager().ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, payload.Role)

	created, err := f.tickets.Create(ctx, payload.UserID, "X", "Y")
	require.NoError(t, err)
	assert.True(t, created.Category.Valid())
	assert.True(t, created.Priority.Valid())

	ticket, err := f.tickets.GetDetail(ctx, created.ID, payload.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)

	sent, err := f.messages.Create(ctx, created.ID, payload.UserID, "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, sent.MessageID)
	assert.NotEmpty(t, sent.Suggestion)

	msgs, err := f.messages.List(ctx, created.ID, payload.UserID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.MessageRoleUser, msgs[0].Role)
	assert.Equal(t, sent.MessageID, msgs[0].ID)
	assert.Equal(t, domain.MessageRoleIA, msgs[1].Role)
	assert.Equal(t, aiSender, msgs[1].SenderID)

	ticket, err = f.tickets.GetDetail(ctx, created.ID, payload.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)

	logs, err := f.logs.List(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.AILogClassification, logs[0].Action)
	assert.Equal(t, domain.AILogSuggestion, logs[1].Action)

	var in map[string]string
	require.NoError(t, json.Unmarshal(logs[1].Input, &in))
	assert.Equal(t, sent.MessageID, in["messageId"])
	assert.Equal(t, "hello", in["userMessage"])

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventMessageAdded,
		events.EventMessageAdded,
	}, f.sink.types())
}

func TestRegisterValidationAndConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "ana@example.com", "ana")

	_, err := f.auth.Register(ctx, RegisterInput{Email: "ANA@example.com ", Username: "other", Password: "s3cret-pass"})
	assertCode(t, err, apperrors.TypeConflict, CodeEmailExists)
	assert.Equal(t, "email", apperrors.ToDomainError(err).Param)

	_, err = f.auth.Register(ctx, RegisterInput{Email: "b@example.com", Username: "ana", Password: "s3cret-pass"})
	assertCode(t, err, apperrors.TypeConflict, CodeUsernameExists)

	_, err = f.auth.Register(ctx, RegisterInput{Email: "not-an-email", Username: "ab", Password: "short"})
	assertCode(t, err, apperrors.TypeValidation, apperrors.CodeInvalidParameter)
	issues, ok := apperrors.ToDomainError(err).Details["issues"].([]apperrors.Issue)
	require.True(t, ok)
	assert.Len(t, issues, 3)

	_, err = f.auth.Register(ctx, RegisterInput{Username: "carla", Password: "s3cret-pass"})
	assertCode(t, err, apperrors.TypeValidation, apperrors.CodeMissingRequiredField)
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "ana@example.com", "ana")

	_, err := f.auth.Login(ctx, "ana@example.com", "wrong-pass")
	assertCode(t, err, apperrors.TypeAuthentication, apperrors.CodeInvalidCredentials)

	_, err = f.auth.Login(ctx, "nobody@example.com", "s3cret-pass")
	assertCode(t, err, apperrors.TypeAuthentication, apperrors.CodeInvalidCredentials)

	_, err = f.auth.Login(ctx, aiSender+"@system.invalid", "!")
	assertCode(t, err, apperrors.TypeAuthentication, apperrors.CodeInvalidCredentials)
}

func TestProfileAndChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.register(t, "ana@example.com", "ana")

	profile, err := f.auth.Profile(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", profile.Username)

	_, err = f.auth.Profile(ctx, "usr_missing")
	assertCode(t, err, apperrors.TypeNotFound, apperrors.CodeResourceNotFound)

	err = f.auth.ChangePassword(ctx, res.User.ID, "wrong-pass", "new-s3cret-pass")
	assertCode(t, err, apperrors.TypeAuthentication, apperrors.CodeInvalidCredentials)

	require.NoError(t, f.auth.ChangePassword(ctx, res.User.ID, "s3cret-pass", "new-s3cret-pass"))
	_, err = f.auth.Login(ctx, "ana@example.com", "new-s3cret-pass")
	assert.NoError(t, err)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.tickets.Create(context.Background(), "usr_1", "  ", "desc")
	assertCode(t, err, apperrors.TypeValidation, apperrors.CodeMissingRequiredField)
	assert.Equal(t, "title", apperrors.ToDomainError(err).Param)
}

func TestClassificationNeverBlocksCreation(t *testing.T) {
	for name, setup := range map[string]func(*fakeCompleter){
		"transport error": func(c *fakeCompleter) { c.err = errors.New("down") },
		"malformed json":  func(c *fakeCompleter) { c.classify = "{categoria: login" },
		"out of enum":     func(c *fakeCompleter) { c.classify = `{"categoria":"hardware","prioridad":"alta"}` },
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			user := f.register(t, "ana@example.com", "ana")
			setup(f.completer)

			res, err := f.tickets.Create(ctx, user.User.ID, "X", "Y")
			require.NoError(t, err)
			assert.Equal(t, domain.CategoryOtro, res.Category)
			assert.Equal(t, domain.PriorityMedia, res.Priority)

			logs, err := f.logs.List(ctx, res.ID)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			var out map[string]any
			require.NoError(t, json.Unmarshal(logs[0].Output, &out))
			assert.Equal(t, true, out["fallback"])
		})
	}
}

func TestListEmptyPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	list, err := f.tickets.List(ctx, "usr_nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	strict := NewTicketService(TicketDependencies{TicketRepo: f.store.Tickets(), TxRunner: f.store, EmptyListIsNotFound: true})
	_, err = strict.List(ctx, "usr_nobody")
	assertCode(t, err, apperrors.TypeNotFound, CodeNoTicketsFound)
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "a@example.com", "usera")
	b := f.register(t, "b@example.com", "userb")
	id := f.createTicket(t, a.User.ID)

	_, err := f.tickets.GetDetail(ctx, id, b.User.ID)
	assertCode(t, err, apperrors.TypeNotFound, apperrors.CodeResourceNotFound)
	_, missing := f.tickets.GetDetail(ctx, "tck_missing", b.User.ID)
	assert.Equal(t, apperrors.ToDomainError(missing).Message, apperrors.ToDomainError(err).Message)

	_, err = f.messages.List(ctx, id, b.User.ID)
	assertCode(t, err, apperrors.TypeNotFound, apperrors.CodeResourceNotFound)
	_, err = f.messages.Create(ctx, id, b.User.ID, "hola")
	assertCode(t, err, apperrors.TypeNotFound, apperrors.CodeResourceNotFound)
	assertCode(t, f.tickets.CloseByUser(ctx, id, b.User.ID), apperrors.TypeNotFound, apperrors.CodeResourceNotFound)
	assertCode(t, f.tickets.Deactivate(ctx, id, b.User.ID), apperrors.TypeNotFound, apperrors.CodeResourceNotFound)

	owned, err := f.tickets.List(ctx, b.User.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestStatusMonotonicity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "ana@example.com", "ana")
	id := f.createTicket(t, user.User.ID)

	inProgress := domain.TicketStatusInProgress
	open := domain.TicketStatusOpen
	resolved := domain.TicketStatusResolved

	updated, err := f.tickets.Update(ctx, id, "usr_agent", TicketUpdateInput{Status: &inProgress})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	_, err = f.tickets.Update(ctx, id, "usr_agent", TicketUpdateInput{Status: &open})
	assertCode(t, err, apperrors.TypeValidation, CodeInvalidStatusTransition)

	_, err = f.tickets.Update(ctx, id, "usr_agent", TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)

	for _, next := range []domain.TicketStatus{open, inProgress, resolved} {
		next := next
		_, err = f.tickets.Update(ctx, id, "usr_agent", TicketUpdateInput{Status: &next})
		assertCode(t, err, apperrors.TypeValidation, CodeTicketAlreadyResolved)
	}
	assertCode(t, f.tickets.CloseByUser(ctx, id, user.User.ID), apperrors.TypeValidation, CodeTicketAlreadyResolved)

	stored, err := f.tickets.GetDetail(ctx, id, user.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
}

func TestUpdateWithSolutionResolves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "ana@example.com", "ana")
	id := f.createTicket(t, user.User.ID)

	solution := "  Reiniciamos tu contraseña  "
	updated, err := f.tickets.Update(ctx, id, "usr_agent", TicketUpdateInput{Solution: &solution})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	require.NotNil(t, updated.Solution)
	assert.Equal(t, "Reiniciamos tu contraseña", *updated.Solution)

	_, err = f.tickets.Update(ctx, "tck_missing", "usr_agent", TicketUpdateInput{Solution: &solution})
	assertCode(t, err, apperrors.TypeNotFound, apperrors.CodeResourceNotFound)

	_, err = f.tickets.Update(ctx, id, "usr_agent", TicketUpdateInput{})
	assertCode(t, err, apperrors.TypeValidation, apperrors.CodeMissingRequiredField)
}

func TestResolvedTicketsAreFrozen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "ana@example.com", "ana")
	id := f.createTicket(t, user.User.ID)
	_, err := f.messages.Create(ctx, id, user.User.ID, "hola")
	require.NoError(t, err)
	require.NoError(t, f.tickets.CloseByUser(ctx, id, user.User.ID))

	calls := f.completer.calls
	_, err = f.messages.Create(ctx, id, user.User.ID, "sigo aqui")
	assertCode(t, err, apperrors.TypeValidation, CodeTicketResolved)
	assert.Equal(t, calls, f.completer.calls)

	_, err = f.messages.CreateAgentMessage(ctx, id, "usr_agent", "te ayudo")
	assertCode(t, err, apperrors.TypeValidation, CodeTicketResolved)

	msgs, err := f.messages.List(ctx, id, user.User.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestAssistFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "ana@example.com", "ana")
	id := f.createTicket(t, user.User.ID)
	f.completer.assist = ""

	_, err := f.messages.Create(ctx, id, user.User.ID, "hola")
	assertCode(t, err, apperrors.TypeInternal, CodeAISuggestionFailed)

	msgs, err := f.messages.List(ctx, id, user.User.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	logs, err := f.logs.List(ctx, id)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	ticket, err := f.tickets.GetDetail(ctx, id, user.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
}

func TestAgentMessageFlipsStatusWithoutAI(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "ana@example.com", "ana")
	id := f.createTicket(t, user.User.ID)
	calls := f.completer.calls

	msg, err := f.messages.CreateAgentMessage(ctx, id, "usr_agent", "Estamos revisando")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageRoleAgent, msg.Role)
	assert.Equal(t, calls, f.completer.calls)

	ticket, err := f.tickets.GetDetail(ctx, id, user.User.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)

	logs, err := f.logs.List(ctx, id)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	got, err := f.messages.GetDetail(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Estamos revisando", got.Message)

	_, err = f.messages.GetDetail(ctx, "msg_missing")
	assertCode(t, err, apperrors.TypeNotFound, apperrors.CodeResourceNotFound)

	_, err = f.messages.CreateAgentMessage(ctx, id, "usr_agent", "   ")
	assertCode(t, err, apperrors.TypeValidation, apperrors.CodeMissingRequiredField)
}

func TestDeactivateRequiresResolved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "ana@example.com", "ana")
	id := f.createTicket(t, user.User.ID)
	_, err := f.messages.Create(ctx, id, user.User.ID, "hola")
	require.NoError(t, err)

	assertCode(t, f.tickets.Deactivate(ctx, id, user.User.ID), apperrors.TypeValidation, CodeTicketNotResolved)

	require.NoError(t, f.tickets.CloseByUser(ctx, id, user.User.ID))
	require.NoError(t, f.tickets.Deactivate(ctx, id, user.User.ID))

	_, err = f.tickets.GetDetail(ctx, id, user.User.ID)
	assertCode(t, err, apperrors.TypeNotFound, apperrors.CodeResourceNotFound)
	_, err = f.logs.List(ctx, id)
	assertCode(t, err, apperrors.TypeNotFound, apperrors.CodeResourceNotFound)
	assertCode(t, f.tickets.Deactivate(ctx, id, user.User.ID), apperrors.TypeNotFound, apperrors.CodeResourceNotFound)

	msgs, err := f.messages.ListForAgent(ctx, id)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	_, err = f.messages.CreateAgentMessage(ctx, id, "usr_agent", "hola")
	assertCode(t, err, apperrors.TypeNotFound, apperrors.CodeResourceNotFound)

	_, err = f.messages.ListForAgent(ctx, "tck_missing")
	assertCode(t, err, apperrors.TypeNotFound, apperrors.CodeResourceNotFound)
}

func TestListAllFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "a@example.com", "usera")
	b := f.register(t, "b@example.com", "userb")

	first := f.createTicket(t, a.User.ID)
	second := f.createTicket(t, b.User.ID)
	third := f.createTicket(t, a.User.ID)
	require.NoError(t, f.tickets.CloseByUser(ctx, second, b.User.ID))

	open, err := f.tickets.ListAll(ctx, TicketQuery{Status: "open"})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, third, open[0].ID)
	assert.Equal(t, first, open[1].ID)
	for _, item := range open {
		assert.Equal(t, domain.TicketStatusOpen, item.Status)
		assert.Equal(t, "usera", item.UserName)
		assert.Equal(t, "a@example.com", item.UserEmail)
	}

	all, err := f.tickets.ListAll(ctx, TicketQuery{})
	require.NoError(t, err)
	again, err := f.tickets.ListAll(ctx, TicketQuery{})
	require.NoError(t, err)
	assert.Equal(t, all, again)
	assert.Len(t, all, 3)

	none, err := f.tickets.ListAll(ctx, TicketQuery{Category: "pago"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.tickets.ListAll(ctx, TicketQuery{Priority: "urgent"})
	assertCode(t, err, apperrors.TypeValidation, apperrors.CodeInvalidParameter)
	assert.Equal(t, "priority", apperrors.ToDomainError(err).Param)
}

func TestListAllIncludeInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.register(t, "a@example.com", "usera")
	id := f.createTicket(t, a.User.ID)
	require.NoError(t, f.tickets.CloseByUser(ctx, id, a.User.ID))
	require.NoError(t, f.tickets.Deactivate(ctx, id, a.User.ID))

	active, err := f.tickets.ListAll(ctx, TicketQuery{})
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := f.tickets.ListAll(ctx, TicketQuery{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)
	assert.NotNil(t, all[0].DeletedAt)
}

type failingSink struct{ calls int }

func (f *failingSink) Send(context.Context, events.Event) error {
	f.calls++
	return errors.New("redis unavailable")
}

func TestNotificationSinkFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher(nil)
	sink := &failingSink{}
	NewNotificationService(dispatcher, sink, nil).RegisterHandlers()

	store := memory.NewStore()
	completer := &fakeCompleter{classify: `{"categoria":"pago","prioridad":"baja"}`}
	tickets := NewTicketService(TicketDependencies{
		TicketRepo: store.Tickets(),
		TxRunner:   store,
		Classifier: ai.NewTriage(completer, ai.Models{Classify: "classify"}, nil, nil),
		Dispatcher: dispatcher,
	})

	res, err := tickets.Create(ctx, "usr_1", "Cobro doble", "Me cobraron dos veces")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryPago, res.Category)
	assert.Equal(t, domain.PriorityBaja, res.Priority)
	assert.Equal(t, 1, sink.calls)

	require.NoError(t, tickets.CloseByUser(ctx, res.ID, "usr_1"))
	assert.Equal(t, 2, sink.calls)
}
