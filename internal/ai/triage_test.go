package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
)

type recordedCall struct {
	model  string
	prompt string
}

type stubCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []recordedCall
}

func (s *stubCompleter) Complete(_ context.Context, model, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, recordedCall{model: model, prompt: prompt})
	return s.reply, s.err
}

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) ObserveAIInvocation(task, outcome string) {
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[task+"/"+outcome]++
}

var testModels = Models{Classify: "classify-model", Assist: "assist-model"}

func TestClassifyParsesFencedJSON(t *testing.T) {
	stub := &stubCompleter{reply: "```json\n{\"categoria\": \"pago\", \"prioridad\": \"alta\"}\n```"}
	rec := &countingRecorder{}
	tr := NewTriage(stub, testModels, nil, rec)

	got := tr.Classify(context.Background(), "Cobro doble", "Me cobraron dos veces")
	assert.Equal(t, domain.CategoryPago, got.Category)
	assert.Equal(t, domain.PriorityAlta, got.Priority)
	assert.False(t, got.Fallback)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, "classify-model", stub.calls[0].model)
	assert.Contains(t, stub.calls[0].prompt, "TITULO: Cobro doble")
	assert.Equal(t, 1, rec.counts["classify/ok"])
}

func TestClassifyFallsBack(t *testing.T) {
	cases := map[string]*stubCompleter{
		"transport error":  {err: errors.New("connection reset")},
		"no json":          {reply: "no se puede clasificar"},
		"bad category":     {reply: `{"categoria": "hardware", "prioridad": "alta"}`},
		"bad priority":     {reply: `{"categoria": "login", "prioridad": "urgente"}`},
		"truncated object": {reply: `{"categoria": "login", "prioridad": `},
	}
	for name, stub := range cases {
		t.Run(name, func(t *testing.T) {
			rec := &countingRecorder{}
			got := NewTriage(stub, testModels, nil, rec).Classify(context.Background(), "t", "d")
			assert.Equal(t, domain.CategoryOtro, got.Category)
			assert.Equal(t, domain.PriorityMedia, got.Priority)
			assert.True(t, got.Fallback)
			assert.NotEmpty(t, got.Reason)
			assert.Equal(t, 1, rec.counts["classify/fallback"])
		})
	}
}

func TestClassifyUsesFirstValidObject(t *testing.T) {
	stub := &stubCompleter{reply: `Claro {no json} aqui: {"categoria": "Login", "prioridad": " BAJA ", "nota": "usa {llaves}"} fin`}
	got := NewTriage(stub, testModels, nil, nil).Classify(context.Background(), "t", "d")
	assert.Equal(t, domain.CategoryLogin, got.Category)
	assert.Equal(t, domain.PriorityBaja, got.Priority)
}

func TestPromptInputIsTruncatedAndNotReexpanded(t *testing.T) {
	stub := &stubCompleter{reply: `{"categoria": "otro", "prioridad": "baja"}`}
	long := strings.Repeat("ñ", MaxInputRunes+100)
	NewTriage(stub, testModels, nil, nil).Classify(context.Background(), "{{descripcion}}", long)

	require.Len(t, stub.calls, 1)
	prompt := stub.calls[0].prompt
	assert.Contains(t, prompt, "TITULO: {{descripcion}}")
	assert.Contains(t, prompt, strings.Repeat("ñ", MaxInputRunes))
	assert.NotContains(t, prompt, strings.Repeat("ñ", MaxInputRunes+1))
}

func TestAssistBuildsPromptWithHistory(t *testing.T) {
	stub := &stubCompleter{reply: "  \"Gracias por escribirnos, revisaremos tu acceso.\"  "}
	rec := &countingRecorder{}
	tr := NewTriage(stub, testModels, nil, rec)

	reply, err := tr.Assist(context.Background(),
		TicketContext{Title: "No puedo entrar", Description: "Error 401", Category: domain.CategoryLogin, Priority: domain.PriorityAlta},
		[]HistoryEntry{{SenderID: "usr_1", Message: "Hola"}, {SenderID: "usr_ai", Message: "Hola, cuéntame más"}},
		"Sigue fallando",
	)
	require.NoError(t, err)
	assert.Equal(t, "Gracias por escribirnos, revisaremos tu acceso.", reply)

	require.Len(t, stub.calls, 1)
	prompt := stub.calls[0].prompt
	assert.Equal(t, "assist-model", stub.calls[0].model)
	assert.Contains(t, prompt, `[{"senderId":"usr_1","message":"Hola"},{"senderId":"usr_ai","message":"Hola, cuéntame más"}]`)
	assert.Contains(t, prompt, "CATEGORIA: login")
	assert.Contains(t, prompt, `"Sigue fallando"`)
	assert.Equal(t, 1, rec.counts["assist/ok"])
}

func TestAssistRejectsShortReply(t *testing.T) {
	for _, reply := range []string{"", "   ", "ok", `"  "`} {
		stub := &stubCompleter{reply: reply}
		_, err := NewTriage(stub, testModels, nil, nil).Assist(context.Background(), TicketContext{}, nil, "hola")
		assert.ErrorIs(t, err, ErrEmptySuggestion, "reply %q", reply)
	}
}

func TestAssistPropagatesTransportError(t *testing.T) {
	boom := errors.New("timeout")
	rec := &countingRecorder{}
	_, err := NewTriage(&stubCompleter{err: boom}, testModels, nil, rec).Assist(context.Background(), TicketContext{}, nil, "hola")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, rec.counts["assist/error"])
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "abc", sanitize("  abc \n"))
	out := sanitize(strings.Repeat("é", MaxInputRunes*2))
	assert.Equal(t, MaxInputRunes, utf8.RuneCountInString(out))
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := extractJSONObject(`prefix {"a": "}{", "b": {"c": 1}} suffix`)
	require.True(t, ok)
	assert.Equal(t, `{"a": "}{", "b": {"c": 1}}`, obj)

	_, ok = extractJSONObject("nothing here")
	assert.False(t, ok)
}
