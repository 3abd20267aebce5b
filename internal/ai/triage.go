package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MaxInputRunes bounds every user-provided field placed into a prompt.
const MaxInputRunes = 5000

const minSuggestionRunes = 10

// Task and outcome labels reported to the Recorder.
const (
	TaskClassify = "classify"
	TaskAssist   = "assist"

	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// ErrEmptySuggestion is returned when the drafted reply is empty or too short
// to show a user.
var ErrEmptySuggestion = errors.New("ai: empty suggestion")

// Recorder receives one call per completion attempt.
type Recorder interface {
	ObserveAIInvocation(task, outcome string)
}

// Classification is the result of Classify. Fallback is set when the default
// pair was used, with Reason describing why.
type Classification struct {
	Category domain.TicketCategory
	Priority domain.TicketPriority
	Fallback bool
	Reason   string
}

// DefaultClassification is used whenever the model output cannot be trusted.
func DefaultClassification(reason string) Classification {
	return Classification{
		Category: domain.CategoryOtro,
		Priority: domain.PriorityMedia,
		Fallback: true,
		Reason:   reason,
	}
}

// TicketContext is the ticket metadata embedded in reply prompts.
type TicketContext struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
}

// HistoryEntry is one prior message of the conversation.
type HistoryEntry struct {
	SenderID string `json:"senderId"`
	Message  string `json:"message"`
}

// Models names the model used per task.
type Models struct {
	Classify string
	Assist   string
}

// Triage classifies tickets and drafts replies through a Completer.
type Triage struct {
	completer Completer
	models    Models
	logger    *zap.Logger
	recorder  Recorder
}

// NewTriage wires a Triage. logger and recorder may be nil.
func NewTriage(completer Completer, models Models, logger *zap.Logger, recorder Recorder) *Triage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Triage{completer: completer, models: models, logger: logger, recorder: recorder}
}

// Classify never fails: any transport, parse or schema problem yields the
// default classification.
func (t *Triage) Classify(ctx context.Context, title, description string) Classification {
	prompt := strings.NewReplacer(
		"{{titulo}}", sanitize(title),
		"{{descripcion}}", sanitize(description),
	).Replace(classifyPrompt)

	raw, err := t.completer.Complete(ctx, t.models.Classify, prompt)
	if err != nil {
		return t.fallback(fmt.Sprintf("completion failed: %v", err))
	}

	result, err := parseClassification(raw)
	if err != nil {
		return t.fallback(err.Error())
	}
	t.observe(TaskClassify, OutcomeOK)
	return result
}

func (t *Triage) fallback(reason string) Classification {
	t.logger.Warn("ticket classification fell back to default", zap.String("reason", reason))
	t.observe(TaskClassify, OutcomeFallback)
	return DefaultClassification(reason)
}

// Assist drafts a reply to latest given the ticket and the prior history.
func (t *Triage) Assist(ctx context.Context, ticket TicketContext, history []HistoryEntry, latest string) (string, error) {
	sanitized := make([]HistoryEntry, len(history))
	for i, h := range history {
		sanitized[i] = HistoryEntry{SenderID: h.SenderID, Message: sanitize(h.Message)}
	}
	historyJSON, err := json.Marshal(sanitized)
	if err != nil {
		t.observe(TaskAssist, OutcomeError)
		return "", fmt.Errorf("ai: encode history: %w", err)
	}

	prompt := strings.NewReplacer(
		"{{titulo}}", sanitize(ticket.Title),
		"{{descripcion}}", sanitize(ticket.Description),
		"{{categoria}}", string(ticket.Category),
		"{{prioridad}}", string(ticket.Priority),
		"{{historial}}", string(historyJSON),
		"{{mensajeUsuario}}", sanitize(latest),
	).Replace(assistPrompt)

	raw, err := t.completer.Complete(ctx, t.models.Assist, prompt)
	if err != nil {
		t.observe(TaskAssist, OutcomeError)
		return "", fmt.Errorf("ai: assist: %w", err)
	}

	reply := cleanReply(raw)
	if utf8.RuneCountInString(reply) < minSuggestionRunes {
		t.observe(TaskAssist, OutcomeError)
		return "", ErrEmptySuggestion
	}
	t.observe(TaskAssist, OutcomeOK)
	return reply, nil
}

func (t *Triage) observe(task, outcome string) {
	if t.recorder != nil {
		t.recorder.ObserveAIInvocation(task, outcome)
	}
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxInputRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxInputRunes])
}

var quotePairs = [][2]string{{`"`, `"`}, {"'", "'"}, {"\u201c", "\u201d"}}

func cleanReply(raw string) string {
	reply := strings.TrimSpace(raw)
	for _, q := range quotePairs {
		if len(reply) >= len(q[0])+len(q[1]) && strings.HasPrefix(reply, q[0]) && strings.HasSuffix(reply, q[1]) {
			reply = strings.TrimSpace(reply[len(q[0]) : len(reply)-len(q[1])])
		}
	}
	return reply
}

type classificationPayload struct {
	Categoria string `json:"categoria"`
	Prioridad string `json:"prioridad"`
}

func parseClassification(raw string) (Classification, error) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return Classification{}, errors.New("no JSON object in completion")
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return Classification{}, fmt.Errorf("malformed JSON: %w", err)
	}

	category, err := domain.ParseTicketCategory(strings.ToLower(strings.TrimSpace(payload.Categoria)))
	if err != nil {
		return Classification{}, fmt.Errorf("invalid categoria %q", payload.Categoria)
	}
	priority, err := domain.ParseTicketPriority(strings.ToLower(strings.TrimSpace(payload.Prioridad)))
	if err != nil {
		return Classification{}, fmt.Errorf("invalid prioridad %q", payload.Prioridad)
	}
	return Classification{Category: category, Priority: priority}, nil
}

// extractJSONObject returns the first balanced {...} in s, skipping braces
// inside string literals.
func extractJSONObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := balancedEnd(s, start); ok {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func balancedEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
