// Package ai wraps the external text-completion service used to triage
// tickets and draft replies.
package ai

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Completer returns the raw text a model produced for prompt.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, model, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, model, prompt string) (string, error) {
	return f(ctx, model, prompt)
}

// ErrNoAPIKey is returned by providers built without credentials.
var ErrNoAPIKey = errors.New("ai: api key not configured")

const maxResponseBytes = 64 * 1024

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// NewCompleter picks a provider by name ("gemini" or "anthropic").
func NewCompleter(provider, apiKey, baseURL string, timeout time.Duration) (Completer, error) {
	switch provider {
	case "", "gemini":
		return NewGeminiClient(apiKey, baseURL, timeout), nil
	case "anthropic":
		return NewAnthropicClient(apiKey, baseURL, timeout), nil
	default:
		return nil, errors.New("ai: unknown provider " + provider)
	}
}
