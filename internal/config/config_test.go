package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_BCRYPT_COST", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7*24*60, cfg.Auth.AccessTokenTTLMinutes)
	assert.Equal(t, MinBcryptCost, cfg.Auth.BcryptCost)
	assert.Equal(t, "dev-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, 20*time.Second, cfg.AI.Timeout())
	assert.False(t, cfg.Tickets.EmptyListIsNotFound)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "ollama")
	_, err := Load()
	require.Error(t, err)
}

func TestAIConfigAPIKey(t *testing.T) {
	cfg := AIConfig{Provider: "anthropic", GeminiAPIKey: "g", AnthropicAPIKey: "a"}
	assert.Equal(t, "a", cfg.APIKey())
	cfg.Provider = "gemini"
	assert.Equal(t, "g", cfg.APIKey())
}
