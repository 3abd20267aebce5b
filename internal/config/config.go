package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinBcryptCost is the lowest bcrypt cost the service will hash with.
const MinBcryptCost = 10

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	AI        AIConfig
	Tickets   TicketsConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	EventsChannel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// AIConfig selects and tunes the text-completion provider.
type AIConfig struct {
	Provider        string
	GeminiAPIKey    string
	AnthropicAPIKey string
	BaseURL         string
	ClassifyModel   string
	AssistModel     string
	TimeoutSeconds  int
	SenderID        string
}

// TicketsConfig holds ticket listing policy.
type TicketsConfig struct {
	EmptyListIsNotFound bool
}

// RateLimitConfig bounds unauthenticated auth traffic per client IP.
type RateLimitConfig struct {
	AuthPerSecond int
	AuthBurst     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:            firstEnv("POSTGRES_DSN", "DATABASE_URL"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:          os.Getenv("REDIS_ADDR"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			EventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "support:ticket-events"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             firstEnv("AUTH_JWT_SECRET", "JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 7*24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", MinBcryptCost),
		},
		AI: AIConfig{
			Provider:        strings.ToLower(getEnv("AI_PROVIDER", "gemini")),
			GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			BaseURL:         os.Getenv("AI_BASE_URL"),
			ClassifyModel:   getEnv("AI_CLASSIFY_MODEL", "gemini-2.5-flash"),
			AssistModel:     getEnv("AI_ASSIST_MODEL", "gemini-2.5-flash-lite"),
			TimeoutSeconds:  getEnvAsInt("AI_TIMEOUT_SECONDS", 20),
			SenderID:        getEnv("AI_SENDER_ID", "usr_ai_assistant"),
		},
		Tickets: TicketsConfig{
			EmptyListIsNotFound: getEnvAsBool("TICKETS_EMPTY_LIST_NOT_FOUND", false),
		},
		RateLimit: RateLimitConfig{
			AuthPerSecond: getEnvAsInt("RATE_LIMIT_AUTH_PER_SECOND", 5),
			AuthBurst:     getEnvAsInt("RATE_LIMIT_AUTH_BURST", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes values and rejects unsafe combinations.
func (c *Config) Validate() error {
	if c.Auth.BcryptCost < MinBcryptCost {
		c.Auth.BcryptCost = MinBcryptCost
	}
	if c.Auth.JWTSecret == "" {
		if c.App.IsProduction() {
			return errors.New("AUTH_JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = "dev-secret"
	}
	switch c.AI.Provider {
	case "gemini", "anthropic":
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AI.Provider)
	}
	if strings.TrimSpace(c.AI.SenderID) == "" {
		return errors.New("AI_SENDER_ID must not be empty")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout is the per-call bound on the completion service.
func (a AIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// APIKey returns the key for the selected provider.
func (a AIConfig) APIKey() string {
	if a.Provider == "anthropic" {
		return a.AnthropicAPIKey
	}
	return a.GeminiAPIKey
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
