package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token modes supported by the auth layer.
const (
	TokenModeDemo = "demo"
	TokenModeJWT  = "jwt"
)

// Store drivers supported by the conversation store.
const (
	StoreDriverMemory   = "memory"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration values loaded from environment variables.
// It is read once at startup and treated as immutable afterwards.
type Config struct {
	HTTPPort           string
	Environment        string
	LogFilePath        string
	CORSAllowedOrigins []string

	App        AppConfig
	Auth       AuthConfig
	Chat       ChatConfig
	Problems   ProblemsConfig
	Workflow   WorkflowConfig
	DeadLetter DeadLetterConfig
	Store      StoreConfig
}

// AppConfig identifies the chatbot in outbound payloads and headers.
type AppConfig struct {
	Name    string
	Version string
}

// AuthConfig controls login throttling and session tokens.
type AuthConfig struct {
	TokenMode        string
	JWTSecret        string
	SessionTimeout   time.Duration
	MaxLoginAttempts int
	// LockoutWindow expires failed-login counters. Zero keeps them until the next success.
	LockoutWindow time.Duration
}

// ChatConfig controls the chat webhook proxy.
type ChatConfig struct {
	WebhookURL            string
	Timeout               time.Duration
	MaxMessagesPerSession int
	MaxMessageLength      int
	ContextMessages       int
}

// ProblemsConfig controls the community tracker webhook proxy.
type ProblemsConfig struct {
	WebhookURL string
	AppName    string
	Timeout    time.Duration
}

// WorkflowConfig controls the outbound delivery queue.
type WorkflowConfig struct {
	URL           string
	Enabled       bool
	BatchSize     int
	RetryAttempts int
	Timeout       time.Duration
	// MaxRequeues bounds how often an event may go back to the head of the queue.
	// Zero means unlimited.
	MaxRequeues int
}

// DeadLetterConfig points the dead-letter sink at NATS. An empty URL logs instead.
type DeadLetterConfig struct {
	NATSURL string
	Subject string
}

// StoreConfig selects the conversation store backend.
type StoreConfig struct {
	Driver       string
	SQLitePath   string
	DatabaseURL  string
	RedisURL     string
	HistoryLimit int
}

const defaultWorkflowURL = "http://localhost:5678/webhook-test/kentj-webhook"

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.")
	}
	return FromEnv()
}

// FromEnv builds and validates a Config from the current process environment.
func FromEnv() (*Config, error) {
	workflowURL := getEnv("N8N_WORKFLOW_URL", defaultWorkflowURL)

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		Environment:        getEnv("APP_ENV", "development"),
		LogFilePath:        getEnv("LOG_FILE_PATH", ""),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		App: AppConfig{
			Name:    getEnv("APP_NAME", "Kent J."),
			Version: getEnv("APP_VERSION", "1.0.0"),
		},
		Auth: AuthConfig{
			TokenMode:        strings.ToLower(getEnv("AUTH_TOKEN_MODE", TokenModeDemo)),
			JWTSecret:        getEnv("JWT_SECRET", "default-super-secret-key"),
			SessionTimeout:   time.Duration(getEnvInt("SESSION_TIMEOUT_HOURS", 24)) * time.Hour,
			MaxLoginAttempts: getEnvInt("MAX_LOGIN_ATTEMPTS", 5),
			LockoutWindow:    getEnvDuration("LOGIN_LOCKOUT_WINDOW", 0),
		},
		Chat: ChatConfig{
			WebhookURL:            getEnv("CHAT_WEBHOOK_URL", workflowURL),
			Timeout:               time.Duration(getEnvInt("CHAT_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxMessagesPerSession: getEnvInt("MAX_MESSAGES_PER_SESSION", 100),
			MaxMessageLength:      getEnvInt("MAX_MESSAGE_LENGTH", 1000),
			ContextMessages:       getEnvInt("CHAT_CONTEXT_MESSAGES", 5),
		},
		Problems: ProblemsConfig{
			WebhookURL: getEnv("PROBLEMS_WEBHOOK_URL", ""),
			AppName:    getEnv("PROBLEMS_APP_NAME", "Community Tracker"),
			Timeout:    time.Duration(getEnvInt("PROBLEMS_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Workflow: WorkflowConfig{
			URL:           workflowURL,
			Enabled:       getEnvBool("N8N_ENABLED", true),
			BatchSize:     getEnvInt("N8N_BATCH_SIZE", 10),
			RetryAttempts: getEnvInt("N8N_RETRY_ATTEMPTS", 3),
			Timeout:       time.Duration(getEnvInt("N8N_TIMEOUT_MS", 8000)) * time.Millisecond,
			MaxRequeues:   getEnvInt("N8N_MAX_REQUEUES", 0),
		},
		DeadLetter: DeadLetterConfig{
			NATSURL: getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_DEADLETTER_SUBJECT", "kentj.events.deadletter"),
		},
		Store: StoreConfig{
			Driver:       strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMemory)),
			SQLitePath:   getEnv("SQLITE_PATH", "./data/conversations.db"),
			DatabaseURL:  getEnv("DATABASE_URL", ""),
			RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
			HistoryLimit: getEnvInt("HISTORY_LIMIT", 50),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set and sane.
func (c *Config) Validate() error {
	switch {
	case c.HTTPPort == "":
		return fmt.Errorf("%w: HTTP_PORT cannot be empty", ErrInvalidConfig)
	case c.Workflow.BatchSize < 1:
		return fmt.Errorf("%w: N8N_BATCH_SIZE must be >= 1", ErrInvalidConfig)
	case c.Workflow.RetryAttempts < 1:
		return fmt.Errorf("%w: N8N_RETRY_ATTEMPTS must be >= 1", ErrInvalidConfig)
	case c.Workflow.Timeout <= 0:
		return fmt.Errorf("%w: N8N_TIMEOUT_MS must be > 0", ErrInvalidConfig)
	case c.Workflow.MaxRequeues < 0:
		return fmt.Errorf("%w: N8N_MAX_REQUEUES cannot be negative", ErrInvalidConfig)
	case c.Auth.SessionTimeout <= 0:
		return fmt.Errorf("%w: SESSION_TIMEOUT_HOURS must be > 0", ErrInvalidConfig)
	case c.Auth.MaxLoginAttempts < 1:
		return fmt.Errorf("%w: MAX_LOGIN_ATTEMPTS must be >= 1", ErrInvalidConfig)
	case c.Chat.MaxMessagesPerSession < 1:
		return fmt.Errorf("%w: MAX_MESSAGES_PER_SESSION must be >= 1", ErrInvalidConfig)
	case c.Store.HistoryLimit < 1:
		return fmt.Errorf("%w: HISTORY_LIMIT must be >= 1", ErrInvalidConfig)
	}

	switch c.Auth.TokenMode {
	case TokenModeDemo:
	case TokenModeJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("%w: JWT_SECRET is required when AUTH_TOKEN_MODE=jwt", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown AUTH_TOKEN_MODE %q", ErrInvalidConfig, c.Auth.TokenMode)
	}

	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverRedis:
	case StoreDriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH cannot be empty", ErrInvalidConfig)
		}
	case StoreDriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required when STORE_DRIVER=postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, c.Store.Driver)
	}
	return nil
}

// IsProduction reports whether the service runs with production logging.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, value, fallback, err)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %s. Error: %v", key, value, fallback, err)
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
