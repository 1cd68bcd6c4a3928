// Package config provides environment configuration for the agent console.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Console API settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ConsoleJWTSecret   string

	// Backend settings
	APIBaseURL  string
	APIToken    string
	BusinessID  string
	HTTPTimeout time.Duration

	// Agent identity, used when the session token carries none
	AgentID   string
	AgentName string

	// Synchronization
	PageSize      int
	PollInterval  time.Duration
	DefaultFilter string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Media cache
	RedisURL       string
	MediaCacheSize int
	MediaCacheTTL  time.Duration

	// Reply drafting
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DraftModel      string
	DraftProvider   string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Notifications
	NotificationFeedSize int

	// Logging
	LogLevel    string
	Environment string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Console API
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 0),
		ConsoleJWTSecret:   getEnv("CONSOLE_JWT_SECRET", ""),

		// Backend
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8000/api"),
		APIToken:    getEnv("API_TOKEN", ""),
		BusinessID:  getEnv("BUSINESS_ID", ""),
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 30*time.Second),

		// Agent identity
		AgentID:   getEnv("AGENT_ID", ""),
		AgentName: getEnv("AGENT_NAME", ""),

		// Synchronization
		PageSize:      getIntEnv("PAGE_SIZE", 30),
		PollInterval:  getDurationEnv("POLL_INTERVAL", 3*time.Second),
		DefaultFilter: getEnv("DEFAULT_FILTER", "all"),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Media cache
		RedisURL:       getEnv("REDIS_URL", ""),
		MediaCacheSize: getIntEnv("MEDIA_CACHE_SIZE", 256),
		MediaCacheTTL:  getDurationEnv("MEDIA_CACHE_TTL", time.Hour),

		// Reply drafting
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DraftModel:      getEnv("DRAFT_MODEL", ""),
		DraftProvider:   getEnv("DRAFT_PROVIDER", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 600),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Notifications
		NotificationFeedSize: getIntEnv("NOTIFICATION_FEED_SIZE", 50),

		// Logging
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENV", "production"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
