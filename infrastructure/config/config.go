package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	UserIndexName string // GSI for email lookups
	EventBusName  string

	// Storage backend: "memory" for local development, "dynamodb" otherwise
	StorageBackend string

	// Authentication
	JWTSecret    string
	JWTIssuer    string
	SessionTTL   time.Duration
	CookieName   string
	CookieSecure bool

	// Rate limiting (requests per minute)
	IPRateLimit   int
	UserRateLimit int

	// Dynamic overrides file (optional, hot-reloaded when set)
	OverridesPath string

	// Logging and features
	LogLevel      string
	EnableMetrics bool
	EnableCORS    bool
	CORSOrigins   []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", "dome"),
		UserIndexName: getEnv("USER_INDEX_NAME", "EmailIndex"),
		EventBusName:  getEnv("EVENT_BUS_NAME", ""),

		StorageBackend: getEnv("STORAGE_BACKEND", "memory"),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", "dome-backend"),
		SessionTTL:   time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60*24*8)) * time.Minute,
		CookieName:   getEnv("COOKIE_NAME", "DomeToken"),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),

		IPRateLimit:   getEnvInt("IP_RATE_LIMIT", 100),
		UserRateLimit: getEnvInt("USER_RATE_LIMIT", 200),

		OverridesPath: getEnv("CONFIG_OVERRIDES_PATH", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		CORSOrigins:   []string{getEnv("CORS_ORIGIN", "http://localhost:3000")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.StorageBackend == "dynamodb" && c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required for the dynamodb backend")
		}
	}
	if c.StorageBackend != "memory" && c.StorageBackend != "dynamodb" {
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
