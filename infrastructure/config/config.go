package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// CORS / websocket origin restriction. Empty allows any origin.
	ClientURL string

	// Persistence configuration. Driver is "memory" or "dynamodb".
	PersistenceDriver string
	AWSRegion         string
	DynamoDBTable     string

	// AI configuration
	OpenAIAPIKey     string
	OpenAIModel      string
	AITimeoutSeconds int

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		ClientURL:     getEnv("CLIENT_URL", ""),

		PersistenceDriver: getEnv("PERSISTENCE_DRIVER", "memory"),
		AWSRegion:         getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:     getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "noteflow")),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", ""),
		AITimeoutSeconds: getEnvInt("AI_TIMEOUT_SECONDS", 30),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.PersistenceDriver {
	case "memory", "dynamodb":
	default:
		return fmt.Errorf("unknown PERSISTENCE_DRIVER %q (want memory or dynamodb)", c.PersistenceDriver)
	}

	if c.PersistenceDriver == "dynamodb" && c.DynamoDBTable == "" {
		return fmt.Errorf("TABLE_NAME is required with the dynamodb driver")
	}

	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.AITimeoutSeconds <= 0 {
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be positive")
	}

	if c.IsProduction() && c.ClientURL == "" {
		return fmt.Errorf("CLIENT_URL is required in production")
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

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
