package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabaseURL    string
	DatabasePath   string
	MigrationsPath string

	// PlatformToken authenticates the voice platform's webhook calls.
	PlatformToken string

	// TokenSecret signs the per-session display tokens.
	TokenSecret string
	TokenTTL    time.Duration

	// DisplayPageURL is where the companion display app is served from.
	DisplayPageURL string

	// Completion notification via SES. Disabled when NotifyFromEmail is empty.
	AWSRegion       string
	NotifyFromEmail string
	NotifyFromName  string
	NotifyToEmail   string
}

// Load reads configuration from environment variables (and a .env file when
// present) with sensible defaults
func Load() *Config {
	// A missing .env file is fine, the environment wins either way
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:     getEnv("DB_URL", ""),
		DatabasePath:    getEnv("DB_PATH", "./escaperoom.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		PlatformToken:   getEnv("PLATFORM_TOKEN", ""),
		TokenSecret:     getEnv("TOKEN_SECRET", "dev-only-secret"),
		TokenTTL:        getDuration("TOKEN_TTL", 2*time.Hour),
		DisplayPageURL:  getEnv("DISPLAY_PAGE_URL", ""),
		AWSRegion:       getEnv("AWS_REGION", "eu-west-1"),
		NotifyFromEmail: getEnv("NOTIFY_FROM_EMAIL", ""),
		NotifyFromName:  getEnv("NOTIFY_FROM_NAME", "Escape Room Creator"),
		NotifyToEmail:   getEnv("NOTIFY_TO_EMAIL", ""),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration reads a duration environment variable or returns a default value
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
