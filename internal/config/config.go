package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Firebase identity verification
	FirebaseAPIKey    string
	FirebaseProjectID string
	FirebaseLookupURL string

	// AI moderation
	AnthropicAPIKey string
	AnthropicAPIURL string
	AnthropicModel  string
	AIMaxTokens     int
	AITimeout       time.Duration

	// Report pipeline
	PlateRegion     string
	DuplicateWindow time.Duration
	DuplicateLimit  int

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "roadwatch"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		FirebaseAPIKey:    getEnv("FIREBASE_API_KEY", ""),
		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", "roadwatch-kerala"),
		FirebaseLookupURL: getEnv("FIREBASE_LOOKUP_URL", "https://identitytoolkit.googleapis.com/v1/accounts:lookup"),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicAPIURL: getEnv("ANTHROPIC_API_URL", "https://api.anthropic.com/v1/messages"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		AIMaxTokens:     parseInt(getEnv("AI_MAX_TOKENS", "1000"), 1000),
		AITimeout:       parseDuration(getEnv("AI_TIMEOUT", "30s"), 30*time.Second),

		PlateRegion:     getEnv("PLATE_REGION", "KL"),
		DuplicateWindow: parseDuration(getEnv("DUPLICATE_WINDOW", "24h"), 24*time.Hour),
		DuplicateLimit:  parseInt(getEnv("DUPLICATE_LIMIT", "3"), 3),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
