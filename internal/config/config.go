package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DatabasePath string // SQLite file path, e.g. ./data/llmgate.db
	BackendsFile string // optional YAML seed file for backend defaults

	// Operator authentication (single credential, issued as JWT)
	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string // argon2id encoded hash

	// Router tuning
	ConfigCacheTTL  time.Duration // ExecutionConfig read cache
	GenerateTimeout time.Duration // per-backend generation budget
	HealthTimeout   time.Duration // health probe budget
	ProbeInterval   time.Duration // background monitor cadence

	// Rate limiting for the prompt endpoint
	PromptRatePerMinute int
	PromptBurst         int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3001"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/llmgate.db"),
		BackendsFile: getEnv("BACKENDS_FILE", "backends.yaml"),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		ConfigCacheTTL:  getDurationEnv("CONFIG_CACHE_TTL", 30*time.Second),
		GenerateTimeout: getDurationEnv("GENERATE_TIMEOUT", 30*time.Second),
		HealthTimeout:   getDurationEnv("HEALTH_TIMEOUT", 5*time.Second),
		ProbeInterval:   getDurationEnv("PROBE_INTERVAL", 30*time.Second),

		PromptRatePerMinute: getIntEnv("PROMPT_RATE_PER_MINUTE", 60),
		PromptBurst:         getIntEnv("PROMPT_BURST", 10),
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
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
