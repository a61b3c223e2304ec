package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// HTTP server
	ServerPort int

	// Cache configuration
	Cache CacheConfig

	// Analytics engine configuration
	Engine EngineConfig
}

// CacheConfig holds trend cache parameters
type CacheConfig struct {
	Backend        string // "memory" or "redis"
	TTLMinutes     int
	SweepSchedule  string // cron spec for the periodic sweep
	SweepThreshold int    // in-memory entry count that triggers an opportunistic sweep
}

// EngineConfig holds aggregation engine parameters
type EngineConfig struct {
	RequestTimeoutSeconds int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(log *logrus.Logger) *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	return &Config{
		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "tiertrend"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "tiertrend"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", ""),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		ServerPort: getEnvInt("SERVER_PORT", 8080),

		Cache: CacheConfig{
			Backend:        getEnvOrDefault("CACHE_BACKEND", "memory"),
			TTLMinutes:     getEnvInt("CACHE_TTL_MINUTES", 10),
			SweepSchedule:  getEnvOrDefault("CACHE_SWEEP_SCHEDULE", "@every 5m"),
			SweepThreshold: getEnvInt("CACHE_SWEEP_THRESHOLD", 256),
		},

		Engine: EngineConfig{
			RequestTimeoutSeconds: getEnvInt("ENGINE_REQUEST_TIMEOUT", 30),
		},
	}
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
