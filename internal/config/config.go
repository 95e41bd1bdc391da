package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port                string
	AllowedOrigins      []string
	LogLevel            string
	DatabaseURL         string
	DatabaseMaxConns    int32
	RedisURL            string
	JWTSecret           string
	Environment         string
	Timezone            string
	Location            *time.Location // resolved from Timezone
	LifecycleEnabled    bool
	LifecycleInterval   time.Duration
	LeaderboardCacheTTL time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		AllowedOrigins:   parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		Environment:      getEnv("ENVIRONMENT", "production"),
		Timezone:         getEnv("TIMEZONE", "UTC"),
		LifecycleEnabled: getBoolEnv("LIFECYCLE_ENABLED", true),
	}

	var err error
	if cfg.DatabaseMaxConns, err = getInt32Env("DB_MAX_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.LifecycleInterval, err = getDurationEnv("LIFECYCLE_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LeaderboardCacheTTL, err = getDurationEnv("LEADERBOARD_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or out-of-range setting at once
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.LifecycleInterval <= 0 {
		errs = append(errs, errors.New("LIFECYCLE_INTERVAL must be positive"))
	}
	if c.LeaderboardCacheTTL <= 0 {
		errs = append(errs, errors.New("LEADERBOARD_CACHE_TTL must be positive"))
	}
	if c.DatabaseMaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs outside production
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == "local"
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getInt32Env(key string, fallback int32) (int32, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return int32(n), nil
}
