package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds process configuration, read from the environment.
type Config struct {
	Port    string
	GinMode string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionInactivity time.Duration
	RetentionDays     int
	ExportSchedule    string
	ExportPath        string
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		GinMode:           os.Getenv("GIN_MODE"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "pulse"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		ExportSchedule:    getEnv("EXPORT_SCHEDULE", "0 1 * * *"),
		ExportPath:        getEnv("EXPORT_PATH", "reports.jsonl"),
		SessionInactivity: 30 * time.Minute,
		RetentionDays:     90,
	}

	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}

	if raw := os.Getenv("SESSION_INACTIVITY_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("invalid SESSION_INACTIVITY_MINUTES: %q", raw)
		}
		cfg.SessionInactivity = time.Duration(minutes) * time.Minute
	}

	if raw := os.Getenv("RETENTION_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return nil, fmt.Errorf("invalid RETENTION_DAYS: %q", raw)
		}
		cfg.RetentionDays = days
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
