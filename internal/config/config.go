package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL              string
	HTTPTimeoutSeconds      int
	RedisURL                string
	Environment             string
	AutosaveIntervalSeconds int
	TimeWarningSeconds      int
	ReviewCacheTTLSeconds   int
	Events                  EventConfig
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		return nil, err
	}

	return &Config{
		APIBaseURL:              getEnv("EXAM_API_BASE_URL", "http://localhost:8080"),
		HTTPTimeoutSeconds:      getEnvInt("HTTP_TIMEOUT_SECONDS", 30),
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379"),
		Environment:             getEnv("ENVIRONMENT", "development"),
		AutosaveIntervalSeconds: getEnvInt("AUTOSAVE_INTERVAL_SECONDS", 15),
		TimeWarningSeconds:      getEnvInt("TIME_WARNING_SECONDS", 300),
		ReviewCacheTTLSeconds:   getEnvInt("REVIEW_CACHE_TTL_SECONDS", 900),
		Events: EventConfig{
			Enabled:      getEnv("EVENTS_ENABLED", "true") == "true",
			Publisher:    getEnv("EVENTS_PUBLISHER", "gochannel"),
			KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
			SessionTopic: getEnv("SESSION_TOPIC", "exam_sessions"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
