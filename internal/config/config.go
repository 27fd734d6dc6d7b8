package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Persistence for the history key-value store. Empty keeps history in memory only;
	// a postgres:// URL selects Postgres, anything else is a SQLite file path.
	DatabaseURL string

	// Server configuration
	ServerPort string
	LogLevel   string

	// CORS configuration
	CORSOrigins []string

	// Kafka configuration for completed-analysis events. No brokers disables publishing.
	KafkaBootstrapServers []string
	KafkaTopicAnalysis    string
	KafkaConsumerGroup    string

	// Simulation configuration
	StageDelayScale float64 // multiplies every stage delay, 0 runs without waiting
	RandomSeed      int64   // 0 seeds from the clock
	MaxQueryLength  int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        getEnvWithDefault("DATABASE_URL", "truthlens.db"),
		ServerPort:         getEnvWithDefault("SERVER_PORT", "8000"),
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "INFO"),
		KafkaTopicAnalysis: getEnvWithDefault("KAFKA_TOPIC_ANALYSIS", "truthlens.analysis.completed"),
		KafkaConsumerGroup: getEnvWithDefault("KAFKA_CONSUMER_GROUP", "truthlens-report-archivers"),
		MaxQueryLength:     10000,
	}
	if value, ok := os.LookupEnv("DATABASE_URL"); ok && strings.TrimSpace(value) == "" {
		cfg.DatabaseURL = ""
	}

	cfg.CORSOrigins = splitList(getEnvWithDefault("CORS_ORIGINS", "http://localhost:5173"))
	cfg.KafkaBootstrapServers = splitList(os.Getenv("KAFKA_BOOTSTRAP_SERVERS"))

	scale, err := strconv.ParseFloat(getEnvWithDefault("STAGE_DELAY_SCALE", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("STAGE_DELAY_SCALE must be a number: %w", err)
	}
	if scale < 0 {
		return nil, fmt.Errorf("STAGE_DELAY_SCALE must not be negative, got %v", scale)
	}
	cfg.StageDelayScale = scale

	seed, err := strconv.ParseInt(getEnvWithDefault("RANDOM_SEED", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("RANDOM_SEED must be an integer: %w", err)
	}
	cfg.RandomSeed = seed

	return cfg, nil
}

// KafkaEnabled reports whether completed analyses should be published
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBootstrapServers) > 0
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma separated value, dropping blank entries
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
