package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Environment name ("production" enables JSON logging)
	Env string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Field encryption secret. Padded or truncated to the AES-256 key
	// length at codec initialization.
	EncryptionKey string

	// AMQP (optional). When AMQPURL is empty the in-process dispatcher
	// is used for budget-alert checks instead of the queue.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Cron schedule for the recurring sweep (cmd/sweeper).
	SweepSchedule string

	// Cron schedule for the wallet balance reconciliation job.
	ReconcileSchedule string

	// Path to the Firebase service account file for push delivery.
	// Push is disabled when empty.
	FCMCredentialsPath string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env: getEnv("ENV", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "monetra"),
		DBPassword: getEnv("DB_PASSWORD", "monetra"),
		DBName:     getEnv("DB_NAME", "monetra"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		EncryptionKey: getEnv("ENCRYPTION_KEY", "fallback-secret-key-for-dev-only"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "monetra"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budget-checks"),

		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "0 6 * * *"),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "0 3 * * 0"),

		FCMCredentialsPath: getEnv("FCM_CREDENTIALS_PATH", ""),
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
