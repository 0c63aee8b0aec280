package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"cineseat/internal/database"
	"cineseat/internal/external"
	"cineseat/internal/messaging"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Seat hold window. Fixed per session at acquisition time, never
	// extended by client activity.
	HoldDuration time.Duration
	// How often the sweeper reclaims expired holds.
	SweepInterval time.Duration
	// Lock store backend: "postgres" or "memory".
	LockBackend string

	Database      database.Config
	NATS          messaging.Config
	Payment       external.PaymentConfig
	Elasticsearch ElasticsearchConfig
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	// .env is optional, env vars win
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		HoldDuration:  time.Duration(getEnvInt("HOLD_DURATION_SEC", 420)) * time.Second,
		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_SEC", 5)) * time.Second,
		LockBackend:   getEnv("LOCK_BACKEND", "postgres"),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "cineseat"),
			Password:           getEnv("DB_PASSWORD", "cineseat123"),
			DBName:             getEnv("DB_NAME", "cineseat"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			Enabled:   getEnv("NATS_ENABLED", "false") == "true",
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "cineseat"),
			ClientID:  getEnv("NATS_CLIENT_ID", "cineseat-api"),
		},

		Payment: external.PaymentConfig{
			BaseURL:  getEnv("PAYMENT_GATEWAY_URL", "http://localhost:9090"),
			TeamSlug: getEnv("PAYMENT_TEAM_SLUG", ""),
			Password: getEnv("PAYMENT_PASSWORD", ""),
			Timeout:  time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Elasticsearch: ElasticsearchConfig{
			Enabled:    getEnv("ELASTICSEARCH_ENABLED", "false") == "true",
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:      getEnv("ELASTICSEARCH_INDEX", "movies"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
