package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Storage   string
	Events    EventsConfig
	Reconcile ReconcileConfig
	LogLevel  string
}

type HTTPConfig struct {
	Addr           string
	SecureCookies  bool
	// AllowedOrigins lists the browser origins allowed to open live update
	// sockets in addition to the server's own host.
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type EventsConfig struct {
	BufferSize   int
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string
}

type ReconcileConfig struct {
	Interval time.Duration
}

// Load reads the environment, after merging an optional .env file that never
// overrides variables already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTP: HTTPConfig{
			Addr:           getenv("HTTP_ADDR", ":5000"),
			SecureCookies:  boolFromEnv("HTTP_SECURE_COOKIES", false),
			AllowedOrigins: listFromEnv("HTTP_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     intFromEnv("DB_PORT", 5432),
			User:     getenv("DB_USER", "postgres"),
			Password: getenv("DB_PASSWORD", "postgres"),
			DBName:   getenv("DB_NAME", "trips"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
		},
		Storage: getenv("STORAGE", StoragePostgres),
		Events: EventsConfig{
			BufferSize:   clamp(intFromEnv("EVENTS_BUFFER_SIZE", 100), 10, 10000),
			KafkaBrokers: listFromEnv("EVENTS_KAFKA_BROKERS"),
			KafkaTopic:   getenv("EVENTS_KAFKA_TOPIC", "trip_ledger_events"),
			AMQPURL:      getenv("EVENTS_AMQP_URL", ""),
			AMQPExchange: getenv("EVENTS_AMQP_EXCHANGE", "trip_ledger"),
		},
		Reconcile: ReconcileConfig{
			Interval: time.Duration(clamp(intFromEnv("RECONCILE_INTERVAL_SECONDS", 300), 10, 86400)) * time.Second,
		},
		LogLevel: getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return def
}

func intFromEnv(key string, def int) int {
	val := getenv(key, "")
	if val == "" {
		return def
	}

	if parsed, err := strconv.Atoi(val); err == nil {
		return parsed
	}

	return def
}

func boolFromEnv(key string, def bool) bool {
	val := getenv(key, "")
	if val == "" {
		return def
	}

	if parsed, err := strconv.ParseBool(val); err == nil {
		return parsed
	}

	return def
}

func listFromEnv(key string) []string {
	val := getenv(key, "")
	if val == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
