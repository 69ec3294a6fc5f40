package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("EVENTS_KAFKA_BROKERS", "")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "")
	t.Setenv("RECONCILE_INTERVAL_SECONDS", "")

	cfg := Load()

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Nil(t, cfg.Events.KafkaBrokers)
	assert.Nil(t, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 300*time.Second, cfg.Reconcile.Interval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("EVENTS_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("EVENTS_BUFFER_SIZE", "1")
	t.Setenv("HTTP_SECURE_COOKIES", "true")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://trips.example.com,http://localhost:5173")
	t.Setenv("RECONCILE_INTERVAL_SECONDS", "not-a-number")

	cfg := Load()

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 10, cfg.Events.BufferSize)
	assert.True(t, cfg.HTTP.SecureCookies)
	assert.Equal(t, []string{"https://trips.example.com", "http://localhost:5173"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 300*time.Second, cfg.Reconcile.Interval)
}

func TestReconcileIntervalClamped(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"0", 10 * time.Second},
		{"-5", 10 * time.Second},
		{"60", time.Minute},
		{"999999", 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("RECONCILE_INTERVAL_SECONDS", tt.value)
			assert.Equal(t, tt.want, Load().Reconcile.Interval)
		})
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "trips", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=trips sslmode=disable", c.DSN())
}
