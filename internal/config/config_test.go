package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReportsEveryMissingVariable(t *testing.T) {
	t.Setenv("RESERVATION_API_URL", "")
	t.Setenv("SHEET_API_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESERVATION_API_URL")
	assert.Contains(t, err.Error(), "SHEET_API_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RESERVATION_API_URL", "http://api.local")
	t.Setenv("SHEET_API_URL", "http://sheet.local/exec")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("POLL_INTERVAL", "-5s")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@broker:5672/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://api.local", cfg.ReservationAPIURL)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "amqp://u:p@broker:5672/", cfg.RabbitURL)
}

func TestRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestParseBool(t *testing.T) {
	assert.True(t, parseBool("on", false))
	assert.False(t, parseBool("NO", true))
	assert.True(t, parseBool("maybe", true))
}
