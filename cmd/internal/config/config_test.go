package config

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var knownKeys = []string{
	"HTTP_ADDR", "DATABASE_PATH", "TIMEZONE", "LOG_LEVEL", "AUTH_MODE", "JWT_SECRET",
	"AWS_REGION", "COGNITO_CLIENT_ID", "COGNITO_CLIENT_SECRET", "COGNITO_USER_POOL_ID",
	"EMAIL_SENDER", "PUSH_WEBHOOK_URL", "REMINDER_SCHEDULE", "RATE_LIMIT_RPS", "USER_CACHE_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range knownKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_HMACDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "hmac")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load(validator.New())
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.HTTPAddr)
	assert.Equal(t, "./database.db", cfg.DatabasePath)
	assert.Equal(t, "* * * * *", cfg.ReminderSchedule)
	assert.Equal(t, float64(20), cfg.RateLimitRPS)
	assert.Equal(t, 5*time.Minute, cfg.UserCacheTTL)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, log.INFO, cfg.GommonLevel())
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"cognito without pool", map[string]string{"AUTH_MODE": "cognito", "AWS_REGION": "eu-west-1", "COGNITO_CLIENT_ID": "c"}},
		{"hmac without secret", map[string]string{"AUTH_MODE": "hmac"}},
		{"hmac short secret", map[string]string{"AUTH_MODE": "hmac", "JWT_SECRET": "short"}},
		{"unknown auth mode", map[string]string{"AUTH_MODE": "magic"}},
		{"bad timezone", map[string]string{"AUTH_MODE": "hmac", "JWT_SECRET": "0123456789abcdef", "TIMEZONE": "Mars/Olympus"}},
		{"bad ttl", map[string]string{"AUTH_MODE": "hmac", "JWT_SECRET": "0123456789abcdef", "USER_CACHE_TTL": "soon"}},
		{"bad sender", map[string]string{"AUTH_MODE": "hmac", "JWT_SECRET": "0123456789abcdef", "EMAIL_SENDER": "nope"}},
		{"bad log level", map[string]string{"AUTH_MODE": "hmac", "JWT_SECRET": "0123456789abcdef", "LOG_LEVEL": "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(validator.New())
			assert.Error(t, err)
		})
	}
}

func TestLoad_Cognito(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_MODE", "cognito")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("COGNITO_CLIENT_ID", "client")
	t.Setenv("COGNITO_USER_POOL_ID", "eu-west-1_abc")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load(validator.New())
	require.NoError(t, err)
	assert.Equal(t, log.DEBUG, cfg.GommonLevel())
}
