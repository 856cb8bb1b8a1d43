package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

const (
	AuthModeCognito = "cognito"
	AuthModeHMAC    = "hmac"

	minSecretLength = 16
)

type Config struct {
	HTTPAddr     string `validate:"required"`
	DatabasePath string `validate:"required"`
	Timezone     string `validate:"required"`
	LogLevel     string `validate:"oneof=debug info warn error off"`

	AuthMode  string `validate:"oneof=cognito hmac"`
	JWTSecret string `validate:"required_if=AuthMode hmac"`

	AWSRegion           string `validate:"required_if=AuthMode cognito"`
	CognitoClientID     string `validate:"required_if=AuthMode cognito"`
	CognitoClientSecret string
	CognitoUserPoolID   string `validate:"required_if=AuthMode cognito"`

	EmailSender      string `validate:"omitempty,email"`
	PushWebhookURL   string `validate:"omitempty,url"`
	ReminderSchedule string `validate:"required"`

	RateLimitRPS float64       `validate:"gte=0"`
	UserCacheTTL time.Duration `validate:"gte=0"`

	Location *time.Location `validate:"-"`
}

// Load reads the configuration from the environment. Call godotenv.Load first
// to pick up a .env file.
func Load(validate *validator.Validate) (*Config, error) {
	cfg := &Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":6060"),
		DatabasePath:        getEnv("DATABASE_PATH", "./database.db"),
		Timezone:            getEnv("TIMEZONE", "Local"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AuthMode:            strings.ToLower(getEnv("AUTH_MODE", AuthModeCognito)),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		AWSRegion:           os.Getenv("AWS_REGION"),
		CognitoClientID:     os.Getenv("COGNITO_CLIENT_ID"),
		CognitoClientSecret: os.Getenv("COGNITO_CLIENT_SECRET"),
		CognitoUserPoolID:   os.Getenv("COGNITO_USER_POOL_ID"),
		EmailSender:         os.Getenv("EMAIL_SENDER"),
		PushWebhookURL:      os.Getenv("PUSH_WEBHOOK_URL"),
		ReminderSchedule:    getEnv("REMINDER_SCHEDULE", "* * * * *"),
	}

	var err error
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.UserCacheTTL, err = time.ParseDuration(getEnv("USER_CACHE_TTL", "5m")); err != nil {
		return nil, fmt.Errorf("invalid USER_CACHE_TTL: %w", err)
	}
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	if err = validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.AuthMode == AuthModeHMAC && len(cfg.JWTSecret) < minSecretLength {
		return nil, fmt.Errorf("invalid configuration: JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	return cfg, nil
}

func (c *Config) GommonLevel() log.Lvl {
	switch c.LogLevel {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}
