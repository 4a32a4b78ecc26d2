// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Storage                 string
	DatabaseURL             string
	HTTPAddr                string
	LogLevel                string
	LogFormat               string
	DecideMaxRetries        int
	RequireRejectionComment bool
	TelegramBotToken        string
	OTelExporter            string
	OTelEndpoint            string
	ShutdownTimeout         time.Duration
}

// Load reads configuration from environment variables, after loading a .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Storage:                 envOr("STORAGE", StoragePostgres),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		HTTPAddr:                envOr("HTTP_ADDR", ":8080"),
		LogLevel:                os.Getenv("LOG_LEVEL"),
		LogFormat:               envOr("LOG_FORMAT", "console"),
		DecideMaxRetries:        3,
		RequireRejectionComment: true,
		TelegramBotToken:        os.Getenv("TELEGRAM_BOT_TOKEN"),
		OTelExporter:            envOr("OTEL_EXPORTER", "none"),
		OTelEndpoint:            os.Getenv("OTEL_EXPORTER_ENDPOINT"),
		ShutdownTimeout:         10 * time.Second,
	}

	var errs []string

	if s := os.Getenv("DECIDE_MAX_RETRIES"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("DECIDE_MAX_RETRIES must be a non-negative integer, got %q", s))
		} else {
			cfg.DecideMaxRetries = n
		}
	}

	if s := os.Getenv("REQUIRE_REJECTION_COMMENT"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("REQUIRE_REJECTION_COMMENT must be a boolean, got %q", s))
		} else {
			cfg.RequireRejectionComment = b
		}
	}

	if s := os.Getenv("SHUTDOWN_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("SHUTDOWN_TIMEOUT must be a positive duration, got %q", s))
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// validate checks that required configuration is present and enums are known.
func (c *Config) validate() []string {
	var errs []string

	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required")
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORAGE must be postgres or memory, got %q", c.Storage))
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be console or json, got %q", c.LogFormat))
	}

	switch c.OTelExporter {
	case "none", "stdout", "otlp-grpc", "otlp-http":
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER must be none, stdout, otlp-grpc or otlp-http, got %q", c.OTelExporter))
	}

	if c.HTTPAddr == "" {
		errs = append(errs, "HTTP_ADDR must not be empty")
	}

	return errs
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
