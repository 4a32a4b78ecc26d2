package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, StoragePostgres, cfg.Storage)
		require.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		require.Equal(t, ":8080", cfg.HTTPAddr)
		require.Equal(t, "console", cfg.LogFormat)
		require.Equal(t, 3, cfg.DecideMaxRetries)
		require.True(t, cfg.RequireRejectionComment)
		require.Equal(t, "none", cfg.OTelExporter)
		require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
		require.Empty(t, cfg.TelegramBotToken)
	})

	t.Run("loads all config from env", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")
		t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
		t.Setenv("LOG_LEVEL", "warn")
		t.Setenv("LOG_FORMAT", "json")
		t.Setenv("DECIDE_MAX_RETRIES", "5")
		t.Setenv("REQUIRE_REJECTION_COMMENT", "false")
		t.Setenv("TELEGRAM_BOT_TOKEN", "test-token-123")
		t.Setenv("OTEL_EXPORTER", "otlp-grpc")
		t.Setenv("OTEL_EXPORTER_ENDPOINT", "collector:4317")
		t.Setenv("SHUTDOWN_TIMEOUT", "3s")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
		require.Equal(t, "warn", cfg.LogLevel)
		require.Equal(t, "json", cfg.LogFormat)
		require.Equal(t, 5, cfg.DecideMaxRetries)
		require.False(t, cfg.RequireRejectionComment)
		require.Equal(t, "test-token-123", cfg.TelegramBotToken)
		require.Equal(t, "otlp-grpc", cfg.OTelExporter)
		require.Equal(t, "collector:4317", cfg.OTelEndpoint)
		require.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("memory storage needs no database", func(t *testing.T) {
		t.Setenv("STORAGE", "memory")
		t.Setenv("DATABASE_URL", "")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, StorageMemory, cfg.Storage)
	})

	t.Run("requires DATABASE_URL for postgres", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		require.ErrorContains(t, err, "DATABASE_URL is required")
	})

	t.Run("collects every problem", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DECIDE_MAX_RETRIES", "-1")
		t.Setenv("REQUIRE_REJECTION_COMMENT", "maybe")
		t.Setenv("SHUTDOWN_TIMEOUT", "soon")
		t.Setenv("LOG_FORMAT", "xml")
		t.Setenv("OTEL_EXPORTER", "zipkin")

		_, err := Load()
		require.Error(t, err)
		msg := err.Error()
		require.Contains(t, msg, "configuration validation failed")
		require.Contains(t, msg, "DATABASE_URL is required")
		require.Contains(t, msg, "DECIDE_MAX_RETRIES")
		require.Contains(t, msg, "REQUIRE_REJECTION_COMMENT")
		require.Contains(t, msg, "SHUTDOWN_TIMEOUT")
		require.Contains(t, msg, "LOG_FORMAT")
		require.Contains(t, msg, "OTEL_EXPORTER")
	})

	t.Run("rejects unknown storage", func(t *testing.T) {
		t.Setenv("STORAGE", "mysql")

		_, err := Load()
		require.ErrorContains(t, err, `STORAGE must be postgres or memory, got "mysql"`)
	})

	t.Run("retries may be disabled", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")
		t.Setenv("DECIDE_MAX_RETRIES", "0")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, 0, cfg.DecideMaxRetries)
	})

	t.Run("trims whitespace around values", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")
		t.Setenv("HTTP_ADDR", "  :9090  ")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, ":9090", cfg.HTTPAddr)
	})
}
