package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "FRONTEND_ORIGIN", "DB_HOST", "DB_PORT", "DB_USER",
		"DB_NAME", "ML_SERVICE_URL", "SMTP_HOST", "NOTIFY_BROKER",
	} {
		// t.Setenv records the original value for cleanup; the key then
		// has to be absent, not empty, for defaults to apply.
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	cfg := LoadConfig()

	require.Equal(t, 8080, cfg.ServerPort)
	require.Equal(t, "http://localhost:3000", cfg.FrontendOrigin)
	require.Equal(t, "localhost", cfg.Database.Host)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "cortexa_db", cfg.Database.DBName)
	require.False(t, cfg.Database.UseSSL)
	require.Equal(t, "http://localhost:8000", cfg.ML.ServiceURL)
	require.Equal(t, 30, cfg.ML.TimeoutSeconds)
	require.Equal(t, "Cortexa AI", cfg.SMTP.FromName)
	require.Empty(t, cfg.Broker.Driver)
	require.Equal(t, "email-notifications", cfg.Broker.Channel)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("ML_SERVICE_TIMEOUT_SECONDS", "5")
	t.Setenv("NOTIFY_BROKER", "RabbitMQ")
	t.Setenv("RABBITMQ_PREFETCH_COUNT", "32")

	cfg := LoadConfig()

	require.Equal(t, 9090, cfg.ServerPort)
	require.True(t, cfg.Database.UseSSL)
	require.Equal(t, 5, cfg.ML.TimeoutSeconds)
	require.Equal(t, "rabbitmq", cfg.Broker.Driver, "driver is normalized to lower case")
	require.Equal(t, 32, cfg.Broker.RabbitMQ.PrefetchCount)
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("FLAG", "Yes")
	require.True(t, getEnvBool("FLAG", false))

	t.Setenv("FLAG", "off")
	require.False(t, getEnvBool("FLAG", true))

	t.Setenv("FLAG", "garbage")
	require.True(t, getEnvBool("FLAG", true))
}
