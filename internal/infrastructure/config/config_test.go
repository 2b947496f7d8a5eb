package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"RET_APP_NAME",
	"RET_APP_ENV",
	"RET_APP_PORT",
	"RET_DATABASE_HOST",
	"RET_DATABASE_PORT",
	"RET_DATABASE_PASSWORD",
	"RET_DATABASE_SSLMODE",
	"RET_DATABASE_MAX_OPEN_CONNS",
	"RET_DATABASE_MAX_IDLE_CONNS",
	"RET_HTTP_CORS_ALLOW_ORIGINS",
	"RET_KAFKA_TOPIC",
	"RET_RETURNS_FRESHNESS_LOSS_PER_30MIN",
	"RET_RETURNS_MAX_NUMBER_ATTEMPTS",
	"RET_RETURNS_IDEMPOTENCY_TTL",
	"RET_TELEMETRY_SAMPLING_RATIO",
	"RET_TELEMETRY_DB_LOG_FULL_SQL",
}

// clearEnv unsets every managed variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedEnv {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "returns-service", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "returns", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "returns.events", cfg.Kafka.Topic)
		assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 0.5, cfg.Returns.FreshnessLossPer30Min)
		assert.Equal(t, 5, cfg.Returns.MaxNumberAttempts)
		assert.Equal(t, 24*time.Hour, cfg.Returns.IdempotencyTTL)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	})

	t.Run("loads values from environment variables with RET prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RET_APP_NAME", "returns-test")
		t.Setenv("RET_APP_PORT", "9000")
		t.Setenv("RET_DATABASE_HOST", "testdb.local")
		t.Setenv("RET_DATABASE_PORT", "5433")
		t.Setenv("RET_KAFKA_TOPIC", "returns.events.test")
		t.Setenv("RET_RETURNS_FRESHNESS_LOSS_PER_30MIN", "0.25")
		t.Setenv("RET_RETURNS_MAX_NUMBER_ATTEMPTS", "3")
		t.Setenv("RET_RETURNS_IDEMPOTENCY_TTL", "2h")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "returns-test", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "returns.events.test", cfg.Kafka.Topic)
		assert.Equal(t, 0.25, cfg.Returns.FreshnessLossPer30Min)
		assert.Equal(t, 3, cfg.Returns.MaxNumberAttempts)
		assert.Equal(t, 2*time.Hour, cfg.Returns.IdempotencyTTL)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RET_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("RET_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("keeps an explicit zero freshness loss", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RET_RETURNS_FRESHNESS_LOSS_PER_30MIN", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 0.0, cfg.Returns.FreshnessLossPer30Min)
	})

	t.Run("rejects negative freshness loss", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RET_RETURNS_FRESHNESS_LOSS_PER_30MIN", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "freshness_loss_per_30min")
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RET_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RET_APP_ENV", "production")
		t.Setenv("RET_DATABASE_PASSWORD", "secure-password")
		t.Setenv("RET_DATABASE_SSLMODE", "require")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("RET_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("RET_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")
	})

	t.Run("rejects wildcard CORS in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("RET_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("RET_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
