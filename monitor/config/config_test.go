package config

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", logrus.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "UTC", cfg.TimeZone)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.Std())
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "authority_performance", cfg.Storage.PostgreSQL.Database)
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  addr: ":9090"
time_zone: "America/New_York"
authorities:
  - LOC_SUBJECTS
  - GEONAMES
cache:
  ttl: 1h
storage:
  driver: memory
`
	tmpFile, err := os.CreateTemp("", "monitor-config-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name(), logrus.New())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"LOC_SUBJECTS", "GEONAMES"}, cfg.Authorities)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Std())
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	// Defaults still applied for fields the file omits.
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, "America/New_York", cfg.Location().String())
}

func TestValidateRejectsBadTimeZone(t *testing.T) {
	cfg := Default()
	cfg.TimeZone = "Not/AZone"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "sqlite"
	assert.Error(t, cfg.Validate())
}

func TestStorageConfigValidation(t *testing.T) {
	cfg := DefaultStorageConfig()
	require.NoError(t, cfg.Validate())

	cfg.PostgreSQL.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = DefaultStorageConfig()
	cfg.PostgreSQL.Database = ""
	assert.Error(t, cfg.Validate())
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("MONITOR_DB_HOST", "db.internal")
	t.Setenv("MONITOR_DB_PASS", "")

	t.Run("Basic", func(t *testing.T) {
		out, err := SubstituteEnvVars("host: ${MONITOR_DB_HOST}")
		require.NoError(t, err)
		assert.Equal(t, "host: db.internal", out)
	})

	t.Run("Default", func(t *testing.T) {
		out, err := SubstituteEnvVars("password: ${MONITOR_DB_PASS:-secret}")
		require.NoError(t, err)
		assert.Equal(t, "password: secret", out)

		out, err = SubstituteEnvVars("host: ${MONITOR_DB_HOST:-localhost}")
		require.NoError(t, err)
		assert.Equal(t, "host: db.internal", out)
	})

	t.Run("Required", func(t *testing.T) {
		_, err := SubstituteEnvVars("password: ${MONITOR_DB_PASS:?db password must be set}")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db password must be set")

		_, err = SubstituteEnvVars("password: ${MONITOR_DB_PASS:?}")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MONITOR_DB_PASS")
	})

	t.Run("Escaped", func(t *testing.T) {
		out, err := SubstituteEnvVars("literal: $${MONITOR_DB_HOST}")
		require.NoError(t, err)
		assert.Equal(t, "literal: ${MONITOR_DB_HOST}", out)
	})

	t.Run("UnsetIsEmpty", func(t *testing.T) {
		out, err := SubstituteEnvVars("x: ${MONITOR_DOES_NOT_EXIST}")
		require.NoError(t, err)
		assert.Equal(t, "x: ", out)
	})
}
