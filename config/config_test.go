package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: host=localhost\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 15, cfg.Allocation.DueDays)
	assert.Equal(t, 24*time.Hour, cfg.Dues.Interval)
	assert.Equal(t, float64(100), cfg.Dues.PenaltyPerDay)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 64, cfg.WorkerPool.QueueSize)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_FileValuesKept(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  rate_limit_per_sec: 2
allocation:
  fee_amount: 12500
  due_days: 30
dues:
  interval_hours: 6
worker_pool:
  size: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, float64(2), cfg.Server.RateLimitPerSec)
	assert.Equal(t, 12500.0, cfg.Allocation.FeeAmount)
	assert.Equal(t, 30, cfg.Allocation.DueDays)
	assert.Equal(t, 6*time.Hour, cfg.Dues.Interval)
	assert.Equal(t, 3, cfg.WorkerPool.Size)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: from-file\n")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_DSN", "file:env.db")
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "file:env.db", cfg.Database.DSN)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
