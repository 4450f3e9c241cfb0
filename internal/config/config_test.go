package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "MQ_URL", "JWT_SECRET", "JWT_TTL",
		"SERVER_PORT", "STORAGE", "LOG_LEVEL", "ANALYTICS_CACHE_TTL", "RATE_LIMIT_RPS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFrom_AppliesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
db:
  host: localhost
  name: habitflow
jwt:
  secret: s3cret
`)

	cfg, err := LoadFrom("local", dir)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Analytics.CacheTTL)
	assert.Equal(t, int64(3), cfg.MQ.MaxRetries)
	assert.Equal(t, "analytics.refresh", cfg.Worker.Queue)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.False(t, cfg.Outbox.Enabled)
	assert.Equal(t, time.Second, cfg.Outbox.Interval)
	assert.Equal(t, 5, cfg.Outbox.MaxRetries)
}

func TestLoadFrom_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
log_level: info
db:
  host: localhost
  name: habitflow
jwt:
  secret: ${JWT_SECRET}
analytics:
  cache_ttl: 5m
`)
	writeConfig(t, dir, "secrets.env", "JWT_SECRET=from-secrets-file\n")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ANALYTICS_CACHE_TTL", "90s")
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := LoadFrom("local", dir)
	require.NoError(t, err)

	assert.Equal(t, "from-secrets-file", cfg.JWT.Secret)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 90*time.Second, cfg.Analytics.CacheTTL)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestLoadFrom_Validation(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		env  string
		yaml string
	}{
		{"missing secret", "local", "db:\n  host: h\n  name: n\n"},
		{"short production secret", "production", "db:\n  host: h\n  name: n\njwt:\n  secret: short\n"},
		{"missing db", "local", "jwt:\n  secret: s\n"},
		{"unknown storage", "local", "storage: sqlite\njwt:\n  secret: s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "base.yaml", tt.yaml)
			_, err := LoadFrom(tt.env, dir)
			assert.Error(t, err)
		})
	}
}

func TestLoadFrom_MemoryStorageSkipsDB(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE", "memory")
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", "jwt:\n  secret: s\n")

	cfg, err := LoadFrom("local", dir)
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
}

func TestLoadFrom_RepositoryConfigFiles(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom("local", filepath.Join("..", "..", "config"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "local-development-secret", cfg.JWT.Secret)
	assert.Equal(t, 200*time.Millisecond, cfg.DB.SlowQueryThreshold)
	assert.Equal(t, StoragePostgres, cfg.Storage)
}
