package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadConfig_MergesEnvironmentOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
server:
  port: ":8080"
`)
	writeFile(t, dir, "production.yaml", `
db:
  host: db.internal
`)

	tree, err := LoadConfig("production", dir)
	require.NoError(t, err)

	var cfg struct {
		DB     DBConfig     `yaml:"db"`
		Server ServerConfig `yaml:"server"`
	}
	require.NoError(t, Decode(tree, &cfg))

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port, "nested keys not in the overlay survive")
	assert.Equal(t, ":8080", cfg.Server.Port)
}

func TestLoadConfig_MissingEnvFileFallsBackToBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \":9000\"\n")

	tree, err := LoadConfig("staging", dir)
	require.NoError(t, err)

	var cfg struct {
		Server ServerConfig `yaml:"server"`
	}
	require.NoError(t, Decode(tree, &cfg))
	assert.Equal(t, ":9000", cfg.Server.Port)
}

func TestLoadConfig_MissingBaseIsAnError(t *testing.T) {
	_, err := LoadConfig("local", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base.yaml")
}

func TestLoadConfig_SubstitutesSecretsThenProcessEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
jwt:
  secret: "${JWT_SIGNING_KEY}"
  ttl: 720h
db:
  password: "${HABITFLOW_TEST_DB_PASSWORD}"
  user: "${NOT_SET_ANYWHERE_42}"
`)
	writeFile(t, dir, "secrets.env", `
# comment
JWT_SIGNING_KEY="s3cret"
`)
	t.Setenv("HABITFLOW_TEST_DB_PASSWORD", "from-env")

	tree, err := LoadConfig("local", dir)
	require.NoError(t, err)

	var cfg struct {
		JWT JWTConfig `yaml:"jwt"`
		DB  DBConfig  `yaml:"db"`
	}
	require.NoError(t, Decode(tree, &cfg))

	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 720*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "from-env", cfg.DB.Password)
	assert.Equal(t, "${NOT_SET_ANYWHERE_42}", cfg.DB.User)
}

func TestMergeMaps_DoesNotMutateInputs(t *testing.T) {
	base := map[string]interface{}{"a": map[string]interface{}{"x": 1}}
	overlay := map[string]interface{}{"a": map[string]interface{}{"y": 2}, "b": true}

	merged := mergeMaps(base, overlay)

	assert.Equal(t, map[string]interface{}{"x": 1, "y": 2}, merged["a"])
	assert.Equal(t, true, merged["b"])
	assert.Equal(t, map[string]interface{}{"x": 1}, base["a"])
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_PORT", "6543")
	for _, k := range []string{"DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE"} {
		t.Setenv(k, "")
	}
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("JWT_SECRET", "override")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("SERVER_PORT", ":7000")
	t.Setenv("MQ_URL", "amqp://guest:guest@mq:5672/")

	db := DBConfig{Host: "localhost", Port: 5432}
	OverrideDBFromEnv(&db)
	redis := RedisConfig{}
	OverrideRedisFromEnv(&redis)
	jwt := JWTConfig{Secret: "base"}
	OverrideJWTFromEnv(&jwt)
	server := ServerConfig{}
	OverrideServerFromEnv(&server)
	mq := MQConfig{}
	OverrideMQFromEnv(&mq)

	assert.Equal(t, DBConfig{Host: "pg", Port: 6543}, db)
	assert.Equal(t, "cache:6379", redis.Addr)
	assert.Equal(t, JWTConfig{Secret: "override", TTL: time.Hour}, jwt)
	assert.Equal(t, ":7000", server.Port)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", mq.URL)
}
