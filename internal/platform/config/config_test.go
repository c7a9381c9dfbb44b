package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartgn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DefaultJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "smartgn.request.events", cfg.Kafka.Topic)
	assert.Equal(t, "./uploads", cfg.Uploads.Dir)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.BrokerList())
	assert.Equal(t, 5, cfg.Auth.Lockout.Threshold)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
environment: development
server:
  addr: ":9090"
auth:
  token_ttl: 2h
kafka:
  brokers: "k1:9092, k2:9092"
uploads:
  dir: /var/lib/smartgn
`)

	cfg, err := load(path, env(map[string]string{
		"SMARTGN_ADDR": ":7070",
		"REDIS_URL":    "redis://cache:6379/0",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL, "file wins over default")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BrokerList())
	assert.Equal(t, "/var/lib/smartgn", cfg.Uploads.Dir)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
}

func TestLoadFileFromEnvVar(t *testing.T) {
	path := writeFile(t, "log_level: debug\n")
	cfg, err := load("", env(map[string]string{"SMARTGN_CONFIG": path}))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := load(filepath.Join(t.TempDir(), "absent.yaml"), env(nil))
		require.Error(t, err)
	})

	t.Run("bad ttl", func(t *testing.T) {
		_, err := load("", env(map[string]string{"TOKEN_TTL": "a week"}))
		require.ErrorContains(t, err, "TOKEN_TTL")
	})

	t.Run("default secret in production", func(t *testing.T) {
		_, err := load("", env(map[string]string{"ENVIRONMENT": "production"}))
		require.ErrorContains(t, err, "jwt_secret")
	})

	t.Run("lockout without window", func(t *testing.T) {
		path := writeFile(t, "auth:\n  lockout:\n    threshold: 3\n    window: 0s\n")
		_, err := load(path, env(nil))
		require.ErrorContains(t, err, "lockout")
	})

	t.Run("lockout disabled from env", func(t *testing.T) {
		cfg, err := load("", env(map[string]string{"LOGIN_LOCKOUT_THRESHOLD": "0"}))
		require.NoError(t, err)
		assert.Zero(t, cfg.Auth.Lockout.Threshold)
	})

	t.Run("production with secret", func(t *testing.T) {
		cfg, err := load("", env(map[string]string{"ENVIRONMENT": "PRODUCTION", "JWT_SECRET": "s3cr3t"}))
		require.NoError(t, err)
		assert.Equal(t, Production, cfg.Environment)
	})
}
