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

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  driver: sqlite
  dsn: "file::memory:"
jwt:
  secret: file-secret
stream:
  ping_interval: 5s
  queue_size: 10
cors:
  allowed_origins: ["http://localhost:3000"]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, ":9000", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.ConnectionString())
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, 5*time.Second, cfg.Stream.PingInterval)
	assert.Equal(t, 10, cfg.Stream.QueueSize)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)

	// defaults
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry())
	assert.Equal(t, "notifications", cfg.Redis.Channel)
	assert.Equal(t, time.Minute, cfg.Reminders.PollInterval)
}

func TestLoadConfigSecretsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: file-secret
database:
  password: file-password
`)
	t.Setenv("CRM_JWT_SECRET", "env-secret")
	t.Setenv("CRM_DATABASE_PASSWORD", "env-password")
	t.Setenv("CRM_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "env-password", cfg.Database.Password)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Contains(t, cfg.Database.ConnectionString(), "password=env-password")
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8000\n")

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "jwt secret is required")
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: s\ndatabase:\n  driver: mysql\n")

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
