package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SVH_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.ClientAddr())
	assert.Equal(t, "127.0.0.1:8001", cfg.DBAddr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 3600, cfg.Auth.TokenTTLSeconds)
	assert.Equal(t, "admin", cfg.Auth.SeedAdminUser)
	assert.True(t, cfg.Firewall.UseSudo)
	assert.Equal(t, 10, cfg.Supervisor.ReadyTimeoutSec)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
client_port = 9100
db_port = 9101

[auth]
secret = "file-secret"
token_ttl_seconds = 120

[database]
driver = "mysql"
host = "db.internal"
port = 3307
user = "svh"
password = "pw"
db = "hub"
params = "parseTime=true"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SVH_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.App.ClientPort)
	assert.Equal(t, 9101, cfg.App.DBPort)
	assert.Equal(t, "file-secret", cfg.Auth.Secret)
	assert.Equal(t, 120, cfg.Auth.TokenTTLSeconds)
	assert.Equal(t, "svh:pw@tcp(db.internal:3307)/hub?parseTime=true", cfg.MySQLDSN())

	// Fields the file omits keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.App.ClientHost)
	assert.Equal(t, "svh.ingest.audit", cfg.RabbitMQ.IngestAuditQueue)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[auth]\nsecret = \"file-secret\"\n"), 0o644))

	t.Setenv("SVH_CONFIG_FILE", path)
	t.Setenv("SVH_AUTH_SECRET", "env-secret")
	t.Setenv("SVH_CLIENT_PORT", "9200")
	t.Setenv("SVH_TOKEN_TTL_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Auth.Secret)
	assert.Equal(t, 9200, cfg.App.ClientPort)
	assert.Equal(t, 3600, cfg.Auth.TokenTTLSeconds, "unparsable override keeps the default")
}

func TestLoadBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not valid toml ["), 0o644))
	t.Setenv("SVH_CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
}
