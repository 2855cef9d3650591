package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CARTE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Server.Port)
	assert.Equal(t, 168, c.Game.SaveTTLHours)
	assert.Equal(t, 300, c.Match.PlayerTTL)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: ":9000"
redis:
  addr: "redis:6379"
  enabled: false
game:
  saveTTLHours: 24
`), 0o644))
	t.Setenv("CARTE_CONFIG", path)
	t.Setenv("CARTE_JWT_SECRET", "from-env")
	t.Setenv("CARTE_SERVER_PORT", ":9100")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9100", c.Server.Port)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.False(t, c.Redis.Enabled)
	assert.Equal(t, 24, c.Game.SaveTTLHours)
	assert.Equal(t, "from-env", c.JWT.Secret)
}

func TestLoadBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o644))
	t.Setenv("CARTE_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}
