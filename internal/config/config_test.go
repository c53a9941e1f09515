package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(32768), cfg.ReadLimit)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 30*time.Second, cfg.RingTimeout)
	assert.Equal(t, 32, cfg.SendBuffer)
	assert.Equal(t, 5, cfg.CallBurst)
	assert.Empty(t, cfg.ICEServers)
}

func TestLoadFileGeneratesSecret(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	a, err := LoadFile(missing)
	require.NoError(t, err)
	b, err := LoadFile(missing)
	require.NoError(t, err)

	assert.Len(t, a.Secret, 64)
	assert.NotEqual(t, a.Secret, b.Secret)

	t.Setenv("RING_SECRET", "from-env")
	c, err := LoadFile(missing)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.Secret)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: debug
port: 9000
ring_timeout: 0s
log_level: debug
ice_servers:
  - urls: ["stun:stun.example.org:3478"]
  - urls: ["turn:turn.example.org:3478"]
    username: ring
    credential: secret
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9000, cfg.Port)
	assert.Zero(t, cfg.RingTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.ICEServers, 2)
	assert.Equal(t, []string{"turn:turn.example.org:3478"}, cfg.ICEServers[1].URLs)
	assert.Equal(t, "ring", cfg.ICEServers[1].Username)
}

func TestLoadFileEnv(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("RING_SEND_BUFFER", "64")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 64, cfg.SendBuffer)
}

func TestLoadFileRejectsBadDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ring_timeout: -1s\n"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
