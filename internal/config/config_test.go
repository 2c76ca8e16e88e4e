package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClient_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultClient(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadClient_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	data := `
host: play.example.net
port: 14802
account: alice
password: secret
min_send_interval: 80ms
max_coordinate_jump: 16
scale_hint: pixels
log:
  level: debug
  file: /tmp/graal.log
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadClient(path)
	require.NoError(t, err)

	assert.Equal(t, "play.example.net:14802", cfg.Addr())
	assert.Equal(t, "alice", cfg.Account)
	assert.Equal(t, 80*time.Millisecond, cfg.MinSendInterval)
	assert.Equal(t, 16.0, cfg.MaxCoordinateJump)
	assert.Equal(t, "pixels", cfg.ScaleHint)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Log.MaxBackups, "unset nested fields keep defaults")
	assert.Equal(t, DefaultClient().Version, cfg.Version)
}

func TestLoadClient_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1, 2"), 0o600))

	_, err := LoadClient(path)
	assert.Error(t, err)
}

func TestClient_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Client)
	}{
		{"empty host", func(c *Client) { c.Host = "" }},
		{"port zero", func(c *Client) { c.Port = 0 }},
		{"long version", func(c *Client) { c.Version = "G3D0311C9" }},
		{"key too large", func(c *Client) { c.EncryptionKey = 224 }},
		{"no queue", func(c *Client) { c.SendQueueSize = 0 }},
		{"negative interval", func(c *Client) { c.MinSendInterval = -time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClient()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, Path())

	t.Setenv(EnvPath, "/etc/graal.yaml")
	assert.Equal(t, "/etc/graal.yaml", Path())
}
