package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultServer, cfg.Server)
	assert.Equal(t, 25, cfg.QueueDrain.MaxPolls)
	assert.Equal(t, Duration(30*time.Second), cfg.QueueDrain.Timeout)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
server: ola.local:9010
universe: 3
pidDir: /tmp/pids
logLevel: debug
queueDrain:
  maxPolls: 10
  timeout: 2.5s
dial:
  attempts: 5
  initialBackoff: 100ms
  maxBackoff: 1s
`))
	require.NoError(t, err)

	assert.Equal(t, "ola.local:9010", cfg.Server)
	assert.Equal(t, uint32(3), cfg.Universe)
	assert.Equal(t, "/tmp/pids", cfg.PidDir)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, 10, cfg.QueueDrain.MaxPolls)
	assert.Equal(t, Duration(2500*time.Millisecond), cfg.QueueDrain.Timeout)
	assert.Equal(t, 5, cfg.Dial.Attempts)
	assert.Equal(t, Duration(100*time.Millisecond), cfg.Dial.InitialBackoff)

	// Untouched keys keep their defaults.
	assert.Equal(t, Default().MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, Default().Dial.ConnectTimeout, cfg.Dial.ConnectTimeout)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad duration", "queueDrain:\n  timeout: soon\n"},
		{"bad server", "server: no-port\n"},
		{"bad level", "logLevel: loud\n"},
		{"zero polls", "queueDrain:\n  maxPolls: 0\n"},
		{"inverted backoff", "dial:\n  initialBackoff: 2s\n  maxBackoff: 1s\n"},
		{"not yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidateWrapsSentinel(t *testing.T) {
	cfg := Default()
	cfg.Dial.Attempts = 0
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "dial.attempts")
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "olardm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: 127.0.0.1:9999\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDurationMarshal(t *testing.T) {
	out, err := yaml.Marshal(QueueDrain{MaxPolls: 1, Timeout: Duration(1500 * time.Millisecond)})
	require.NoError(t, err)
	assert.Contains(t, string(out), "timeout: 1.5s")
}
