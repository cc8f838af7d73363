package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "url: /dev/ttyUSB0\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", cfg.URL)
	require.Equal(t, 2400, cfg.Serial.BaudRate)
	require.Equal(t, "E", cfg.Serial.Parity)
	require.Equal(t, 3, cfg.Retry.MaxRetries)
	require.Equal(t, 100*time.Millisecond, cfg.Retry.RetryDelay)
	require.Equal(t, 500*time.Millisecond, cfg.Retry.BaseTimeout)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
url: socket://10.0.0.5:10001
serial:
  baud_rate: 9600
  parity: n
retry:
  max_retries: 5
  retry_delay: 250ms
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "socket://10.0.0.5:10001", cfg.URL)
	require.Equal(t, 9600, cfg.Serial.BaudRate)
	require.Equal(t, "N", cfg.Serial.Parity, "parity is normalised to upper case")
	require.Equal(t, 5, cfg.Retry.MaxRetries)
	require.Equal(t, 250*time.Millisecond, cfg.Retry.RetryDelay)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
