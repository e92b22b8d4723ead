package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/browsermob/maybe"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")

	data := "path: /opt/bmp/bin/browsermob-proxy\nport: 9090\nprobeInterval: 500ms\nstopTimeout: 5s\n"

	err := os.WriteFile(path, []byte(data), 0600)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/opt/bmp/bin/browsermob-proxy", cfg.Path)
	require.Equal(t, maybe.Some(9090), cfg.Port)
	require.Equal(t, 500*time.Millisecond, cfg.ProbeInterval)
	require.Equal(t, 0, cfg.ProbeAttempts)

	srv := NewFromConfig(cfg)
	require.Equal(t, "/opt/bmp/bin/browsermob-proxy", srv.path)
	require.Equal(t, 9090, srv.port)
	require.Equal(t, 500*time.Millisecond, srv.interval)
	require.Equal(t, defaultAttempts, srv.attempts)
	require.Equal(t, 5*time.Second, srv.stopTimeout)
}

func TestLoadConfig_Failures(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config: ")

	path := filepath.Join(t.TempDir(), "server.yaml")
	err = os.WriteFile(path, []byte("host: example.com\n"), 0600)
	require.NoError(t, err)

	_, err = LoadConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode config: ")
}

func TestConfig_Options(t *testing.T) {
	cfg := Config{Path: "bmp"}
	require.Empty(t, cfg.Options())

	srv := NewFromConfig(cfg)
	require.Equal(t, DefaultPort, srv.port)
	require.Equal(t, defaultInterval, srv.interval)
	require.Equal(t, defaultStopTimeout, srv.stopTimeout)

	// An explicit zero port is kept so that no port argument is given.
	cfg.Port = maybe.Some(0)
	cfg.ProbeAttempts = 5

	srv = NewFromConfig(cfg, WithStopTimeout(time.Second))
	require.Equal(t, 0, srv.port)
	require.Equal(t, defaultInterval, srv.interval)
	require.Equal(t, 5, srv.attempts)
	require.Equal(t, time.Second, srv.stopTimeout)
}
