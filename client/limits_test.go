package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/browsermob/maybe"
)

func TestLimitOptions_FormData(t *testing.T) {
	opts := LimitOptions{}
	require.Equal(t, "", opts.FormData())

	opts = LimitOptions{
		DownstreamKbps:    maybe.Some[int64](1024),
		UpstreamKbps:      maybe.Some[int64](256),
		DownstreamMaxKB:   maybe.Some[int64](0),
		UpstreamMaxKB:     maybe.Some[int64](10),
		Latency:           maybe.Some[int64](50),
		Enable:            maybe.Some(false),
		PayloadPercentage: maybe.Some[int64](95),
		MaxBitsPerSecond:  maybe.Some[int64](8000000),
	}

	require.Equal(t, "downstreamKbps=1024&downstreamMaxKB=0&enable=false&latency=50"+
		"&maxBitsPerSecond=8000000&payloadPercentage=95&upstreamKbps=256&upstreamMaxKB=10",
		opts.FormData())
}

func TestLoadLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "limits.yaml")

	err := os.WriteFile(path, []byte("upstreamKbps: 128\nenable: true\n"), 0600)
	require.NoError(t, err)

	opts, err := LoadLimits(path)
	require.NoError(t, err)
	require.Equal(t, maybe.Some[int64](128), opts.UpstreamKbps)
	require.Equal(t, maybe.Some(true), opts.Enable)
	require.False(t, opts.Latency.IsSome())
	require.Equal(t, "enable=true&upstreamKbps=128", opts.FormData())
}

func TestLoadLimits_Failures(t *testing.T) {
	_, err := LoadLimits(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read limits: ")

	path := filepath.Join(t.TempDir(), "limits.yaml")
	err = os.WriteFile(path, []byte("bandwidth: 12\n"), 0600)
	require.NoError(t, err)

	_, err = LoadLimits(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode limits: ")
}
